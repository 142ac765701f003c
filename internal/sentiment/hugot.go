package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/spacesedan/platepick/internal/models"
)

const DefaultHugotModel = "nlptown/bert-base-multilingual-uncased-sentiment"

// HugotClassifier runs a star rating text classification model in process.
// One inference runs at a time; callers queue on slot under their own context.
type HugotClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	slot     chan struct{}
	infer    func(text string) (models.Classification, error)
}

func NewHugotClassifier(modelName, modelDir string) (*HugotClassifier, error) {
	modelPath, err := ensureModel(modelName, modelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("[HugotClassifier] failed to initialize session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "reviewStarPipeline",
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("[HugotClassifier] failed to initialize pipeline: %w", err)
	}

	slog.Info("[HugotClassifier] Pipeline ready", slog.String("model_path", modelPath))
	h := &HugotClassifier{session: session, pipeline: pipeline, slot: make(chan struct{}, 1)}
	h.infer = h.run
	return h, nil
}

func ensureModel(modelName, modelDir string) (string, error) {
	if err := os.MkdirAll(modelDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("[HugotClassifier] failed to create model directory: %w", err)
	}

	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		slog.Info("[HugotClassifier] Using existing model", slog.String("path", modelPath))
		return modelPath, nil
	}

	slog.Info("[HugotClassifier] Model not found, downloading...", slog.String("model", modelName))
	downloaded, err := hugot.DownloadModel(modelName, modelDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("[HugotClassifier] failed to download model %s: %w", modelName, err)
	}
	return downloaded, nil
}

type hugotResult struct {
	out models.Classification
	err error
}

// Classify waits for the model under ctx. A caller that gives up while
// queued leaves nothing behind; one that gives up mid inference leaves only
// the running call, which frees the slot when it finishes.
func (h *HugotClassifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	select {
	case h.slot <- struct{}{}:
	case <-ctx.Done():
		return models.Classification{}, ctx.Err()
	}

	done := make(chan hugotResult, 1)
	go func() {
		defer func() { <-h.slot }()
		out, err := h.infer(text)
		done <- hugotResult{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.Classification{}, ctx.Err()
	case res := <-done:
		return res.out, res.err
	}
}

func (h *HugotClassifier) run(text string) (models.Classification, error) {
	output, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return models.Classification{}, err
	}
	if len(output.ClassificationOutputs) == 0 || len(output.ClassificationOutputs[0]) == 0 {
		return models.Classification{}, errors.New("[HugotClassifier] empty pipeline output")
	}

	best := output.ClassificationOutputs[0][0]
	for _, candidate := range output.ClassificationOutputs[0][1:] {
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	return models.Classification{Label: best.Label, Confidence: float64(best.Score)}, nil
}

func (h *HugotClassifier) Close() error {
	if h.session == nil {
		return nil
	}
	return h.session.Destroy()
}
