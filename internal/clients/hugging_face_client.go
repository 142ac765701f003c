package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spacesedan/platepick/internal/models"
)

var (
	huggingFaceInstance *HuggingFaceClient
	huggingFaceOnce     sync.Once
)

// HuggingFaceClient calls a hosted text-classification model.
type HuggingFaceClient struct {
	Client   *http.Client
	endpoint string
	token    string
	backoff  time.Duration
}

func NewHuggingFaceClient(endpoint, token string, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		Client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		token:    token,
		backoff:  INITIAL_BACKOFF,
	}
}

// GetHuggingFaceClient returns the process-wide client. Production gets the
// tight timeout; elsewhere cold model starts are tolerated.
func GetHuggingFaceClient(appEnv, endpoint, token string) *HuggingFaceClient {
	huggingFaceOnce.Do(func() {
		timeout := 60 * time.Second
		if appEnv == "production" {
			timeout = 10 * time.Second
		}
		slog.Info("[HuggingFaceClient] Initializing Client",
			slog.Duration("timeout", timeout),
			slog.String("env", appEnv))
		huggingFaceInstance = NewHuggingFaceClient(endpoint, token, timeout)
	})
	return huggingFaceInstance
}

// DoWithRetry posts body, retrying transport errors and 5xx responses with
// exponential backoff. Exhausted retries surface as an *UpstreamError.
func (h *HuggingFaceClient) DoWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error
	var lastStatus int
	backoff := h.backoff

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)
		if h.token != "" {
			req.Header.Set("Authorization", "Bearer "+h.token)
		}

		resp, err := h.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if resp != nil {
			lastStatus = resp.StatusCode
			resp.Body.Close()
		}
		lastErr = err

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		if attempt == MAX_RETRIES-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	return nil, &UpstreamError{Op: "huggingface classify", Status: lastStatus, Err: lastErr}
}

// Classify sends one text and returns the highest scoring label.
func (h *HuggingFaceClient) Classify(ctx context.Context, text string) (models.Classification, error) {
	start := time.Now()
	body, err := json.Marshal(models.ClassificationRequest{Inputs: text})
	if err != nil {
		return models.Classification{}, fmt.Errorf("failed to marshal input: %w", err)
	}

	resp, err := h.DoWithRetry(ctx, body)
	if err != nil {
		if ctx.Err() != nil {
			return models.Classification{}, ctx.Err()
		}
		return models.Classification{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Classification{}, &UpstreamError{Op: "huggingface classify", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("[HuggingFaceClient] Classification request rejected",
			slog.Int("status", resp.StatusCode),
			getPreview(respBody))
		return models.Classification{}, &UpstreamError{Op: "huggingface classify", Status: resp.StatusCode}
	}

	var result models.ClassificationResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return models.Classification{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	best, ok := result.Best()
	if !ok {
		return models.Classification{}, fmt.Errorf("classifier returned no labels")
	}

	slog.Debug("[HuggingFaceClient] Classification request successful",
		slog.String("label", best.Label),
		slog.Duration("elapsed", time.Since(start)))
	return best, nil
}

// HealthCheck classifies a fixed probe sentence.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context) error {
	_, err := h.Classify(ctx, "The food was good.")
	return err
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
