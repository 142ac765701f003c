// Package app assembles the search pipeline and its collaborators from a
// Config. Every binary builds on it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/platepick/config"
	"github.com/spacesedan/platepick/internal/cache"
	"github.com/spacesedan/platepick/internal/clients"
	"github.com/spacesedan/platepick/internal/cuisine"
	"github.com/spacesedan/platepick/internal/history"
	"github.com/spacesedan/platepick/internal/monitoring"
	"github.com/spacesedan/platepick/internal/pipeline"
	"github.com/spacesedan/platepick/internal/rating"
	"github.com/spacesedan/platepick/internal/sentiment"
)

const (
	HISTORY_LOCK_TTL = 5 * time.Second
	healthProbeText  = "The food was good."
)

type App struct {
	Orchestrator *pipeline.Orchestrator
	Recorder     *history.Recorder
	Health       *monitoring.Health

	probes  map[string]monitoring.ProbeFunc
	closers []func()
}

// Build wires the collaborators named by cfg. Optional ones (valkey, OpenAI)
// are skipped when not configured.
func Build(ctx context.Context, cfg config.Config, extra ...pipeline.OrchestratorOption) (*App, error) {
	a := &App{
		Health: monitoring.NewHealth(),
		probes: make(map[string]monitoring.ProbeFunc),
	}

	classifier, err := a.buildClassifier(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.probes["classifier"] = func(ctx context.Context) error {
		_, err := classifier.Classify(ctx, healthProbeText)
		return err
	}
	if hc, ok := classifier.(interface{ HealthCheck(context.Context) error }); ok {
		a.probes["classifier"] = hc.HealthCheck
	}

	scorer := sentiment.NewClassifierScorer(classifier,
		sentiment.WithMaxChars(cfg.ClassifierMaxChars),
		sentiment.WithTimeout(cfg.ClassifierTimeout),
		sentiment.WithBreaker(sentiment.DefaultBreakerSettings("classifier-"+cfg.ClassifierBackend)))
	aggregator := rating.NewAggregator(scorer, rating.WithFailureHook(monitoring.ObserveScoreFailure))

	var places pipeline.PlaceSource = clients.NewFoursquareClient(clients.FoursquareOptions{
		APIKey:     cfg.FoursquareAPIKey,
		BaseURL:    cfg.FoursquareBaseURL,
		RatePerSec: cfg.PlacesRatePerSec,
		TipsLimit:  cfg.ReviewsPerPlace,
		Timeout:    cfg.FetchTimeout,
	})

	var locker history.Locker = history.NewLocalLocker()
	if cfg.ValkeyAddress != "" {
		vc, err := clients.InitValkey(clients.ValkeyOptions{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			TLS:      cfg.ValkeyTLS,
		})
		if err != nil {
			slog.Warn("[App] Valkey unavailable, running without review cache",
				slog.String("error", err.Error()))
		} else {
			a.closers = append(a.closers, vc.Close)
			a.probes["valkey"] = vc.Ping
			locker = history.NewValkeyLocker(vc.Client, HISTORY_LOCK_TTL)
			if cfg.CacheEnabled() {
				places = cache.NewReviewCache(places, vc, cfg.ReviewCacheTTL)
			}
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Recorder = history.NewRecorder(store,
		history.WithLocker(locker),
		history.WithObserver(monitoring.ObserveHistoryWrite))

	var tagger cuisine.Tagger = cuisine.HeuristicTagger{}
	if cfg.OpenAIAPIKey != "" {
		oc, err := clients.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
		if err != nil {
			slog.Warn("[App] OpenAI unavailable, using heuristic cuisine tags",
				slog.String("error", err.Error()))
		} else {
			tagger = cuisine.NewOpenAITagger(oc)
		}
	}

	options := append([]pipeline.OrchestratorOption{
		pipeline.WithTagger(tagger),
		pipeline.WithDegradedHook(monitoring.ObserveDegraded),
		pipeline.WithSearchHook(monitoring.ObserveSearch),
	}, extra...)

	a.Orchestrator = pipeline.NewOrchestrator(places, aggregator, a.Recorder, pipeline.Options{
		Workers:         cfg.PipelineWorkers,
		SearchLimit:     cfg.SearchLimit,
		ReviewsPerPlace: cfg.ReviewsPerPlace,
		FetchTimeout:    cfg.FetchTimeout,
	}, options...)

	for name := range a.probes {
		a.Health.Register(name)
	}

	slog.Info("[App] Pipeline ready",
		slog.String("classifier", cfg.ClassifierBackend),
		slog.String("history", cfg.HistoryBackend),
		slog.Bool("review_cache", cfg.CacheEnabled()),
		slog.Int("workers", cfg.PipelineWorkers))
	return a, nil
}

func (a *App) buildClassifier(cfg config.Config) (sentiment.Classifier, error) {
	switch cfg.ClassifierBackend {
	case "hugot":
		hc, err := sentiment.NewHugotClassifier(cfg.HugotModel, cfg.HugotModelDir)
		if err != nil {
			slog.Warn("[App] Local model unavailable, falling back to VADER",
				slog.String("model", cfg.HugotModel),
				slog.String("error", err.Error()))
			return sentiment.NewVaderClassifier(), nil
		}
		a.closers = append(a.closers, func() {
			if err := hc.Close(); err != nil {
				slog.Warn("[App] Failed to close hugot session", slog.String("error", err.Error()))
			}
		})
		return hc, nil
	case "huggingface":
		return clients.GetHuggingFaceClient(cfg.AppEnv, cfg.HFEndpoint, cfg.HFAPIToken), nil
	case "vader":
		return sentiment.NewVaderClassifier(), nil
	default:
		return nil, fmt.Errorf("[App] unknown classifier backend %q", cfg.ClassifierBackend)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (history.Store, error) {
	switch cfg.HistoryBackend {
	case "dynamodb":
		client, err := clients.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			return nil, err
		}
		return history.NewDynamoStore(client, cfg.HistoryTable), nil
	case "memory", "":
		return history.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("[App] unknown history backend %q", cfg.HistoryBackend)
	}
}

// StartMonitors probes each registered component until ctx ends.
func (a *App) StartMonitors(ctx context.Context) {
	for name, probe := range a.probes {
		go monitoring.MonitorHealth(ctx, name, probe, a.Health.Register(name), monitoring.HEALTHCHECK_INTERVAL)
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
