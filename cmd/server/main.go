package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/platepick/config"
	"github.com/spacesedan/platepick/internal/api"
	"github.com/spacesedan/platepick/internal/app"
	"github.com/spacesedan/platepick/internal/clients/kafka_client"
	"github.com/spacesedan/platepick/internal/events"
	"github.com/spacesedan/platepick/internal/logging"
	"github.com/spacesedan/platepick/internal/pipeline"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var extra []pipeline.OrchestratorOption
	if cfg.KafkaEnabled() {
		producer, err := kafka_client.NewProducer(kafka_client.KafkaConfig{
			Broker:          cfg.KafkaBroker,
			ResultTopic:     cfg.KafkaResultTopic,
			TransactionalID: "platepick-server-producer",
		})
		if err != nil {
			slog.Warn("[Main] Kafka unavailable, completed searches will not be published",
				slog.String("error", err.Error()))
		} else {
			defer producer.Close()
			extra = append(extra, pipeline.WithPublisher(events.NewKafkaPublisher(producer, cfg.KafkaResultTopic)))
		}
	}

	a, err := app.Build(ctx, cfg, extra...)
	if err != nil {
		slog.Error("[Main] Failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()
	a.StartMonitors(ctx)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(&api.Handler{
			Searcher:      a.Orchestrator,
			Records:       a.Recorder,
			HealthStatus:  a.Health,
			SearchTimeout: api.DEFAULT_SEARCH_TIMEOUT,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("[Main] HTTP server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Main] HTTP server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[Main] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Main] Graceful shutdown failed", slog.String("error", err.Error()))
	}
}
