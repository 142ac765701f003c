package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/platepick/config"
	"github.com/spacesedan/platepick/internal/app"
	"github.com/spacesedan/platepick/internal/clients/kafka_client"
	"github.com/spacesedan/platepick/internal/clients/kafka_client/consumers"
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

	kcfg := kafka_client.KafkaConfig{
		Broker:       cfg.KafkaBroker,
		GroupID:      cfg.KafkaGroupID,
		RequestTopic: cfg.KafkaRequestTopic,
		ResultTopic:  cfg.KafkaResultTopic,
	}

	var producer *kafka_client.Producer
	for {
		producer, err = kafka_client.NewProducer(kcfg)
		if err == nil {
			break
		}
		slog.Warn("[Main] Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	defer producer.Close()

	a, err := app.Build(ctx, cfg, pipeline.WithPublisher(events.NewKafkaPublisher(producer, kcfg.ResultTopic)))
	if err != nil {
		slog.Error("[Main] Failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()
	a.StartMonitors(ctx)

	consumer, err := kafka_client.NewConsumer(kcfg)
	if err != nil {
		slog.Error("[Main] Failed to start consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)
	if err := consumers.StartSearchConsumer(ctx, iterator, committer, a.Orchestrator); err != nil {
		slog.Error("[Main] Consumer stopped", slog.String("error", err.Error()))
	}
}
