package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/platepick/internal/clients/kafka_client"
	"github.com/spacesedan/platepick/internal/clients/kafka_client/utils"
	"github.com/spacesedan/platepick/internal/history"
	"github.com/spacesedan/platepick/internal/models"
	"github.com/spacesedan/platepick/internal/pipeline"
)

// REQUEST_ID_HEADER overrides the message key as the request id.
const REQUEST_ID_HEADER = "request_id"

type MessageSource interface {
	Next() (*kafka.Message, error)
}

type Committer interface {
	Commit(msg *kafka.Message) error
}

type SearchRunner interface {
	RunSearch(ctx context.Context, req models.SearchRequest) (models.RankedView, error)
}

// StartSearchConsumer runs one search per request message and commits the
// offset once the search has finished. Malformed messages are committed and
// skipped. A search abandoned by shutdown is left uncommitted so it is
// redelivered.
func StartSearchConsumer(ctx context.Context, source MessageSource, committer Committer, runner SearchRunner) error {
	slog.Info("[SearchConsumer] Listening for messages...")

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[SearchConsumer] Stopping consumer...")
			return nil
		default:
		}

		msg, err := source.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, kafka_client.ErrIteratorExhausted) {
				utils.HandleConsumerError(err)
				continue
			}
			return err
		}

		if err := handleSearchMessage(ctx, msg, runner); err != nil {
			if ctx.Err() != nil {
				slog.Warn("[SearchConsumer] Search abandoned during shutdown, leaving offset uncommitted")
				return nil
			}
			utils.HandleConsumerError(err)
		}

		if err := committer.Commit(msg); err != nil {
			slog.Warn("[SearchConsumer] Failed to commit offset",
				slog.String("error", err.Error()))
		}
	}
}

func handleSearchMessage(ctx context.Context, msg *kafka.Message, runner SearchRunner) error {
	var req models.SearchRequest
	if err := utils.DeserializeFromJSON(msg.Value, &req); err != nil {
		return nil
	}
	if err := pipeline.ValidateRequest(req); err != nil {
		slog.Warn("[SearchConsumer] Dropping invalid search request",
			slog.String("error", err.Error()))
		return nil
	}
	if req.RequestID == "" {
		if id, ok := utils.HeaderValue(msg, REQUEST_ID_HEADER); ok && id != "" {
			req.RequestID = id
		} else if len(msg.Key) > 0 {
			req.RequestID = string(msg.Key)
		}
	}

	start := time.Now()
	view, err := runner.RunSearch(ctx, req)

	var persistErr *history.PersistError
	if err != nil && !errors.As(err, &persistErr) {
		return err
	}

	slog.Info("[SearchConsumer] Search request handled",
		slog.String("request_id", view.RequestID),
		slog.Int("restaurants", len(view.Restaurants)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
