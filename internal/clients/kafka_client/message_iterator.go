package kafka_client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// MessageReader is the read side of *kafka.Consumer.
type MessageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
}

var ErrIteratorExhausted = errors.New("[KafkaIterator] Failed to read message after retries")

type KafkaMessageIterator struct {
	reader     MessageReader
	ctx        context.Context
	pollEvery  time.Duration
	retryDelay time.Duration
}

func NewKafkaMessageIterator(ctx context.Context, reader MessageReader) *KafkaMessageIterator {
	return &KafkaMessageIterator{
		reader:     reader,
		ctx:        ctx,
		pollEvery:  time.Second,
		retryDelay: RETRY_DELAY,
	}
}

// Next blocks until a message arrives or the context ends. Poll timeouts are
// not failures; read errors are retried MAX_RETRIES times.
func (it *KafkaMessageIterator) Next() (*kafka.Message, error) {
	if it.reader == nil {
		return nil, errors.New("[KafkaIterator] Kafka consumer has not been initialized")
	}

	failures := 0
	for {
		select {
		case <-it.ctx.Done():
			slog.Warn("[KafkaIterator] Context cancelled, stopping iterator")
			return nil, it.ctx.Err()
		default:
		}

		msg, err := it.reader.ReadMessage(it.pollEvery)
		if err == nil {
			return msg, nil
		}

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) {
			if kafkaErr.Code() == kafka.ErrTimedOut {
				continue
			}
			if kafkaErr.Code() == kafka.ErrAllBrokersDown {
				slog.Error("[KafkaIterator] All Kafka brokers are down. Aborting")
				return nil, err
			}
		}

		failures++
		slog.Warn("[KafkaIterator] Failed to read message, retrying...",
			slog.Int("attempt", failures),
			slog.Int("max_retries", MAX_RETRIES),
			slog.String("error", err.Error()))
		if failures >= MAX_RETRIES {
			return nil, ErrIteratorExhausted
		}

		select {
		case <-it.ctx.Done():
			return nil, it.ctx.Err()
		case <-time.After(it.retryDelay):
		}
	}
}
