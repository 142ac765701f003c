package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// Producer publishes each message in its own transaction. Transactions on
// one producer are serial, so Publish holds a lock for the whole exchange.
type Producer struct {
	producer *kafka.Producer
	mu       sync.Mutex
}

func NewProducer(cfg KafkaConfig) (*Producer, error) {
	cfg = cfg.withDefaults()
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker),
		slog.String("transactional_id", cfg.TransactionalID))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
		"transactional.id":                      cfg.TransactionalID,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	if err := p.InitTransactions(context.Background()); err != nil {
		p.Close()
		return nil, fmt.Errorf("[KafkaClient] Failed to init transactions: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &Producer{producer: p}, nil
}

func (p *Producer) Close() {
	slog.Info("[KafkaClient] Shutting down Kafka producer...")
	if p == nil || p.producer == nil {
		return
	}
	if remaining := p.producer.Flush(5000); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}

// Publish writes one message transactionally.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.producer.BeginTransaction(); err != nil {
		return fmt.Errorf("[KafkaClient] failed to begin transaction: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	var err error
	for i := 0; i < 3; i++ {
		err = p.producer.Produce(msg, nil)
		if err == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
	}
	if err != nil {
		if abortErr := p.producer.AbortTransaction(ctx); abortErr != nil {
			return fmt.Errorf("[KafkaClient] failed to abort transaction after produce error: %w", abortErr)
		}
		return fmt.Errorf("[KafkaClient] failed to produce message: %w", err)
	}

	var commitErr error
	for i := 0; i < 3; i++ {
		commitErr = p.producer.CommitTransaction(ctx)
		if commitErr == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to commit transaction, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", commitErr.Error()))
	}
	if commitErr != nil {
		if abortErr := p.producer.AbortTransaction(ctx); abortErr != nil {
			slog.Error("[KafkaClient] Failed to abort transaction after commit error",
				slog.String("error", abortErr.Error()))
		}
		return fmt.Errorf("[KafkaClient] failed to commit transaction after 3 retries: %w", commitErr)
	}

	slog.Debug("[KafkaClient] Published message transactionally",
		slog.String("topic", topic),
		slog.String("key", string(key)))
	return nil
}
