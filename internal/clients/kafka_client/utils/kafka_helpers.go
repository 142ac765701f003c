package utils

import (
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/goccy/go-json"
)

func SerializeToJSON(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("[KafkaUtils] Failed to serialize JSON",
			slog.String("error", err.Error()))
		return nil, err
	}
	return data, nil
}

func DeserializeFromJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("[KafkaUtils] Failed to deserialize JSON",
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func HandleConsumerError(err error) {
	if err == nil {
		return
	}
	slog.Error("[KafkaUtils] Kafka Consumer Error",
		slog.String("error", err.Error()))
}

// HeaderValue returns the first header named key.
func HeaderValue(msg *kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
