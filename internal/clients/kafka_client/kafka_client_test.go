package kafka_client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedReader struct {
	results []error
	calls   int
}

func (r *scriptedReader) ReadMessage(time.Duration) (*kafka.Message, error) {
	i := r.calls
	r.calls++
	if i < len(r.results) && r.results[i] != nil {
		return nil, r.results[i]
	}
	return &kafka.Message{Value: []byte("ok")}, nil
}

func TestIteratorSkipsPollTimeouts(t *testing.T) {
	reader := &scriptedReader{results: []error{
		kafka.NewError(kafka.ErrTimedOut, "timed out", false),
		kafka.NewError(kafka.ErrTimedOut, "timed out", false),
	}}
	it := NewKafkaMessageIterator(context.Background(), reader)

	msg, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(msg.Value))
	assert.Equal(t, 3, reader.calls)
}

func TestIteratorGivesUpAfterRetries(t *testing.T) {
	failures := make([]error, MAX_RETRIES)
	for i := range failures {
		failures[i] = errors.New("broker hiccup")
	}
	it := NewKafkaMessageIterator(context.Background(), &scriptedReader{results: failures})
	it.retryDelay = time.Millisecond

	_, err := it.Next()
	assert.ErrorIs(t, err, ErrIteratorExhausted)
}

func TestIteratorAbortsWhenBrokersDown(t *testing.T) {
	reader := &scriptedReader{results: []error{kafka.NewError(kafka.ErrAllBrokersDown, "down", true)}}
	it := NewKafkaMessageIterator(context.Background(), reader)

	_, err := it.Next()
	require.Error(t, err)
	assert.Equal(t, 1, reader.calls)
}

func TestIteratorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewKafkaMessageIterator(ctx, &scriptedReader{}).Next()
	assert.ErrorIs(t, err, context.Canceled)
}

type flakyCommitter struct {
	failures int
	calls    int
}

func (f *flakyCommitter) CommitMessage(*kafka.Message) ([]kafka.TopicPartition, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("coordinator not available")
	}
	return nil, nil
}

func TestCommitHandlerRetries(t *testing.T) {
	committer := &flakyCommitter{failures: 2}
	handler := NewCommitHandler(context.Background(), committer)
	handler.retryDelay = time.Millisecond

	require.NoError(t, handler.Commit(&kafka.Message{}))
	assert.Equal(t, 3, committer.calls)
}

func TestCommitHandlerGivesUp(t *testing.T) {
	handler := NewCommitHandler(context.Background(), &flakyCommitter{failures: MAX_RETRIES})
	handler.retryDelay = time.Millisecond

	assert.Error(t, handler.Commit(&kafka.Message{}))
}

func TestConfigDefaults(t *testing.T) {
	cfg := KafkaConfig{Broker: "kafka:9092"}.withDefaults()

	assert.Equal(t, "kafka:9092", cfg.Broker)
	assert.Equal(t, DEFAULT_CONSUMER_GROUP, cfg.GroupID)
	assert.Equal(t, KAFKA_TOPIC_SEARCH_REQUESTS, cfg.RequestTopic)
	assert.Equal(t, KAFKA_TOPIC_SEARCH_COMPLETED, cfg.ResultTopic)
}
