// Package events encodes finished searches for the message bus. Payloads are
// protobuf Structs so consumers need no generated code.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/spacesedan/platepick/internal/models"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	CONTENT_TYPE_HEADER   = "content-type"
	CONTENT_TYPE_PROTOBUF = "application/x-protobuf"
	EVENT_TYPE_HEADER     = "event-type"
	EVENT_SEARCH_COMPLETE = "search.completed"
)

type RestaurantSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`
	Address      string  `json:"address"`
	MapLink      string  `json:"map_link"`
	Cuisine      string  `json:"cuisine"`
	ReviewStatus string  `json:"review_status"`
}

// SearchCompleted is the decoded form of a search-completed event.
type SearchCompleted struct {
	RequestID   string              `json:"request_id"`
	FoodQuery   string              `json:"food_query"`
	Location    string              `json:"location"`
	TopPick     *RestaurantSummary  `json:"top_pick"`
	Restaurants []RestaurantSummary `json:"restaurants"`
	Warnings    []string            `json:"warnings"`
	CompletedAt time.Time           `json:"completed_at"`
}

func summarize(r models.Restaurant) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"name":          r.Name,
		"rating":        r.Rating.AverageScore,
		"review_count":  r.Rating.ReviewCount,
		"address":       r.Address,
		"map_link":      r.MapLink,
		"cuisine":       r.Cuisine,
		"review_status": string(r.ReviewStatus),
	}
}

// EncodeSearchCompleted serialises the ranked view. Restaurants keep their
// ranked order.
func EncodeSearchCompleted(view models.RankedView, completedAt time.Time) ([]byte, error) {
	restaurants := make([]any, 0, len(view.Restaurants))
	for _, r := range view.Restaurants {
		restaurants = append(restaurants, summarize(r))
	}
	warnings := make([]any, 0, len(view.Warnings))
	for _, w := range view.Warnings {
		warnings = append(warnings, w)
	}

	var topPick any
	if view.TopPick != nil {
		topPick = summarize(*view.TopPick)
	}

	payload, err := structpb.NewStruct(map[string]any{
		"request_id":   view.RequestID,
		"food_query":   view.FoodQuery,
		"location":     view.Location,
		"top_pick":     topPick,
		"restaurants":  restaurants,
		"warnings":     warnings,
		"completed_at": completedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("[Events] failed to build search-completed struct: %w", err)
	}

	data, err := proto.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("[Events] failed to marshal search-completed event: %w", err)
	}
	return data, nil
}

func DecodeSearchCompleted(data []byte) (SearchCompleted, error) {
	var payload structpb.Struct
	if err := proto.Unmarshal(data, &payload); err != nil {
		return SearchCompleted{}, fmt.Errorf("[Events] failed to unmarshal search-completed event: %w", err)
	}

	raw, err := protojson.Marshal(&payload)
	if err != nil {
		return SearchCompleted{}, fmt.Errorf("[Events] failed to render search-completed event: %w", err)
	}

	var event SearchCompleted
	if err := json.Unmarshal(raw, &event); err != nil {
		return SearchCompleted{}, fmt.Errorf("[Events] malformed search-completed event: %w", err)
	}
	if event.Restaurants == nil {
		event.Restaurants = []RestaurantSummary{}
	}
	if event.Warnings == nil {
		event.Warnings = []string{}
	}
	return event, nil
}

// MessagePublisher is the transport, satisfied by the Kafka producer.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type KafkaPublisher struct {
	producer MessagePublisher
	topic    string
	now      func() time.Time
}

func NewKafkaPublisher(producer MessagePublisher, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, now: time.Now}
}

// PublishSearchCompleted sends the view keyed by its request id.
func (p *KafkaPublisher) PublishSearchCompleted(ctx context.Context, view models.RankedView) error {
	payload, err := EncodeSearchCompleted(view, p.now())
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, p.topic, []byte(view.RequestID), payload, map[string]string{
		CONTENT_TYPE_HEADER: CONTENT_TYPE_PROTOBUF,
		EVENT_TYPE_HEADER:   EVENT_SEARCH_COMPLETE,
	})
}
