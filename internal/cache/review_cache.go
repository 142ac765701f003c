package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/spacesedan/platepick/internal/clients"
	"github.com/spacesedan/platepick/internal/models"
)

const DEFAULT_REVIEW_TTL = 6 * time.Hour

type PlaceSource interface {
	Search(ctx context.Context, query, location string, limit int) ([]models.PlaceRecord, error)
	Reviews(ctx context.Context, placeID string) ([]string, error)
	Photo(ctx context.Context, placeID string) (string, error)
}

// KV is the string store behind the cache, satisfied by clients.ValkeyClient.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
}

// ReviewCache serves review fetches from the KV store and falls through to
// the wrapped source on a miss or any cache error. Failed fetches are never
// stored.
type ReviewCache struct {
	PlaceSource
	kv  KV
	ttl time.Duration
}

func NewReviewCache(source PlaceSource, kv KV, ttl time.Duration) *ReviewCache {
	if ttl <= 0 {
		ttl = DEFAULT_REVIEW_TTL
	}
	return &ReviewCache{PlaceSource: source, kv: kv, ttl: ttl}
}

func reviewKey(placeID string) string {
	return clients.VALKEY_REVIEW_KEY_PREFIX + placeID
}

func (c *ReviewCache) Reviews(ctx context.Context, placeID string) ([]string, error) {
	key := reviewKey(placeID)

	if raw, ok, err := c.kv.Get(ctx, key); err != nil {
		slog.Warn("[ReviewCache] Cache read failed, falling through",
			slog.String("place_id", placeID),
			slog.String("error", err.Error()))
	} else if ok {
		var reviews []string
		if err := json.Unmarshal([]byte(raw), &reviews); err == nil {
			slog.Debug("[ReviewCache] Cache hit", slog.String("place_id", placeID))
			return reviews, nil
		}
		slog.Warn("[ReviewCache] Ignoring malformed cache entry", slog.String("place_id", placeID))
	}

	reviews, err := c.PlaceSource.Reviews(ctx, placeID)
	if err != nil {
		return nil, err
	}

	if reviews == nil {
		reviews = []string{}
	}
	encoded, err := json.Marshal(reviews)
	if err == nil {
		err = c.kv.SetEx(ctx, key, string(encoded), c.ttl)
	}
	if err != nil {
		slog.Warn("[ReviewCache] Cache write failed",
			slog.String("place_id", placeID),
			slog.String("error", err.Error()))
	}
	return reviews, nil
}
