package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/spacesedan/platepick/internal/models"
)

// MemoryStore keeps history in process. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.HistoryRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) FindByKey(ctx context.Context, key models.DedupKey) ([]models.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []models.HistoryRecord
	for _, rec := range s.records {
		if rec.Key() == key {
			found = append(found, rec)
		}
	}
	return found, nil
}

func (s *MemoryStore) Append(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.HistoryRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.Key() == rec.Key() {
			return models.HistoryRecord{}, ErrDuplicate
		}
	}

	rec.Timestamp = s.now().UTC()
	s.records = append(s.records, rec)
	return rec, nil
}

// List returns newest first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := slices.Clone(s.records)
	s.mu.RUnlock()

	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b models.HistoryRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []models.HistoryRecord{}
	}
	return out, nil
}
