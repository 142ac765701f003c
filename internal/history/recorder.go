package history

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spacesedan/platepick/internal/models"
)

// Outcomes reported to the observer hook.
const (
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeWritten   = "written"
	OutcomeError     = "error"
)

type Recorder struct {
	store   Store
	locker  Locker
	observe func(outcome string)
}

type RecorderOption func(*Recorder)

func WithLocker(l Locker) RecorderOption {
	return func(r *Recorder) { r.locker = l }
}

func WithObserver(fn func(outcome string)) RecorderOption {
	return func(r *Recorder) { r.observe = fn }
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, locker: NewLocalLocker()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordTopPick stores pick under its dedup key unless a record already
// exists. Empty queries are skipped without error. The duplicate check is
// best effort: the per-key lock narrows the race between concurrent identical
// searches, and stores that support it reject the losing write.
func (r *Recorder) RecordTopPick(ctx context.Context, pick models.Restaurant, foodQuery, location string) error {
	if foodQuery == "" || location == "" {
		r.report(OutcomeSkipped)
		return nil
	}

	key := models.DedupKey{RestaurantName: pick.Name, FoodQuery: foodQuery, Location: location}
	hash := DedupHash(key)

	unlock, err := r.locker.Lock(ctx, hash)
	if err != nil {
		slog.Warn("[HistoryRecorder] Could not lock dedup key, continuing without it",
			slog.String("restaurant", pick.Name),
			slog.String("error", err.Error()))
	} else {
		defer unlock()
	}

	existing, err := r.store.FindByKey(ctx, key)
	if err != nil {
		r.report(OutcomeError)
		return &PersistError{Op: "find", Err: err}
	}
	if len(existing) > 0 {
		slog.Debug("[HistoryRecorder] Top pick already recorded", slog.String("restaurant", pick.Name))
		r.report(OutcomeDuplicate)
		return nil
	}

	rec := models.HistoryRecord{
		ID:             uuid.NewString(),
		DedupHash:      hash,
		RestaurantName: pick.Name,
		Rating:         pick.Rating.AverageScore,
		Address:        pick.Address,
		MapLink:        pick.MapLink,
		FoodQuery:      foodQuery,
		Location:       location,
	}

	stored, err := r.store.Append(ctx, rec)
	if errors.Is(err, ErrDuplicate) {
		r.report(OutcomeDuplicate)
		return nil
	}
	if err != nil {
		r.report(OutcomeError)
		return &PersistError{Op: "append", Err: err}
	}

	slog.Info("[HistoryRecorder] Recorded top pick",
		slog.String("restaurant", stored.RestaurantName),
		slog.String("food_query", foodQuery),
		slog.String("location", location))
	r.report(OutcomeWritten)
	return nil
}

func (r *Recorder) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	records, err := r.store.List(ctx, limit)
	if err != nil {
		return nil, &PersistError{Op: "list", Err: err}
	}
	return records, nil
}

func (r *Recorder) report(outcome string) {
	if r.observe != nil {
		r.observe(outcome)
	}
}
