// Package pipeline drives one search end to end: place lookup, per
// restaurant review fetching and scoring on a fixed worker pool, ranking,
// and recording the top pick.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/platepick/internal/cuisine"
	"github.com/spacesedan/platepick/internal/history"
	"github.com/spacesedan/platepick/internal/models"
	"github.com/spacesedan/platepick/internal/ranking"
	"github.com/spacesedan/platepick/internal/restaurant"
)

const (
	DEFAULT_WORKERS           = 4
	DEFAULT_SEARCH_LIMIT      = 10
	DEFAULT_REVIEWS_PER_PLACE = 5
	DEFAULT_FETCH_TIMEOUT     = 5 * time.Second
)

// Outcomes passed to the search hook.
const (
	SearchOK        = "ok"
	SearchEmpty     = "empty"
	SearchFailed    = "place_search_failed"
	SearchAbandoned = "abandoned"
)

type PlaceSource interface {
	Search(ctx context.Context, query, location string, limit int) ([]models.PlaceRecord, error)
	Reviews(ctx context.Context, placeID string) ([]string, error)
	Photo(ctx context.Context, placeID string) (string, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, texts []string) models.RatingAggregate
}

type Recorder interface {
	RecordTopPick(ctx context.Context, pick models.Restaurant, foodQuery, location string) error
}

type Publisher interface {
	PublishSearchCompleted(ctx context.Context, view models.RankedView) error
}

type Options struct {
	Workers         int
	SearchLimit     int
	ReviewsPerPlace int
	FetchTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DEFAULT_WORKERS
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = DEFAULT_SEARCH_LIMIT
	}
	if o.ReviewsPerPlace <= 0 {
		o.ReviewsPerPlace = DEFAULT_REVIEWS_PER_PLACE
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DEFAULT_FETCH_TIMEOUT
	}
	return o
}

type Orchestrator struct {
	places     PlaceSource
	aggregator Aggregator
	recorder   Recorder
	tagger     cuisine.Tagger
	publisher  Publisher
	opts       Options

	onDegraded func(reason string)
	onSearch   func(elapsed time.Duration, outcome string)
}

type OrchestratorOption func(*Orchestrator)

func WithTagger(t cuisine.Tagger) OrchestratorOption {
	return func(o *Orchestrator) { o.tagger = t }
}

func WithPublisher(p Publisher) OrchestratorOption {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithDegradedHook is told the reason each time a restaurant loses its
// reviews or image to an upstream failure.
func WithDegradedHook(fn func(reason string)) OrchestratorOption {
	return func(o *Orchestrator) { o.onDegraded = fn }
}

func WithSearchHook(fn func(elapsed time.Duration, outcome string)) OrchestratorOption {
	return func(o *Orchestrator) { o.onSearch = fn }
}

func NewOrchestrator(places PlaceSource, aggregator Aggregator, recorder Recorder, opts Options, options ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		places:     places,
		aggregator: aggregator,
		recorder:   recorder,
		tagger:     cuisine.HeuristicTagger{},
		opts:       opts.withDefaults(),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// RunSearch returns the ranked view for one request. Upstream and scoring
// failures are absorbed into the view. The returned error is non-nil only
// when ctx ended before the search finished, in which case no history is
// written, or when recording the top pick failed, in which case the error is
// a *history.PersistError and the view is still complete.
func (o *Orchestrator) RunSearch(ctx context.Context, req models.SearchRequest) (models.RankedView, error) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	limit := req.Limit
	if limit <= 0 {
		limit = o.opts.SearchLimit
	}

	logger := slog.With(
		slog.String("request_id", req.RequestID),
		slog.String("food_query", req.FoodQuery),
		slog.String("location", req.Location))
	logger.Info("[Orchestrator] Starting search", slog.Int("limit", limit))

	searchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	places, err := o.places.Search(searchCtx, req.FoodQuery, req.Location, limit)
	cancel()

	if ctx.Err() != nil {
		o.observeSearch(start, SearchAbandoned)
		return o.emptyView(req), ctx.Err()
	}
	if err != nil {
		logger.Error("[Orchestrator] Place search failed", slog.String("error", err.Error()))
		view := o.emptyView(req)
		view.Warnings = append(view.Warnings, "place search unavailable")
		o.publish(ctx, view)
		o.observeSearch(start, SearchFailed)
		return view, nil
	}
	if len(places) == 0 {
		logger.Info("[Orchestrator] No places found")
		view := o.emptyView(req)
		o.publish(ctx, view)
		o.observeSearch(start, SearchEmpty)
		return view, nil
	}

	restaurants := o.buildAll(ctx, places)
	if ctx.Err() != nil {
		logger.Warn("[Orchestrator] Search abandoned, skipping history")
		o.observeSearch(start, SearchAbandoned)
		return o.emptyView(req), ctx.Err()
	}

	view := ranking.Rank(restaurants)
	view.RequestID, view.FoodQuery, view.Location = req.RequestID, req.FoodQuery, req.Location
	view.Warnings = append(view.Warnings, degradationWarnings(restaurants)...)

	var advisory error
	if view.TopPick != nil {
		if err := o.recorder.RecordTopPick(ctx, *view.TopPick, req.FoodQuery, req.Location); err != nil {
			if ctx.Err() != nil {
				o.observeSearch(start, SearchAbandoned)
				return view, ctx.Err()
			}
			logger.Warn("[Orchestrator] Failed to record top pick", slog.String("error", err.Error()))
			view.Warnings = append(view.Warnings, "search history unavailable")
			var persistErr *history.PersistError
			if !errors.As(err, &persistErr) {
				err = &history.PersistError{Op: "record", Err: err}
			}
			advisory = err
		}
	}

	o.publish(ctx, view)
	o.observeSearch(start, SearchOK)
	logger.Info("[Orchestrator] Search complete",
		slog.Int("restaurants", len(view.Restaurants)),
		slog.Int("reviewed", len(view.Reviewed)),
		slog.Duration("elapsed", time.Since(start)))
	return view, advisory
}

// buildAll processes places on a fixed pool of workers and returns the
// restaurants in the order the place search returned them.
func (o *Orchestrator) buildAll(ctx context.Context, places []models.PlaceRecord) []models.Restaurant {
	results := make([]models.Restaurant, len(places))
	jobs := make(chan int)

	workers := min(o.opts.Workers, len(places))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.buildRestaurant(ctx, places[i])
			}
		}()
	}

feed:
	for i := range places {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

func (o *Orchestrator) buildRestaurant(ctx context.Context, place models.PlaceRecord) models.Restaurant {
	logger := slog.With(slog.String("place_id", place.ID), slog.String("restaurant", place.Name))

	texts, status := o.fetchReviews(ctx, place.ID)
	if status != "" && ctx.Err() == nil {
		logger.Warn("[Orchestrator] Restaurant degraded to zero reviews",
			slog.String("review_status", string(status)))
		o.degraded(string(status))
	}
	if len(texts) > o.opts.ReviewsPerPlace {
		texts = texts[:o.opts.ReviewsPerPlace]
	}

	agg := o.aggregator.Aggregate(ctx, texts)
	if status == "" && agg.ReviewCount == 0 {
		logger.Debug("[Orchestrator] Restaurant has no scored reviews",
			slog.String("review_status", string(models.ReviewStatusNone)),
			slog.Int("fetched", len(texts)))
	}

	if place.PhotoURL == nil {
		if url := o.fetchPhoto(ctx, place.ID, logger); url != "" {
			place.PhotoURL = &url
		}
	}

	r := restaurant.Assemble(place, agg, status)
	r.Cuisine = o.tagger.Tag(ctx, r.Name)
	return r
}

// fetchReviews returns a non-empty status only when the fetch failed.
func (o *Orchestrator) fetchReviews(ctx context.Context, placeID string) ([]string, models.ReviewStatus) {
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	texts, err := o.places.Reviews(fetchCtx, placeID)
	if err == nil {
		return texts, ""
	}
	if ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		return nil, models.ReviewStatusTimeout
	}
	return nil, models.ReviewStatusFetchFailed
}

func (o *Orchestrator) fetchPhoto(ctx context.Context, placeID string, logger *slog.Logger) string {
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	url, err := o.places.Photo(fetchCtx, placeID)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("[Orchestrator] Photo unavailable", slog.String("error", err.Error()))
			o.degraded("photo_unavailable")
		}
		return ""
	}
	return url
}

func (o *Orchestrator) publish(ctx context.Context, view models.RankedView) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishSearchCompleted(ctx, view); err != nil {
		slog.Warn("[Orchestrator] Failed to publish search result",
			slog.String("request_id", view.RequestID),
			slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) emptyView(req models.SearchRequest) models.RankedView {
	view := ranking.Rank(nil)
	view.RequestID, view.FoodQuery, view.Location = req.RequestID, req.FoodQuery, req.Location
	return view
}

func (o *Orchestrator) degraded(reason string) {
	if o.onDegraded != nil {
		o.onDegraded(reason)
	}
}

func (o *Orchestrator) observeSearch(start time.Time, outcome string) {
	if o.onSearch != nil {
		o.onSearch(time.Since(start), outcome)
	}
}

func degradationWarnings(restaurants []models.Restaurant) []string {
	var failed []string
	for _, r := range restaurants {
		if r.ReviewStatus == models.ReviewStatusFetchFailed || r.ReviewStatus == models.ReviewStatusTimeout {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("reviews unavailable for %d restaurant(s): %s", len(failed), strings.Join(failed, ", "))}
}
