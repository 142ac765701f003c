// Package rating combines the scored reviews of one restaurant into a single
// RatingAggregate.
package rating

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/spacesedan/platepick/internal/models"
	"github.com/spacesedan/platepick/internal/sentiment"
)

// MaxExcerpts is how many review texts are kept for display.
const MaxExcerpts = 2

type Aggregator struct {
	scorer   sentiment.Scorer
	onFailed func(err error)
}

type Option func(*Aggregator)

// WithFailureHook is called once for every review the scorer rejects.
func WithFailureHook(fn func(err error)) Option {
	return func(a *Aggregator) { a.onFailed = fn }
}

func NewAggregator(scorer sentiment.Scorer, opts ...Option) *Aggregator {
	a := &Aggregator{scorer: scorer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate scores every review and summarises the result. A review that
// fails to score is dropped from the average and the count, but may still be
// an excerpt. Scoring stops once ctx is done.
func (a *Aggregator) Aggregate(ctx context.Context, texts []string) models.RatingAggregate {
	reviews := make([]models.Review, 0, len(texts))
	for _, text := range texts {
		if ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		review := models.Review{Text: text}
		score, err := a.scorer.Score(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Debug("[Aggregator] Review dropped from rating", slog.String("error", err.Error()))
			if a.onFailed != nil {
				a.onFailed(err)
			}
		} else {
			review.Score = &score
		}
		reviews = append(reviews, review)
	}

	return Summarize(reviews)
}

// Summarize is the pure half of Aggregate.
func Summarize(reviews []models.Review) models.RatingAggregate {
	excerpts := make([]string, 0, MaxExcerpts)
	sum, count := 0, 0

	for _, review := range reviews {
		if len(excerpts) < MaxExcerpts {
			excerpts = append(excerpts, review.Text)
		}
		if review.Score != nil {
			sum += *review.Score
			count++
		}
	}

	agg := models.RatingAggregate{Excerpts: excerpts}
	if count == 0 {
		return agg
	}

	agg.ReviewCount = count
	agg.AverageScore = Round2(float64(sum) / float64(count))
	agg.AverageScore = math.Min(math.Max(agg.AverageScore, 0), 5)
	return agg
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
