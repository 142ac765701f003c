package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/spacesedan/platepick/internal/models"
)

const (
	DefaultMaxChars = 512
	DefaultTimeout  = 10 * time.Second
)

// ErrScore matches every ScoreError via errors.Is.
var ErrScore = errors.New("sentiment: review could not be scored")

// errCallerGone marks a classify call cut short by the caller's context. The
// breaker does not count it against the classifier.
var errCallerGone = errors.New("caller gone")

type ScoreError struct {
	Reason string
	Err    error
}

func (e *ScoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sentiment: %s: %v", e.Reason, e.Err)
	}
	return "sentiment: " + e.Reason
}

func (e *ScoreError) Unwrap() error { return e.Err }

func (e *ScoreError) Is(target error) bool { return target == ErrScore }

// Classifier is an external text classification capability.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Classification, error)
}

// Scorer turns one review into a 1-5 star score.
type Scorer interface {
	Score(ctx context.Context, text string) (int, error)
}

// ClassifierScorer adapts a Classifier into a Scorer. Input is cleaned and
// truncated, never rejected for length. It does not retry.
type ClassifierScorer struct {
	classifier Classifier
	maxChars   int
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[models.Classification]
}

type ScorerOption func(*ClassifierScorer)

func WithMaxChars(n int) ScorerOption {
	return func(s *ClassifierScorer) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

func WithTimeout(d time.Duration) ScorerOption {
	return func(s *ClassifierScorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(settings gobreaker.Settings) ScorerOption {
	return func(s *ClassifierScorer) {
		s.breaker = gobreaker.NewCircuitBreaker[models.Classification](settings)
	}
}

func NewClassifierScorer(classifier Classifier, opts ...ScorerOption) *ClassifierScorer {
	s := &ClassifierScorer{
		classifier: classifier,
		maxChars:   DefaultMaxChars,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = gobreaker.NewCircuitBreaker[models.Classification](DefaultBreakerSettings("classifier"))
	}
	return s
}

// DefaultBreakerSettings opens after 5 consecutive classifier failures and
// probes again after 30 seconds. Calls abandoned by the caller don't count.
func DefaultBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("[Scorer] Circuit breaker changed state",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
}

func (s *ClassifierScorer) Score(ctx context.Context, text string) (int, error) {
	input := Truncate(CleanText(text), s.maxChars)
	if input == "" {
		return 0, &ScoreError{Reason: "empty input"}
	}

	if err := ctx.Err(); err != nil {
		return 0, &ScoreError{Reason: failureReason(err), Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.breaker.Execute(func() (models.Classification, error) {
		out, err := s.classifier.Classify(callCtx, input)
		if err != nil && ctx.Err() != nil {
			return out, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return out, err
	})
	if err != nil {
		return 0, &ScoreError{Reason: failureReason(err), Err: err}
	}

	return ParseStarLabel(out.Label)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit open"
	default:
		return "classifier error"
	}
}

// ParseStarLabel reads the leading integer of a label such as "4 stars".
func ParseStarLabel(label string) (int, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, &ScoreError{Reason: "malformed label"}
	}

	stars, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, &ScoreError{Reason: "malformed label", Err: err}
	}
	if stars < 1 || stars > 5 {
		return 0, &ScoreError{Reason: fmt.Sprintf("label out of range: %d", stars)}
	}
	return stars, nil
}

// StarLabel renders a star count the way the review models label it.
func StarLabel(stars int) string {
	if stars == 1 {
		return "1 star"
	}
	return strconv.Itoa(stars) + " stars"
}

// Truncate cuts text to at most maxChars runes.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
