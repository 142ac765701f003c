package sentiment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spacesedan/platepick/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	label string
	err   error
	block bool
	seen  []string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	f.seen = append(f.seen, text)
	if f.block {
		<-ctx.Done()
		return models.Classification{}, ctx.Err()
	}
	if f.err != nil {
		return models.Classification{}, f.err
	}
	return models.Classification{Label: f.label, Confidence: 0.9}, nil
}

func TestParseStarLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		want    int
		wantErr bool
	}{
		{name: "plural", label: "4 stars", want: 4},
		{name: "singular", label: "1 star", want: 1},
		{name: "bare number", label: "5", want: 5},
		{name: "padded", label: "  3 stars ", want: 3},
		{name: "empty", label: "", wantErr: true},
		{name: "non numeric", label: "POSITIVE", wantErr: true},
		{name: "zero", label: "0 stars", wantErr: true},
		{name: "too high", label: "6 stars", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStarLabel(tt.label)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrScore)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreTruncatesInsteadOfRejecting(t *testing.T) {
	classifier := &fakeClassifier{label: "4 stars"}
	scorer := NewClassifierScorer(classifier, WithMaxChars(10))

	score, err := scorer.Score(context.Background(), "abcdefghijklmnopqrstuvwxyz")
	require.NoError(t, err)
	assert.Equal(t, 4, score)
	require.Len(t, classifier.seen, 1)
	assert.Equal(t, "abcdefghij", classifier.seen[0])
}

func TestScoreClassifierFailure(t *testing.T) {
	scorer := NewClassifierScorer(&fakeClassifier{err: errors.New("unsupported language")})

	_, err := scorer.Score(context.Background(), "très bon")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScore)

	var scoreErr *ScoreError
	require.ErrorAs(t, err, &scoreErr)
	assert.Equal(t, "classifier error", scoreErr.Reason)
}

func TestScoreTimeout(t *testing.T) {
	scorer := NewClassifierScorer(&fakeClassifier{block: true}, WithTimeout(20*time.Millisecond))

	_, err := scorer.Score(context.Background(), "slow review")
	var scoreErr *ScoreError
	require.ErrorAs(t, err, &scoreErr)
	assert.Equal(t, "timeout", scoreErr.Reason)
}

func TestScoreMalformedLabel(t *testing.T) {
	scorer := NewClassifierScorer(&fakeClassifier{label: "LABEL_1"})

	_, err := scorer.Score(context.Background(), "fine")
	assert.ErrorIs(t, err, ErrScore)
}

func TestScoreEmptyInput(t *testing.T) {
	classifier := &fakeClassifier{label: "5 stars"}
	scorer := NewClassifierScorer(classifier)

	_, err := scorer.Score(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrScore)
	assert.Empty(t, classifier.seen)
}

func TestCleanText(t *testing.T) {
	got := CleanText("**great** food [menu](https://example.com/menu) see https://example.com")
	assert.Equal(t, "great food menu see", got)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, strings.Repeat("a", 512), Truncate(strings.Repeat("a", 600), DefaultMaxChars))
}

func TestCompoundToStars(t *testing.T) {
	tests := []struct {
		compound float64
		want     int
	}{
		{-1, 1},
		{-0.6, 2},
		{0, 3},
		{0.5, 4},
		{1, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompoundToStars(tt.compound), "compound %v", tt.compound)
	}
}

func TestVaderClassifierThroughScorer(t *testing.T) {
	scorer := NewClassifierScorer(NewVaderClassifier())

	good, err := scorer.Score(context.Background(), "The food was absolutely wonderful, I loved it!")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, good, 4)

	bad, err := scorer.Score(context.Background(), "Terrible, awful service and disgusting food.")
	require.NoError(t, err)
	assert.LessOrEqual(t, bad, 2)
}

// abandoningClassifier cancels the caller's context mid call while cancel is
// set, and answers normally otherwise.
type abandoningClassifier struct {
	cancel context.CancelFunc
	calls  int
}

func (a *abandoningClassifier) Classify(ctx context.Context, _ string) (models.Classification, error) {
	a.calls++
	if a.cancel != nil {
		a.cancel()
		<-ctx.Done()
		return models.Classification{}, ctx.Err()
	}
	return models.Classification{Label: "4 stars", Confidence: 0.8}, nil
}

func TestScoreAbandonedCallsDoNotOpenBreaker(t *testing.T) {
	classifier := &abandoningClassifier{}
	scorer := NewClassifierScorer(classifier)

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		classifier.cancel = cancel

		_, err := scorer.Score(ctx, "left before the answer")
		var scoreErr *ScoreError
		require.ErrorAs(t, err, &scoreErr)
		assert.Equal(t, "canceled", scoreErr.Reason)
		cancel()
	}

	classifier.cancel = nil
	score, err := scorer.Score(context.Background(), "still here")
	require.NoError(t, err)
	assert.Equal(t, 4, score)
}

func TestScoreSkipsClassifierWhenCallerAlreadyGone(t *testing.T) {
	classifier := &fakeClassifier{label: "5 stars"}
	scorer := NewClassifierScorer(classifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scorer.Score(ctx, "too late")
	assert.ErrorIs(t, err, ErrScore)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, classifier.seen)
}

func TestScoreClassifierFailuresStillOpenBreaker(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("model crashed")}
	scorer := NewClassifierScorer(classifier)

	for i := 0; i < 5; i++ {
		_, err := scorer.Score(context.Background(), "review")
		require.Error(t, err)
	}

	_, err := scorer.Score(context.Background(), "review")
	var scoreErr *ScoreError
	require.ErrorAs(t, err, &scoreErr)
	assert.Equal(t, "circuit open", scoreErr.Reason)
	assert.Len(t, classifier.seen, 5)
}
