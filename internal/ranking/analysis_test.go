package ranking

import (
	"fmt"
	"testing"

	"github.com/spacesedan/platepick/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagged(name, cuisine string, avg float64, excerpts ...string) models.Restaurant {
	r := rest(name, avg, len(excerpts), "")
	r.Cuisine = cuisine
	if excerpts != nil {
		r.Rating.Excerpts = excerpts
	}
	return r
}

func TestAnalyzeCuisinePopularity(t *testing.T) {
	tests := []struct {
		name     string
		input    []models.Restaurant
		expected []models.CuisineCount
	}{
		{
			name:     "empty input",
			input:    nil,
			expected: []models.CuisineCount{},
		},
		{
			name: "most common first, ties in first seen order",
			input: []models.Restaurant{
				tagged("Jollof Hut", "Jollof", 0),
				tagged("Suya Spot", "Suya", 0),
				tagged("Jollof Palace", "Jollof", 0),
				tagged("Pizza Co", "Pizza", 0),
			},
			expected: []models.CuisineCount{{Cuisine: "Jollof", Count: 2}, {Cuisine: "Suya", Count: 1}, {Cuisine: "Pizza", Count: 1}},
		},
		{
			name:     "untagged restaurants are not counted",
			input:    []models.Restaurant{tagged("joe's", "", 0), tagged("BBQ Shack", "BBQ", 0)},
			expected: []models.CuisineCount{{Cuisine: "BBQ", Count: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Analyze(tt.input).CuisinePopularity)
		})
	}
}

func TestAnalyzeCuisinePopularityKeepsTopTen(t *testing.T) {
	var input []models.Restaurant
	for i := 0; i < 12; i++ {
		input = append(input, tagged(fmt.Sprintf("R%d", i), fmt.Sprintf("C%d", i), 0))
	}
	input = append(input, tagged("R12", "C11", 0))

	got := Analyze(input).CuisinePopularity
	require.Len(t, got, TopCuisines)
	assert.Equal(t, models.CuisineCount{Cuisine: "C11", Count: 2}, got[0])
	assert.Equal(t, "C0", got[1].Cuisine)
}

func TestAnalyzeRatedCount(t *testing.T) {
	input := []models.Restaurant{
		tagged("A", "", 4.5, "good"),
		tagged("B", "", 0),
		tagged("C", "", 1.0, "meh"),
	}
	assert.Equal(t, 2, Analyze(input).RatedCount)
}

func TestAnalyzeReviewInsights(t *testing.T) {
	input := []models.Restaurant{
		tagged("A", "", 5, "Great jollof, great suya!", "   "),
		tagged("B", "", 0, NoReviewsPlaceholder),
		tagged("C", "", 4, "Jollof was smoky and the suya was great"),
	}

	got := Analyze(input)
	assert.Equal(t, 2, got.ReviewsAnalyzed)
	assert.Equal(t, []int{25, 39}, got.ReviewLengths)
	require.GreaterOrEqual(t, len(got.TopTerms), 3)
	assert.Equal(t, []models.TermCount{
		{Term: "great", Count: 3},
		{Term: "jollof", Count: 2},
		{Term: "suya", Count: 2},
	}, got.TopTerms[:3])
	for _, term := range got.TopTerms {
		assert.NotEqual(t, "the", term.Term)
		assert.NotEqual(t, "was", term.Term)
	}
}

func TestAnalyzeNoReviews(t *testing.T) {
	got := Analyze([]models.Restaurant{tagged("A", "", 0, NoReviewsPlaceholder)})
	assert.Zero(t, got.ReviewsAnalyzed)
	assert.NotNil(t, got.TopTerms)
	assert.NotNil(t, got.ReviewLengths)
	assert.Empty(t, got.TopTerms)
}

func TestRankIncludesAnalysis(t *testing.T) {
	view := Rank([]models.Restaurant{tagged("Suya Spot", "Suya", 4, "smoky suya")})
	assert.Equal(t, []models.CuisineCount{{Cuisine: "Suya", Count: 1}}, view.Analysis.CuisinePopularity)
	assert.Equal(t, 1, view.Analysis.RatedCount)
}
