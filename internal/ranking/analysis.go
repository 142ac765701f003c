package ranking

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spacesedan/platepick/internal/models"
)

const (
	TopCuisines = 10
	TopTerms    = 20
	minTermLen  = 3

	// NoReviewsPlaceholder is what the place listing shows in place of tips.
	NoReviewsPlaceholder = "No reviews available"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "was": {}, "were": {}, "has": {}, "have": {}, "had": {}, "its": {},
	"this": {}, "that": {}, "with": {}, "they": {}, "them": {}, "their": {}, "there": {},
	"from": {}, "what": {}, "when": {}, "which": {}, "who": {}, "will": {}, "would": {},
	"our": {}, "out": {}, "get": {}, "got": {}, "very": {}, "just": {}, "also": {}, "too": {},
	"here": {}, "than": {}, "then": {}, "been": {}, "your": {}, "about": {}, "into": {},
	"one": {}, "only": {}, "more": {}, "some": {}, "such": {}, "each": {}, "did": {}, "does": {},
	"place": {},
}

// Analyze derives chart data from an assembled result set. Restaurants with
// an empty cuisine tag are left out of the popularity counts. Review figures
// come from the excerpts, skipping blanks and the no-reviews placeholder.
func Analyze(restaurants []models.Restaurant) models.Analysis {
	analysis := models.Analysis{
		CuisinePopularity: cuisinePopularity(restaurants),
		TopTerms:          []models.TermCount{},
		ReviewLengths:     []int{},
	}

	var reviews []string
	for _, r := range restaurants {
		if r.Rating.AverageScore > 0 {
			analysis.RatedCount++
		}
		for _, text := range r.Rating.Excerpts {
			if strings.TrimSpace(text) == "" || text == NoReviewsPlaceholder {
				continue
			}
			reviews = append(reviews, text)
			analysis.ReviewLengths = append(analysis.ReviewLengths, utf8.RuneCountInString(text))
		}
	}

	analysis.ReviewsAnalyzed = len(reviews)
	analysis.TopTerms = termFrequency(reviews, TopTerms)
	return analysis
}

// cuisinePopularity counts tags, most common first. Ties keep the order the
// tag was first seen in.
func cuisinePopularity(restaurants []models.Restaurant) []models.CuisineCount {
	counts := []models.CuisineCount{}
	index := map[string]int{}
	for _, r := range restaurants {
		if r.Cuisine == "" {
			continue
		}
		if i, ok := index[r.Cuisine]; ok {
			counts[i].Count++
			continue
		}
		index[r.Cuisine] = len(counts)
		counts = append(counts, models.CuisineCount{Cuisine: r.Cuisine, Count: 1})
	}

	slices.SortStableFunc(counts, func(a, b models.CuisineCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(counts) > TopCuisines {
		counts = counts[:TopCuisines]
	}
	return counts
}

func termFrequency(reviews []string, n int) []models.TermCount {
	terms := []models.TermCount{}
	index := map[string]int{}
	for _, review := range reviews {
		words := strings.FieldsFunc(strings.ToLower(review), func(r rune) bool {
			return !unicode.IsLetter(r) && r != '\''
		})
		for _, word := range words {
			word = strings.Trim(word, "'")
			if utf8.RuneCountInString(word) < minTermLen {
				continue
			}
			if _, skip := stopwords[word]; skip {
				continue
			}
			if i, ok := index[word]; ok {
				terms[i].Count++
				continue
			}
			index[word] = len(terms)
			terms = append(terms, models.TermCount{Term: word, Count: 1})
		}
	}

	slices.SortStableFunc(terms, func(a, b models.TermCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
