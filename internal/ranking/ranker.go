// Package ranking orders assembled restaurants and extracts the top-N views.
// Every function is total over its input and never mutates it.
package ranking

import (
	"cmp"
	"slices"

	"github.com/spacesedan/platepick/internal/models"
)

const PodiumSize = 3

// ByRatingDescending sorts by average score, highest first. Equal scores keep
// their input order.
func ByRatingDescending(restaurants []models.Restaurant) []models.Restaurant {
	ranked := clone(restaurants)
	slices.SortStableFunc(ranked, func(a, b models.Restaurant) int {
		return cmp.Compare(b.Rating.AverageScore, a.Rating.AverageScore)
	})
	return ranked
}

func ReviewedOnly(restaurants []models.Restaurant) []models.Restaurant {
	return filter(restaurants, func(r models.Restaurant) bool { return r.HasReviews })
}

func UnreviewedOnly(restaurants []models.Restaurant) []models.Restaurant {
	return filter(restaurants, func(r models.Restaurant) bool { return !r.HasReviews })
}

// TopN returns the first n entries of the reviewed, ranked view. It returns
// fewer when there are not enough.
func TopN(restaurants []models.Restaurant, n int) []models.Restaurant {
	ranked := ByRatingDescending(ReviewedOnly(restaurants))
	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopPick is the highest rated reviewed restaurant, first seen on ties.
// The bool is false when nothing is reviewed.
func TopPick(restaurants []models.Restaurant) (models.Restaurant, bool) {
	top := TopN(restaurants, 1)
	if len(top) == 0 {
		return models.Restaurant{}, false
	}
	return top[0], true
}

func GalleryCandidates(restaurants []models.Restaurant) []models.Restaurant {
	withImages := filter(ReviewedOnly(restaurants), func(r models.Restaurant) bool { return r.ImageURL != "" })
	return ByRatingDescending(withImages)
}

// Rank builds the full view for one search.
func Rank(restaurants []models.Restaurant) models.RankedView {
	ranked := ByRatingDescending(restaurants)

	view := models.RankedView{
		Restaurants: ranked,
		Reviewed:    ReviewedOnly(ranked),
		Unreviewed:  UnreviewedOnly(ranked),
		Podium:      TopN(restaurants, PodiumSize),
		Gallery:     GalleryCandidates(restaurants),
		Warnings:    []string{},
		Analysis:    Analyze(ranked),
	}
	if pick, ok := TopPick(restaurants); ok {
		view.TopPick = &pick
	}
	return view
}

func filter(restaurants []models.Restaurant, keep func(models.Restaurant) bool) []models.Restaurant {
	out := make([]models.Restaurant, 0, len(restaurants))
	for _, r := range restaurants {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func clone(restaurants []models.Restaurant) []models.Restaurant {
	out := make([]models.Restaurant, len(restaurants))
	copy(out, restaurants)
	return out
}
