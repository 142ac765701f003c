package models

type CuisineCount struct {
	Cuisine string `json:"cuisine"`
	Count   int    `json:"count"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Analysis summarises a result set for charts: cuisine popularity, how many
// restaurants carry a rating, and what the review excerpts talk about.
type Analysis struct {
	CuisinePopularity []CuisineCount `json:"cuisine_popularity"`
	RatedCount        int            `json:"rated_count"`
	ReviewsAnalyzed   int            `json:"reviews_analyzed"`
	TopTerms          []TermCount    `json:"top_terms"`
	ReviewLengths     []int          `json:"review_lengths"`
}
