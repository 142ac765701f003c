package models

type SearchRequest struct {
	RequestID string `json:"request_id,omitempty"`
	FoodQuery string `json:"food_query" validate:"required,max=200"`
	Location  string `json:"location" validate:"required,max=200"`
	Limit     int    `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// RankedView is the result of one search. Every slice is non-nil; TopPick is
// nil when no restaurant has a scored review.
type RankedView struct {
	RequestID   string       `json:"request_id"`
	FoodQuery   string       `json:"food_query"`
	Location    string       `json:"location"`
	Restaurants []Restaurant `json:"restaurants"`
	Reviewed    []Restaurant `json:"reviewed"`
	Unreviewed  []Restaurant `json:"unreviewed"`
	TopPick     *Restaurant  `json:"top_pick"`
	Podium      []Restaurant `json:"podium"`
	Gallery     []Restaurant `json:"gallery"`
	Warnings    []string     `json:"warnings"`
	Analysis    Analysis     `json:"analysis"`
}
