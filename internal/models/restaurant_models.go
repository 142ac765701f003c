package models

// ReviewStatus records why a restaurant ended up with the reviews it has.
// Ranking treats every status the same; it exists for logs and metrics.
type ReviewStatus string

const (
	ReviewStatusOK          ReviewStatus = "ok"
	ReviewStatusNone        ReviewStatus = "none"
	ReviewStatusFetchFailed ReviewStatus = "fetch_failed"
	ReviewStatusTimeout     ReviewStatus = "timeout"
)

// Review is a single free-text comment and its star score. Score is nil when
// the classifier could not score the text.
type Review struct {
	Text  string `json:"text"`
	Score *int   `json:"score,omitempty"`
}

type RatingAggregate struct {
	AverageScore float64  `json:"average_score"`
	ReviewCount  int      `json:"review_count"`
	Excerpts     []string `json:"excerpts"`
}

type Restaurant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	MapLink      string          `json:"map_link"`
	ImageURL     string          `json:"image_url"`
	Cuisine      string          `json:"cuisine,omitempty"`
	Rating       RatingAggregate `json:"rating"`
	HasReviews   bool            `json:"has_reviews"`
	ReviewStatus ReviewStatus    `json:"review_status"`
}
