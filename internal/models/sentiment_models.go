package models

// Classification is the raw output of a text classifier. Label encodes a
// 1-5 star value as its leading token, e.g. "4 stars".
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"score"`
}

// Hugging Face inference API payloads
type (
	ClassificationRequest struct {
		Inputs string `json:"inputs"`
	}
	ClassificationResponse [][]Classification
)

// Best returns the highest scoring label of the first input.
func (r ClassificationResponse) Best() (Classification, bool) {
	if len(r) == 0 || len(r[0]) == 0 {
		return Classification{}, false
	}
	best := r[0][0]
	for _, c := range r[0][1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}
