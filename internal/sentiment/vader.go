package sentiment

import (
	"context"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/platepick/internal/models"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// CleanText renders markdown to plain text, drops links and collapses
// whitespace.
func CleanText(input string) string {
	output := blackfriday.Run([]byte(RemoveLinks(input)), blackfriday.WithNoExtensions())
	plain := html.UnescapeString(tagPattern.ReplaceAllString(string(output), " "))
	return strings.Join(strings.Fields(plain), " ")
}

// VaderClassifier is a lexicon based fallback for when no model is available.
// It maps the VADER compound score onto the same star labels the review
// models produce.
type VaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderClassifier() *VaderClassifier {
	return &VaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderClassifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	if err := ctx.Err(); err != nil {
		return models.Classification{}, err
	}

	scores := v.analyzer.PolarityScores(text)
	return models.Classification{
		Label:      StarLabel(CompoundToStars(scores.Compound)),
		Confidence: math.Abs(scores.Compound),
	}, nil
}

// CompoundToStars maps a compound score in [-1, 1] onto 1..5.
func CompoundToStars(compound float64) int {
	stars := int(math.Round((compound+1)*2)) + 1
	return min(max(stars, 1), 5)
}
