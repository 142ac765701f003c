// Package cuisine labels restaurants with a best-effort cuisine tag. Tags are
// informational and never affect ranking.
package cuisine

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

type Tagger interface {
	Tag(ctx context.Context, restaurantName string) string
}

// HeuristicTagger picks the first word of the name that is all upper-case or
// title-case, e.g. "THAI" from "THAI garden" or "Pizza" from "joe's Pizza".
type HeuristicTagger struct{}

func (HeuristicTagger) Tag(_ context.Context, name string) string {
	for _, word := range strings.Fields(name) {
		if isUpperWord(word) || isTitleWord(word) {
			return word
		}
	}
	return ""
}

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}

func isUpperWord(word string) bool {
	hasCased := false
	for _, r := range word {
		if unicode.IsLower(r) {
			return false
		}
		if isCased(r) {
			hasCased = true
		}
	}
	return hasCased
}

// isTitleWord: upper-case letters only follow uncased characters and
// lower-case letters only follow cased ones. "Joe's" is not title-case.
func isTitleWord(word string) bool {
	hasCased, prevCased := false, false
	for _, r := range word {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased, hasCased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, hasCased = true, true
		default:
			prevCased = false
		}
	}
	return hasCased
}

// Completer is a one-shot chat completion, satisfied by clients.OpenAIClient.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	openAITagTimeout = 3 * time.Second
	maxTagLength     = 32
	tagSystemPrompt  = "You label restaurants with their cuisine. Reply with the cuisine in one or two words, " +
		"for example \"Italian\" or \"West African\". Reply \"unknown\" if the name gives no hint."
)

// OpenAITagger asks a chat model for the cuisine and falls back to the
// heuristic on any failure or an unusable reply.
type OpenAITagger struct {
	completer Completer
	fallback  Tagger
	timeout   time.Duration
}

func NewOpenAITagger(completer Completer) *OpenAITagger {
	return &OpenAITagger{completer: completer, fallback: HeuristicTagger{}, timeout: openAITagTimeout}
}

func (t *OpenAITagger) Tag(ctx context.Context, name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	reply, err := t.completer.Complete(ctx, tagSystemPrompt, "Restaurant name: "+name)
	if err != nil {
		slog.Debug("[CuisineTagger] Model tagging failed, using heuristic",
			slog.String("restaurant", name),
			slog.String("error", err.Error()))
		return t.fallback.Tag(ctx, name)
	}

	tag := strings.TrimFunc(reply, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if tag == "" || strings.EqualFold(tag, "unknown") || len(tag) > maxTagLength || strings.ContainsRune(tag, '\n') {
		return t.fallback.Tag(ctx, name)
	}
	return tag
}
