package cuisine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicTagger(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"THAI garden", "THAI"},
		{"joe's Pizza Place", "Pizza"},
		{"Joe's Pizza", "Pizza"},
		{"Mama Cass", "Mama"},
		{"the spot", ""},
		{"", ""},
		{"123 Bistro", "Bistro"},
		{"Jollof-Hut express", "Jollof-Hut"},
		{"BBQ-Shack", ""},
		{"McDonald's", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicTagger{}.Tag(context.Background(), tt.name))
		})
	}
}

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

func TestOpenAITagger(t *testing.T) {
	tests := []struct {
		label     string
		completer stubCompleter
		want      string
	}{
		{"model reply", stubCompleter{reply: " Italian.\n"}, "Italian"},
		{"two words", stubCompleter{reply: "West African"}, "West African"},
		{"unknown falls back", stubCompleter{reply: "unknown"}, "Pizza"},
		{"error falls back", stubCompleter{err: errors.New("rate limited")}, "Pizza"},
		{"rambling falls back", stubCompleter{reply: "This restaurant most likely serves pizza and pasta dishes"}, "Pizza"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			tagger := NewOpenAITagger(tt.completer)
			assert.Equal(t, tt.want, tagger.Tag(context.Background(), "joe's Pizza"))
		})
	}
}
