package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary avoids short words that would collide inside common ones.
func TestModerator_Censor(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"troll", "spam", "noob"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "you are a troll",
			expected: "you are a *****",
			words:    []string{"troll"},
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "T.r.0.l.l here",
			expected: "********* here",
			words:    []string{"troll"},
		},
		{
			name:     "Uppercase and dashes",
			input:    "S-P-A-M is bad",
			expected: "******* is bad",
			words:    []string{"spam"},
		},
		{
			name:     "Accents and special characters",
			input:    "Un été sans spam",
			expected: "Un été sans ****",
			words:    []string{"spam"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "No spam!",
			expected: "No ****!",
			words:    []string{"spam"},
		},
		{
			name:     "Nothing to censor",
			input:    "Nothing to report here",
			expected: "Nothing to report here",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given real noise and no leet speak
	dictionary := []string{"...", ",,,", "", "troll"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	// Then the sentence is censored
	content, words := mod.Censor("The troll is here")
	req.Equal("The ***** is here", content)
	req.Equal([]string{"troll"}, words)

	// Then real noise is left alone
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestModerator_Without_Words_Lets_Everything_Through(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, replacementChar, slog.Default())
	req.NoError(err)

	content, words := mod.Censor("anything goes")
	req.Equal("anything goes", content)
	req.Nil(words)
}
