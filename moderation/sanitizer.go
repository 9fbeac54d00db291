package moderation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from user supplied fields.
// Text bodies additionally go through the moderator when one is configured.
type Sanitizer struct {
	policy    *bluemonday.Policy
	moderator *Moderator
}

func NewSanitizer(moderator *Moderator) *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy(), moderator: moderator}
}

// Clean removes every tag and trims surrounding whitespace.
// The policy escapes the text it keeps, so entities are decoded back to plain characters.
func (s *Sanitizer) Clean(input string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}

// CleanText is Clean followed by censoring.
func (s *Sanitizer) CleanText(input string) string {
	cleaned := s.Clean(input)
	if s.moderator == nil {
		return cleaned
	}
	censored, _ := s.moderator.Censor(cleaned)
	return censored
}
