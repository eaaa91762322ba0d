package service

import (
	"regexp"
	"strings"

	"github.com/berfenger/receiptpanel/internal/core/domain"
)

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// NameSanitizer strips trailing channel phrases from friendly labels.
type NameSanitizer struct {
	patterns []*regexp.Regexp
}

func NewNameSanitizer(vocabulary domain.Vocabulary, auxPhrases ...string) *NameSanitizer {
	s := &NameSanitizer{}
	for _, ch := range vocabulary {
		s.add(ch.Phrase)
	}
	for _, p := range auxPhrases {
		s.add(strings.ReplaceAll(p, "_", " "))
	}
	return s
}

func (s *NameSanitizer) add(phrase string) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return
	}
	s.patterns = append(s.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(phrase)+`$`))
}

// Sanitize applies every pattern once, in order. An empty result falls back to the trimmed input.
func (s *NameSanitizer) Sanitize(label string) string {
	trimmed := strings.TrimSpace(label)
	out := trimmed
	for _, p := range s.patterns {
		out = strings.TrimSpace(p.ReplaceAllString(out, ""))
	}
	out = whitespaceRun.ReplaceAllString(out, " ")
	if out == "" {
		return trimmed
	}
	return out
}
