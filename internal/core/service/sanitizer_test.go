package service

import (
	"testing"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {

	assert := assert.New(t)
	s := NewNameSanitizer(domain.DefaultVocabulary(), "switch")

	assert.Equal("Unit 7", s.Sanitize("Unit 7 Total Energy"))
	assert.Equal("Unit 7", s.Sanitize("  Unit 7 current "))
	assert.Equal("Kitchen Oven", s.Sanitize("Kitchen   Oven Switch"))
	assert.Equal("Garage", s.Sanitize("Garage TEMPERATURE"))
	assert.Equal("Power Room", s.Sanitize("Power Room"), "phrase must end the label")
	assert.Equal("Power", s.Sanitize("Power"), "empty result falls back to input")
}

func TestSanitizeConfiguredPhrases(t *testing.T) {

	assert := assert.New(t)
	vocab := domain.DefaultVocabulary().WithSuffixes(map[string]string{"current": "phase_a_current"})
	s := NewNameSanitizer(vocab, "switch")

	assert.Equal("Breaker 3", s.Sanitize("Breaker 3 Phase A Current"))
}

func TestSanitizeIdempotent(t *testing.T) {

	s := NewNameSanitizer(domain.DefaultVocabulary(), "switch")
	for _, label := range []string{
		"Unit 7 Total Energy",
		"Unit 7",
		"  Spaced    Label  ",
		"Office Voltage",
		"Voltage",
		"",
	} {
		once := s.Sanitize(label)
		assert.Equal(t, once, s.Sanitize(once), label)
	}
}
