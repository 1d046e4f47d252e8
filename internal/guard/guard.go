// Package guard validates and neutralizes free-text user input before it is
// sent to an external AI provider. The injection denylist is best-effort
// input hygiene, not a security boundary.
package guard

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidInput = errors.New("input is empty or too short")
	ErrTooLong      = errors.New("input exceeds maximum length")
)

// RedactionMarker replaces detected prompt-injection phrases in place.
const RedactionMarker = "[redacted]"

const (
	maxSentenceLen = 500
	minSentenceLen = 3
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Known prompt-injection phrasings. Matches are redacted and logged, never
// rejected: the cleaned text is still forwarded.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(previous|above|all)\s+instructions`),
	regexp.MustCompile(`(?i)system\s+prompt`),
	regexp.MustCompile(`(?i)you\s+are\s+(now|actually)`),
	regexp.MustCompile(`(?i)forget\s+(everything|all|previous)`),
	regexp.MustCompile(`(?i)new\s+instructions\s*:`),
	regexp.MustCompile(`(?i)role\s*:\s*system`),
	regexp.MustCompile(`(?i)\[\s*system\s*\]`),
	regexp.MustCompile(`(?i)assistant\s+mode`),
}

// Sanitize trims the input, collapses whitespace runs, redacts injection
// phrases and enforces length bounds. Lengths are measured in runes, matching
// what the user sees as characters.
func Sanitize(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidInput
	}

	clean := strings.TrimSpace(raw)
	clean = whitespaceRun.ReplaceAllString(clean, " ")

	for _, pattern := range injectionPatterns {
		if pattern.MatchString(clean) {
			log.WithField("pattern", pattern.String()).Warn("guard: injection phrase redacted")
			clean = pattern.ReplaceAllString(clean, RedactionMarker)
		}
	}

	if utf8.RuneCountInString(clean) > maxSentenceLen {
		return "", ErrTooLong
	}
	if utf8.RuneCountInString(clean) < minSentenceLen {
		return "", ErrInvalidInput
	}

	return clean, nil
}

// LooksLikeSentence reports whether text plausibly contains natural-language
// writing: at least one letter (the accented Latin set included) and fewer
// than 30% symbol characters. Letters, spaces, apostrophes and hyphens are
// not counted as symbols. This is a gibberish filter, not a grammar check.
func LooksLikeSentence(text string) bool {
	var letters, symbols, total int
	for _, r := range text {
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r), r == '\'', r == '’', r == '-':
			// neutral
		default:
			symbols++
		}
	}
	if letters == 0 {
		return false
	}
	return float64(symbols)/float64(total) < 0.3
}
