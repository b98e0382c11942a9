package logging

import (
	"regexp"
)

// Sanitizer redacts credentials from log output.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Anthropic
		`sk-ant-[A-Za-z0-9_-]{20,}`,
		// Google AI
		`AIza[A-Za-z0-9_-]{35}`,
		// Provider auth headers echoed in transport errors
		`(?i)x-api-key["'\s:=]+[A-Za-z0-9._-]{16,}`,
		`(?i)x-goog-api-key["'\s:=]+[A-Za-z0-9._-]{16,}`,
		// Generic Bearer tokens
		`(?i)bearer\s+[A-Za-z0-9._-]{20,}`,
		// Generic API keys
		`(?i)api[_-]?key["'\s:=]+[A-Za-z0-9_-]{20,}`,
		// Query-string keys
		`(?i)[?&]key=[A-Za-z0-9_-]{20,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

// AddSecret redacts the exact value, e.g. the configured API key, whatever
// its shape.
func (s *Sanitizer) AddSecret(secret string) {
	if len(secret) < 8 {
		return
	}
	s.patterns = append(s.patterns, regexp.MustCompile(regexp.QuoteMeta(secret)))
}
