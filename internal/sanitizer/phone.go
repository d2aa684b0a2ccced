package sanitizer

import "regexp"

// Американские номера: (301) 555-0142, 301-555-0142, +1 301 555 0142.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:\+?1[-.\s]?)?\(\d{3}\)\s?\d{3}[-.\s]?\d{4}\b`),
	regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`),
	regexp.MustCompile(`(?i)(phone|tel\.?|mobile)\s*[:=#]\s*["']?([+\d\s\-\(\)]{7,})["']?`),
}

type PhoneSanitizer struct{}

func (s *PhoneSanitizer) Sanitize(text string) string {
	for _, pattern := range phonePatterns {
		text = pattern.ReplaceAllString(text, `[FILTERED_PHONE]`)
	}
	return text
}
