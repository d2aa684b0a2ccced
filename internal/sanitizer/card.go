package sanitizer

import "regexp"

var cardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
	// Карты лояльности: "MVP Card #4812 3371 0098", "Rewards number: 44120987731"
	regexp.MustCompile(`(?i)((?:card|rewards|loyalty|club|member(?:ship)?)\s*(?:card\s*)?(?:number|no\.?|#)\s*[:=]?\s*)[\d\s-]{6,}\d`),
	regexp.MustCompile(`(?i)(card\s+ending\s+(?:in\s+)?)\d{4}`),
}

type CardSanitizer struct{}

func (s *CardSanitizer) Sanitize(text string) string {
	text = cardPatterns[0].ReplaceAllString(text, `[FILTERED_CARD]`)
	for _, pattern := range cardPatterns[1:] {
		text = pattern.ReplaceAllString(text, `${1}[FILTERED_CARD]`)
	}
	return text
}
