package sanitizer

import "regexp"

var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(token|api[_-]?key|secret|session[_-]?id)(\s*[:=]\s*["']?)[a-zA-Z0-9_\-.]{16,}["']?`),
	regexp.MustCompile(`(?i)(bearer\s+)()[a-zA-Z0-9_\-.]{20,}`),
	regexp.MustCompile(`()()\bsk-[a-zA-Z0-9_-]{20,}`),
}

type TokenSanitizer struct{}

func (s *TokenSanitizer) Sanitize(text string) string {
	for _, pattern := range tokenPatterns {
		text = pattern.ReplaceAllString(text, `${1}${2}[FILTERED]`)
	}
	return text
}
