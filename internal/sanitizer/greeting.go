package sanitizer

import "regexp"

// "Hi, Jane", "Welcome back Jane D." в шапке сайта.
var greetingPattern = regexp.MustCompile(`\b((?i:hi|hello|welcome back|welcome|hey))(,?\s+)[A-Z][a-z]+(?:\s+[A-Z]\.?)?`)

type GreetingSanitizer struct{}

func (s *GreetingSanitizer) Sanitize(text string) string {
	return greetingPattern.ReplaceAllString(text, `${1}${2}[FILTERED_NAME]`)
}
