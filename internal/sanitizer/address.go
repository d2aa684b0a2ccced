package sanitizer

import "regexp"

var addressPatterns = []*regexp.Regexp{
	// 1200 Main Street, 45 W Oak Ave. Apt 3
	regexp.MustCompile(`(?i)\b\d{1,6}\s+(?:[NSEW]\.?\s+)?(?:[A-Za-z0-9]+\s+){0,3}(?:street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|court|ct|way|place|pl|parkway|pkwy|highway|hwy)\b\.?(?:,?\s*(?:apt|suite|ste|unit)\.?\s*#?\s*\w+)?`),
	// Город, штат и индекс: Landover, MD 20785-1234
	regexp.MustCompile(`\b[A-Z][a-zA-Z .'-]+,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`),
	regexp.MustCompile(`(?i)(address)\s*[:=]\s*["']?([^"'\n]{10,})["']?`),
}

type AddressSanitizer struct{}

func (s *AddressSanitizer) Sanitize(text string) string {
	for _, pattern := range addressPatterns {
		text = pattern.ReplaceAllString(text, `[FILTERED_ADDRESS]`)
	}
	return text
}
