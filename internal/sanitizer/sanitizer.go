// Package sanitizer вырезает персональные данные из текста страницы
// перед отправкой снимка в LLM: на страницах купонов в шапке видны
// имя, email, телефон и номер карты лояльности покупателя.
package sanitizer

import "strings"

type DataSanitizer struct {
	rules []SanitizerRule
}

type SanitizerRule interface {
	Sanitize(text string) string
}

func New() *DataSanitizer {
	return &DataSanitizer{
		rules: []SanitizerRule{
			&TokenSanitizer{},
			&CardSanitizer{},
			&EmailSanitizer{},
			&PhoneSanitizer{},
			&AddressSanitizer{},
			&GreetingSanitizer{},
		},
	}
}

func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, rule := range s.rules {
		result = rule.Sanitize(result)
	}

	return result
}

// SanitizeSelector прячет селекторы, по которым видно содержимое полей
// (value, email и т.п.).
func (s *DataSanitizer) SanitizeSelector(selector string) string {
	if selector == "" {
		return selector
	}

	lower := strings.ToLower(selector)
	for _, keyword := range []string{"value=", "email", "phone", "password", "card-number", "address"} {
		if strings.Contains(lower, keyword) {
			return "[FILTERED_SELECTOR]"
		}
	}

	return selector
}
