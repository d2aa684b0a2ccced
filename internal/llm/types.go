// Package llm подсказывает через OpenAI то, что не нашли эвристики:
// селектор кнопки купона и кнопку закрытия попапа. Запросы идут через
// rate limiter, а текст страницы проходит санитайзер.
package llm

import "context"

// Logger сохраняет запросы к LLM (в Postgres это таблица llm_logs).
type Logger interface {
	LogLLMRequest(ctx context.Context, siteKey, role, promptText, responseText, model string, tokensUsed int) error
}

// SelectorSuggestion - ответ модели на запрос селектора кнопки купона.
type SelectorSuggestion struct {
	Selector   string  `json:"selector"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}
