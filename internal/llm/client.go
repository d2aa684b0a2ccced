package llm

import (
	"context"
	"fmt"

	"couponClipper/internal/config"
	"couponClipper/internal/sanitizer"

	"github.com/sashabaranov/go-openai"
)

// chatCompleter - часть *openai.Client, которую использует клиент.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	client      chatCompleter
	model       string
	logger      Logger
	sanitizer   *sanitizer.DataSanitizer
	rateLimiter *RateLimiter
}

func NewClient(cfg config.OpenAI, logger Logger) *Client {
	return newClient(openai.NewClient(cfg.KeyAI), cfg, logger)
}

func newClient(cc chatCompleter, cfg config.OpenAI, logger Logger) *Client {
	return &Client{
		client:      cc,
		model:       cfg.Model,
		logger:      logger,
		sanitizer:   sanitizer.New(),
		rateLimiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.TokensPerHour),
	}
}

// complete выполняет запрос с JSON-ответом и проверкой rate limit.
func (c *Client) complete(ctx context.Context, siteKey, system, prompt string, maxTokens int) (string, error) {
	if err := c.rateLimiter.AllowRequest(ctx); err != nil {
		return "", err
	}

	// Грубая оценка: ~4 символа на токен
	estimatedTokens := (len(system)+len(prompt))/4 + maxTokens
	if err := c.rateLimiter.AllowTokens(ctx, estimatedTokens); err != nil {
		return "", err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к OpenAI: %w", err)
	}

	// Корректируем бюджет по фактическому расходу
	if resp.Usage.TotalTokens > estimatedTokens {
		c.rateLimiter.ConsumeTokens(resp.Usage.TotalTokens - estimatedTokens)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("пустой ответ от OpenAI")
	}
	content := resp.Choices[0].Message.Content

	if c.logger != nil {
		_ = c.logger.LogLLMRequest(ctx, siteKey, openai.ChatMessageRoleUser, prompt, content, c.model, resp.Usage.TotalTokens)
	}

	return content, nil
}

// Usage возвращает оставшийся бюджет: запросы и токены.
func (c *Client) Usage() (requests int, tokens int) {
	return c.rateLimiter.Stats()
}
