package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	reqs  []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
		Usage:   openai.Usage{TotalTokens: 42},
	}, nil
}

type logEntry struct {
	site, prompt, response string
	tokens                 int
}

type fakeLogger struct {
	entries []logEntry
}

func (l *fakeLogger) LogLLMRequest(_ context.Context, siteKey, _, promptText, responseText, _ string, tokensUsed int) error {
	l.entries = append(l.entries, logEntry{siteKey, promptText, responseText, tokensUsed})
	return nil
}

func testClient(cc chatCompleter, logger Logger) *Client {
	return newClient(cc, config.OpenAI{Model: "gpt-4o", RequestsPerMinute: 10, TokensPerHour: 100000}, logger)
}

func snapshot() *browser.PageSnapshot {
	return &browser.PageSnapshot{
		URL:   "https://www.giantfood.com/savings/coupons/browse",
		Title: "Coupons",
		Elements: []browser.ElementInfo{
			{Tag: "span", Text: "Hi, Jane", Selector: "span.greeting"},
			{Tag: "span", Text: "jane.doe@example.com", Selector: "span.account"},
			{Tag: "button", Text: "Load to Card", Selector: "button.kds-Button", Classes: "kds-Button"},
			{Tag: "input", Selector: "input[name='email']"},
		},
	}
}

func TestSuggestCouponSelector(t *testing.T) {
	cc := &fakeCompleter{reply: `{"selector": "button.kds-Button:contains('Load to Card')", "reasoning": "coupon buttons", "confidence": 0.9}`}
	logger := &fakeLogger{}
	c := testClient(cc, logger)

	sel, err := c.SuggestCouponSelector(context.Background(), "giant", snapshot())
	require.NoError(t, err)
	assert.Equal(t, "button.kds-Button:has-text('Load to Card')", sel)

	require.Len(t, cc.reqs, 1)
	prompt := cc.reqs[0].Messages[1].Content
	assert.Contains(t, prompt, "button.kds-Button | Load to Card")
	assert.NotContains(t, prompt, "jane.doe@example.com")
	assert.NotContains(t, prompt, "Jane")
	assert.Contains(t, prompt, "[FILTERED_SELECTOR]")
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, cc.reqs[0].ResponseFormat.Type)

	require.Len(t, logger.entries, 1)
	assert.Equal(t, "giant", logger.entries[0].site)
	assert.Equal(t, 42, logger.entries[0].tokens)
}

func TestSuggestCouponSelector_LowConfidence(t *testing.T) {
	c := testClient(&fakeCompleter{reply: `{"selector": "button", "confidence": 0.1}`}, nil)

	sel, err := c.SuggestCouponSelector(context.Background(), "giant", snapshot())
	require.NoError(t, err)
	assert.Empty(t, sel)
}

func TestSuggestCouponSelector_Errors(t *testing.T) {
	_, err := testClient(&fakeCompleter{}, nil).SuggestCouponSelector(context.Background(), "giant", nil)
	assert.Error(t, err)

	_, err = testClient(&fakeCompleter{reply: "not json"}, nil).SuggestCouponSelector(context.Background(), "giant", snapshot())
	assert.Error(t, err)

	_, err = testClient(&fakeCompleter{reply: `{"selector": "https://evil.test", "confidence": 1}`}, nil).
		SuggestCouponSelector(context.Background(), "giant", snapshot())
	assert.Error(t, err)

	apiErr := errors.New("503 service unavailable")
	_, err = testClient(&fakeCompleter{err: apiErr}, nil).SuggestCouponSelector(context.Background(), "giant", snapshot())
	assert.ErrorIs(t, err, apiErr)
}

func TestAnalyzePopup(t *testing.T) {
	cc := &fakeCompleter{reply: `{"has_popup": true, "close_selector": "button:contains('No thanks')", "popup_description": "newsletter"}`}
	c := testClient(cc, nil)

	info, err := c.AnalyzePopup(context.Background(), `[{"Text":"Call (301) 555-0142"}]`)
	require.NoError(t, err)
	assert.True(t, info.HasPopup)
	assert.Equal(t, "button:has-text('No thanks')", info.CloseSelector)
	assert.NotContains(t, cc.reqs[0].Messages[1].Content, "555-0142")
}

func TestAnalyzePopup_InvalidSelectorDropped(t *testing.T) {
	c := testClient(&fakeCompleter{reply: `{"has_popup": true, "close_selector": "http://x"}`}, nil)

	info, err := c.AnalyzePopup(context.Background(), "[]")
	require.NoError(t, err)
	assert.False(t, info.HasPopup)
	assert.Empty(t, info.CloseSelector)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, 1000)
	rl.now = func() time.Time { return now }
	rl.resetLocked()
	ctx := context.Background()

	require.NoError(t, rl.AllowRequest(ctx))
	require.NoError(t, rl.AllowRequest(ctx))
	assert.Error(t, rl.AllowRequest(ctx))

	now = now.Add(30 * time.Second)
	assert.NoError(t, rl.AllowRequest(ctx))

	require.NoError(t, rl.AllowTokens(ctx, 900))
	assert.Error(t, rl.AllowTokens(ctx, 200))
	rl.ConsumeTokens(500)

	requests, tokens := rl.Stats()
	assert.Equal(t, 0, requests)
	assert.Equal(t, 0, tokens)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, rl.AllowRequest(canceled), context.Canceled)
}

func TestClient_RateLimited(t *testing.T) {
	cc := &fakeCompleter{reply: `{"selector": "button.clip", "confidence": 1}`}
	c := newClient(cc, config.OpenAI{Model: "gpt-4o", RequestsPerMinute: 1, TokensPerHour: 100000}, nil)

	_, err := c.SuggestCouponSelector(context.Background(), "giant", snapshot())
	require.NoError(t, err)
	_, err = c.SuggestCouponSelector(context.Background(), "giant", snapshot())
	assert.Error(t, err)
	assert.Len(t, cc.reqs, 1)
}
