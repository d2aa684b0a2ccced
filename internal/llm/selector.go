package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"couponClipper/internal/browser"
)

const (
	maxSnapshotElements = 120
	maxElementText      = 80
	minConfidence       = 0.3
)

const selectorSystemPrompt = "You are an expert in grocery store websites. You find the CSS selector that matches every \"clip coupon\" button on a coupon listing page."

// SuggestCouponSelector просит модель найти селектор кнопок купонов по
// снимку страницы. Пустой селектор без ошибки значит, что модель не уверена.
func (c *Client) SuggestCouponSelector(ctx context.Context, siteKey string, snapshot *browser.PageSnapshot) (string, error) {
	if snapshot == nil || len(snapshot.Elements) == 0 {
		return "", fmt.Errorf("пустой снимок страницы")
	}

	prompt := fmt.Sprintf(`Page: %s
Title: %s

Visible elements (tag | selector | text | classes | label):
%s

Find the selector for the buttons that add ("clip") a coupon to the loyalty card.
Ignore buttons that are already clipped, unclip buttons, navigation and sign-in links.
Use only selectors from the list above, optionally combined with :has-text("...").

Respond in JSON format:
{
  "selector": "CSS selector or empty string",
  "reasoning": "short explanation",
  "confidence": 0.0-1.0
}`, c.sanitizer.Sanitize(snapshot.URL), c.sanitizer.Sanitize(snapshot.Title), c.describeElements(snapshot.Elements))

	content, err := c.complete(ctx, siteKey, selectorSystemPrompt, prompt, 300)
	if err != nil {
		return "", err
	}

	var suggestion SelectorSuggestion
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		return "", fmt.Errorf("ошибка парсинга ответа: %w", err)
	}

	if suggestion.Selector == "" || suggestion.Confidence < minConfidence {
		return "", nil
	}

	selector, _ := browser.NormalizeSelector(suggestion.Selector)
	if err := browser.ValidateSelector(selector); err != nil {
		return "", fmt.Errorf("модель вернула неверный селектор: %w", err)
	}
	return selector, nil
}

// describeElements строит компактный список элементов без персональных данных.
func (c *Client) describeElements(elements []browser.ElementInfo) string {
	var b strings.Builder
	n := 0
	for _, el := range elements {
		if n == maxSnapshotElements {
			break
		}
		selector := c.sanitizer.SanitizeSelector(el.Selector)
		if selector == "" {
			continue
		}

		text := c.sanitizer.Sanitize(el.Text)
		if r := []rune(text); len(r) > maxElementText {
			text = string(r[:maxElementText]) + "..."
		}
		text = strings.ReplaceAll(text, "\n", " ")

		fmt.Fprintf(&b, "%s | %s | %s | %s | %s\n", el.Tag, selector, text, el.Classes, c.sanitizer.Sanitize(el.Label))
		n++
	}
	return b.String()
}
