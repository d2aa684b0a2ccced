package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"couponClipper/internal/browser"
)

const popupSystemPrompt = "You are an expert at analyzing web page structure and identifying popups and their close buttons."

// AnalyzePopup ищет попап и кнопку его закрытия. elements - JSON
// интерактивных элементов в видимой области.
func (c *Client) AnalyzePopup(ctx context.Context, elements string) (*browser.PopupInfo, error) {
	prompt := fmt.Sprintf(`Analyze the page elements and determine if there is a popup, modal, or overlay that should be closed
(cookie banners, newsletter signups, store pickers, app promotions).

Elements data:
%s

Respond in JSON format:
{
  "has_popup": true/false,
  "close_selector": "CSS selector",
  "popup_description": "brief description",
  "reasoning": "your analysis"
}`, c.sanitizer.Sanitize(elements))

	content, err := c.complete(ctx, "", popupSystemPrompt, prompt, 300)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze popup: %w", err)
	}

	var result browser.PopupInfo
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse popup analysis: %w", err)
	}

	if result.HasPopup && result.CloseSelector != "" {
		result.CloseSelector, _ = browser.NormalizeSelector(result.CloseSelector)
		if err := browser.ValidateSelector(result.CloseSelector); err != nil {
			result.HasPopup = false
			result.CloseSelector = ""
		}
	}

	return &result, nil
}
