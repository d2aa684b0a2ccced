package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

type playwrightPage struct {
	page         playwright.Page
	clickTimeout time.Duration
}

func (p *playwrightPage) wrap(handles []playwright.ElementHandle) []Element {
	out := make([]Element, 0, len(handles))
	for _, h := range handles {
		if h == nil {
			continue
		}
		out = append(out, &playwrightElement{handle: h, page: p.page, clickTimeout: p.clickTimeout})
	}
	return out
}

func (p *playwrightPage) QueryAll(selector string) ([]Element, error) {
	if err := ValidateSelector(selector); err != nil {
		return nil, fmt.Errorf("невалидный селектор: %w", err)
	}
	selector, _ = NormalizeSelector(selector)

	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, classify(err)
	}
	return p.wrap(handles), nil
}

func (p *playwrightPage) QueryByText(text string, match TextMatch) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll("xpath=" + TextXPath(text, match))
	if err != nil {
		return nil, classify(err)
	}
	return p.wrap(handles), nil
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) ContentLength() (int, error) {
	content, err := p.page.Content()
	if err != nil {
		return 0, err
	}
	return len(content), nil
}

func (p *playwrightPage) ScrollHeight() (int, error) {
	v, err := p.page.Evaluate(`() => document.body ? document.body.scrollHeight : 0`)
	if err != nil {
		return 0, classify(err)
	}
	return toInt(v), nil
}

func (p *playwrightPage) ScrollTo(y int) error {
	_, err := p.page.Evaluate(`(y) => window.scrollTo(0, y)`, y)
	return classify(err)
}

func (p *playwrightPage) MouseClick(x, y float64) error {
	return classify(p.page.Mouse().Click(x, y))
}

func (p *playwrightPage) Viewport() (ViewportBounds, error) {
	v, err := p.page.Evaluate(`() => ({ width: window.innerWidth, height: window.innerHeight })`)
	if err != nil {
		return ViewportBounds{}, classify(err)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return ViewportBounds{}, fmt.Errorf("неверный формат viewport")
	}
	return ViewportBounds{
		Width:  toFloat(m["width"]),
		Height: toFloat(m["height"]),
	}, nil
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

// Evaluate возвращает числа как int или float64 в зависимости от значения.
func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
