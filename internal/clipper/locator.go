package clipper

import (
	"strings"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"go.uber.org/zap"
)

var weisSelectors = []string{
	".btn-clip:not(.added)",
	".coupon-add",
	".add-coupon",
	"button[data-coupon-id]",
	"button.coupon__btn",
	"button.add",
}

const (
	weisButtonText = "CLIP COUPON"
	clipButtonText = "Clip"
)

var standardButtonTexts = []string{"clip coupon", "CLIP COUPON", "clip", "add coupon", "add offer"}

type locator struct {
	log *zap.Logger
}

// Locate ищет кнопки купонов стратегией сайта. Пустой результат значит,
// что эвристики не сработали.
func (l *locator) Locate(page browser.Page, site config.Site) []browser.Element {
	switch site.Locator {
	case config.LocatorWeis:
		if buttons := l.weis(page); len(buttons) > 0 {
			return buttons
		}
		if buttons := findByText(page, weisButtonText); len(buttons) > 0 {
			l.log.Info("Кнопки найдены по тексту", zap.String("text", weisButtonText), zap.Int("count", len(buttons)))
			return buttons
		}
	case config.LocatorClipText:
		var filtered []browser.Element
		for _, b := range findByText(page, clipButtonText) {
			text, err := b.Text()
			if err != nil {
				continue
			}
			if !strings.Contains(strings.ToLower(text), "unclip") {
				filtered = append(filtered, b)
			}
		}
		if len(filtered) > 0 {
			l.log.Info("Кнопки Clip найдены (без Unclip)", zap.Int("count", len(filtered)))
			return filtered
		}
	}

	return l.standard(page, site)
}

func (l *locator) weis(page browser.Page) []browser.Element {
	var found []browser.Element
	for _, sel := range weisSelectors {
		els, err := page.QueryAll(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		l.log.Debug("Кнопки Weis по селектору", zap.String("selector", sel), zap.Int("count", len(els)))
		found = append(found, els...)
	}
	if els, err := page.QueryByText(weisButtonText, browser.TextExact); err == nil {
		found = append(found, els...)
	}
	return uniqueVisible(found)
}

func (l *locator) standard(page browser.Page, site config.Site) []browser.Element {
	var found []browser.Element

	for _, sel := range browser.SplitSelectors(site.CouponButtonSelector) {
		els, err := page.QueryAll(sel)
		if err != nil {
			l.log.Debug("Селектор не сработал", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if len(els) > 0 {
			l.log.Debug("Кнопки по селектору", zap.String("selector", sel), zap.Int("count", len(els)))
			found = append(found, els...)
		}
	}

	for _, text := range standardButtonTexts {
		if els, err := page.QueryByText(text, browser.TextExact); err == nil {
			found = append(found, els...)
		}
		if els, err := page.QueryByText(text, browser.TextContains); err == nil {
			found = append(found, els...)
		}
	}

	buttons := uniqueVisible(found)
	l.log.Info("Уникальных кнопок купонов", zap.Int("count", len(buttons)))
	return buttons
}

// FromHint ищет кнопки по подсказке оператора или LLM.
func (l *locator) FromHint(page browser.Page, hint ButtonHint) []browser.Element {
	switch {
	case hint.Skip:
		return nil
	case hint.Selector != "":
		els, err := page.QueryAll(hint.Selector)
		if err != nil {
			l.log.Warn("Ошибка селектора оператора", zap.String("selector", hint.Selector), zap.Error(err))
			return nil
		}
		return els
	case hint.Text != "":
		return findByText(page, hint.Text)
	}
	return nil
}

// findByText: сначала точный text(), потом регистронезависимое вхождение.
func findByText(page browser.Page, text string) []browser.Element {
	els, err := page.QueryByText(text, browser.TextExact)
	if err == nil && len(els) > 0 {
		return els
	}
	els, err = page.QueryByText(text, browser.TextFold)
	if err != nil {
		return nil
	}
	return els
}

// uniqueVisible убирает дубликаты по Key и оставляет видимые элементы.
func uniqueVisible(els []browser.Element) []browser.Element {
	seen := make(map[string]bool, len(els))
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		key, err := el.Key()
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true

		visible, err := el.IsVisible()
		if err != nil || !visible {
			continue
		}
		out = append(out, el)
	}
	return out
}
