package clipper

import (
	"errors"
	"regexp"
	"strings"

	"couponClipper/internal/browser"
)

var clippedTerms = []string{"clipped", "added", "saved", "in cart", "remove"}

// couponIDAttributes - атрибуты, по которым сайты помечают сам купон,
// а не DOM-узел кнопки.
var couponIDAttributes = []string{"data-coupon-id", "data-offer-id", "data-id", "id"}

var (
	classTokenPattern = regexp.MustCompile(`\.([-\w]+)`)
	textPseudoPattern = regexp.MustCompile(`:(?:contains|has-text)\(\s*['"]?([^'")]*)['"]?\s*\)`)
)

// IsClipped решает, отмечен ли уже купон. indicator - список селекторов
// через запятую из каталога. Устаревший элемент возвращает browser.ErrStale,
// остальные ошибки чтения считаются признаком "не отмечен".
func IsClipped(el browser.Element, indicator string) (bool, error) {
	text, err := el.Text()
	if err != nil {
		if isStale(err) {
			return false, err
		}
		return false, nil
	}
	lower := strings.ToLower(text)

	if strings.Contains(lower, "unclip") {
		return true, nil
	}

	for _, sel := range browser.SplitSelectors(indicator) {
		ok, err := el.Matches(sel)
		switch {
		case errors.Is(err, browser.ErrBadSelector):
			ok, err = fallbackMatch(el, sel, lower)
			if err != nil {
				return false, err
			}
		case isStale(err):
			return false, err
		case err != nil:
			continue
		}
		if ok {
			return true, nil
		}
	}

	for _, term := range clippedTerms {
		if strings.Contains(lower, term) {
			return true, nil
		}
	}

	if v, present, err := el.Attribute("disabled"); err != nil {
		if isStale(err) {
			return false, err
		}
	} else if present && (v == "" || v == "true" || v == "disabled") {
		return true, nil
	}

	if v, _, err := el.Attribute("aria-disabled"); err != nil {
		if isStale(err) {
			return false, err
		}
	} else if v == "true" {
		return true, nil
	}

	return false, nil
}

// fallbackMatch проверяет индикатор, который DOM не умеет разобрать:
// все .class из него должны быть у элемента, а текст из :contains()
// или :has-text() должен входить в текст кнопки.
func fallbackMatch(el browser.Element, indicator, lowerText string) (bool, error) {
	texts := textPseudoPattern.FindAllStringSubmatch(indicator, -1)
	tokens := classTokenPattern.FindAllStringSubmatch(textPseudoPattern.ReplaceAllString(indicator, ""), -1)
	if len(tokens) == 0 && len(texts) == 0 {
		return false, nil
	}

	for _, t := range texts {
		if !strings.Contains(lowerText, strings.ToLower(t[1])) {
			return false, nil
		}
	}

	if len(tokens) == 0 {
		return true, nil
	}

	class, _, err := el.Attribute("class")
	if err != nil {
		if isStale(err) {
			return false, err
		}
		return false, nil
	}
	have := make(map[string]bool)
	for _, c := range strings.Fields(class) {
		have[c] = true
	}
	for _, t := range tokens {
		if !have[t[1]] {
			return false, nil
		}
	}
	return true, nil
}

// couponIdentity возвращает устойчивый ключ купона, который переживает
// перерисовку кнопки. Без id-атрибутов ключом служит key узла.
func couponIdentity(el browser.Element, key string) (string, error) {
	for _, attr := range couponIDAttributes {
		v, present, err := el.Attribute(attr)
		if err != nil {
			if isStale(err) {
				return "", err
			}
			continue
		}
		if v = strings.TrimSpace(v); present && v != "" {
			return attr + "=" + v, nil
		}
	}
	return key, nil
}
