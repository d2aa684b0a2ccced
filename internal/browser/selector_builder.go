package browser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	colonSpacePattern       = regexp.MustCompile(`^([^:]+):\s+(.+)$`)
	containsPatternDouble   = regexp.MustCompile(`:contains\("([^"]*)"\)`)
	containsPatternSingle   = regexp.MustCompile(`:contains\('([^']*)'\)`)
	containsPatternNoQuotes = regexp.MustCompile(`:contains\(([^)]+)\)`)
)

var knownPseudoClasses = []string{":hover", ":focus", ":active", ":visited", ":link", ":checked",
	":disabled", ":enabled", ":first-child", ":last-child", ":nth-child", ":nth-of-type",
	":has-text", ":has", ":not", ":contains"}

// NormalizeSelector нормализует селектор, преобразуя невалидные синтаксисы в валидные для Playwright.
// Преобразует jQuery :contains() в Playwright :has-text().
// Также исправляет селекторы вида "button: Текст" в "button:has-text('Текст')".
// Возвращает нормализованный селектор и флаг, указывающий, был ли селектор изменен.
func NormalizeSelector(selector string) (string, bool) {
	if selector == "" {
		return selector, false
	}

	normalized := strings.TrimSpace(selector)
	changed := normalized != selector

	// "button: Clip" вместо "button:has-text('Clip')" - частая ошибка в ручном вводе и у LLM
	if submatch := colonSpacePattern.FindStringSubmatch(normalized); len(submatch) >= 3 {
		tagPart := strings.TrimSpace(submatch[1])
		textPart := strings.TrimSpace(submatch[2])

		isValidPseudo := false
		for _, pseudo := range knownPseudoClasses {
			if strings.HasSuffix(tagPart, pseudo) || strings.Contains(normalized, pseudo+"(") {
				isValidPseudo = true
				break
			}
		}

		if !isValidPseudo && tagPart != "" && textPart != "" {
			changed = true
			textPart = strings.ReplaceAll(textPart, `"`, `\"`)
			normalized = tagPart + `:has-text("` + textPart + `")`
		}
	}

	normalized = containsPatternDouble.ReplaceAllStringFunc(normalized, func(match string) string {
		changed = true
		text := containsPatternDouble.FindStringSubmatch(match)[1]
		text = strings.ReplaceAll(text, "\\", "\\\\")
		text = strings.ReplaceAll(text, `"`, `\"`)
		return `:has-text("` + text + `")`
	})

	normalized = containsPatternSingle.ReplaceAllStringFunc(normalized, func(match string) string {
		changed = true
		text := containsPatternSingle.FindStringSubmatch(match)[1]
		text = strings.ReplaceAll(text, "\\", "\\\\")
		text = strings.ReplaceAll(text, `'`, `\'`)
		return `:has-text('` + text + `')`
	})

	// Без кавычек (редко, но возможно)
	normalized = containsPatternNoQuotes.ReplaceAllStringFunc(normalized, func(match string) string {
		changed = true
		text := strings.TrimSpace(containsPatternNoQuotes.FindStringSubmatch(match)[1])
		return `:has-text("` + text + `")`
	})

	return normalized, changed
}

// ValidateSelector проверяет, что селектор является валидным CSS/Playwright селектором.
// Возвращает ошибку, если селектор является URL или пустой.
func ValidateSelector(selector string) error {
	selectorTrimmed := strings.TrimSpace(selector)
	if selectorTrimmed == "" {
		return fmt.Errorf("селектор не может быть пустым")
	}

	if strings.HasPrefix(selectorTrimmed, "http://") || strings.HasPrefix(selectorTrimmed, "https://") {
		return fmt.Errorf("селектор не может быть URL: %s", selector)
	}

	if strings.Contains(selectorTrimmed, "://") {
		return fmt.Errorf("селектор не может содержать протокол (://). Получен: %s", selector)
	}

	return nil
}

// SplitSelectors разбивает список через запятую на отдельные селекторы.
// Запятые внутри скобок и кавычек не считаются разделителями.
func SplitSelectors(list string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
		quote rune
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for _, r := range list {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()

	return out
}

const (
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
)

// TextMatch - способ сравнения текста в QueryByText.
type TextMatch int

const (
	// TextExact - собственный текст узла равен строке.
	TextExact TextMatch = iota
	// TextContains - собственный текст узла содержит строку с учетом регистра.
	TextContains
	// TextFold - собственный текст узла содержит строку без учета регистра.
	TextFold
)

// TextXPath строит XPath поиска элемента по собственным текстовым узлам.
// Текст потомков не учитывается.
func TextXPath(text string, match TextMatch) string {
	switch match {
	case TextContains:
		return "//*[contains(text(), " + xpathLiteral(text) + ")]"
	case TextFold:
		return fmt.Sprintf("//*[contains(translate(text(), '%s', '%s'), %s)]",
			upperLetters, lowerLetters, xpathLiteral(strings.ToLower(text)))
	default:
		return "//*[text()=" + xpathLiteral(text) + "]"
	}
}

// xpathLiteral экранирует строку для XPath 1.0, где нет escape-последовательностей.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	items := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			items = append(items, `"'"`)
		}
		if p != "" {
			items = append(items, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(items, ", ") + ")"
}
