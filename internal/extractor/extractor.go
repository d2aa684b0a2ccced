// Package extractor снимает компактный снимок страницы для LLM:
// видимые элементы с селекторами, текстом и приоритетом.
package extractor

import (
	"context"
	"fmt"
	"sort"
)

// MaxElements - верхняя граница числа элементов в снимке.
const MaxElements = 300

type ElementInfo struct {
	Tag         string `json:"tag"`
	Text        string `json:"text,omitempty"`
	Selector    string `json:"selector"`
	Classes     string `json:"classes,omitempty"`
	Visible     bool   `json:"-"`
	Interactive bool   `json:"interactive"`
	InViewport  bool   `json:"in_viewport"`
	Bounds      Bounds `json:"-"`
	Role        string `json:"role,omitempty"`
	Label       string `json:"label,omitempty"`
	Priority    int    `json:"priority"`
}

type Bounds struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type PageSnapshot struct {
	URL      string
	Title    string
	Elements []ElementInfo
	Viewport Bounds
}

// Evaluator - часть playwright.Page, нужная для снимка.
type Evaluator interface {
	URL() string
	Title() (string, error)
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
}

func ExtractPageSnapshot(ctx context.Context, page Evaluator) (*PageSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title, err := page.Title()
	if err != nil {
		title = ""
	}

	viewport, err := getViewport(page)
	if err != nil {
		viewport = Bounds{}
	}

	elements, err := extractElements(page)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения элементов: %w", err)
	}

	return &PageSnapshot{
		URL:      page.URL(),
		Title:    title,
		Elements: elements,
		Viewport: viewport,
	}, nil
}

func getViewport(page Evaluator) (Bounds, error) {
	result, err := page.Evaluate(`() => ({
		width: window.innerWidth,
		height: window.innerHeight
	})`)
	if err != nil {
		return Bounds{}, err
	}

	viewportMap, ok := result.(map[string]interface{})
	if !ok {
		return Bounds{}, fmt.Errorf("неверный формат viewport")
	}

	return Bounds{
		Width:  number(viewportMap["width"]),
		Height: number(viewportMap["height"]),
	}, nil
}

const extractScript = `
	() => {
		const elements = [];
		const interactiveSelectors = [
			'button', 'a', 'input', 'select',
			'[role=button]', '[role=link]', '[onclick]', '[data-coupon-id]'
		];

		const viewport = { right: window.innerWidth, bottom: window.innerHeight };

		document.querySelectorAll('body *').forEach(el => {
			const rect = el.getBoundingClientRect();
			if (rect.width <= 0 || rect.height <= 0) return;

			const style = window.getComputedStyle(el);
			if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return;

			const isInteractive = interactiveSelectors.some(sel => {
				try { return el.matches(sel); } catch (e) { return false; }
			});

			// Для неинтерактивных берем только листья с коротким текстом
			const text = (el.innerText || el.textContent || '').trim();
			if (!isInteractive && (el.children.length > 0 || !text || text.length > 80)) return;

			const inViewport = rect.top >= 0 && rect.left >= 0 &&
				rect.bottom <= viewport.bottom && rect.right <= viewport.right;

			const label = el.getAttribute('aria-label') || el.getAttribute('title') || el.getAttribute('alt') || '';

			elements.push({
				tag: el.tagName.toLowerCase(),
				text: text.substring(0, 120),
				selector: buildSelector(el),
				classes: typeof el.className === 'string' ? el.className : '',
				visible: true,
				interactive: isInteractive,
				inViewport: inViewport,
				bounds: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
				role: el.getAttribute('role') || '',
				label: label,
				priority: priority(el, isInteractive, inViewport, text, label)
			});
		});

		function buildSelector(el) {
			if (el.id && !['content', 'main', 'header', 'footer', 'nav', 'menu'].includes(el.id.toLowerCase())) {
				return '#' + CSS.escape(el.id);
			}
			for (const attr of ['data-testid', 'data-qa', 'data-coupon-id', 'name']) {
				const v = el.getAttribute(attr);
				if (v) return el.tagName.toLowerCase() + '[' + attr + '="' + v.replace(/"/g, '\\"') + '"]';
			}
			const ariaLabel = el.getAttribute('aria-label');
			if (ariaLabel) {
				return el.tagName.toLowerCase() + '[aria-label="' + ariaLabel.replace(/"/g, '\\"') + '"]';
			}
			if (typeof el.className === 'string' && el.className.trim()) {
				const classes = el.className.trim().split(/\s+/).slice(0, 2).map(c => '.' + CSS.escape(c));
				return el.tagName.toLowerCase() + classes.join('');
			}
			return el.tagName.toLowerCase();
		}

		function priority(el, isInteractive, inViewport, text, label) {
			let p = 1;
			if (isInteractive) p += 3;
			if (inViewport) p += 2;
			if (label) p += 1;
			if (/clip|coupon|add|offer|load more/i.test(text + ' ' + label)) p += 3;
			return p;
		}

		return elements;
	}
`

func extractElements(page Evaluator) ([]ElementInfo, error) {
	result, err := page.Evaluate(extractScript)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения JavaScript: %w", err)
	}

	elementsData, ok := result.([]interface{})
	if !ok {
		return []ElementInfo{}, nil
	}

	elements := make([]ElementInfo, 0, len(elementsData))
	for _, elemData := range elementsData {
		elemMap, ok := elemData.(map[string]interface{})
		if !ok {
			continue
		}

		if elem := parseElementInfo(elemMap); elem != nil {
			elements = append(elements, *elem)
		}
	}

	sort.SliceStable(elements, func(i, j int) bool { return elements[i].Priority > elements[j].Priority })
	if len(elements) > MaxElements {
		elements = elements[:MaxElements]
	}
	return elements, nil
}

func parseElementInfo(data map[string]interface{}) *ElementInfo {
	elem := &ElementInfo{
		Tag:      str(data["tag"]),
		Text:     str(data["text"]),
		Selector: str(data["selector"]),
		Classes:  str(data["classes"]),
		Role:     str(data["role"]),
		Label:    str(data["label"]),
		Priority: int(number(data["priority"])),
	}
	elem.Visible, _ = data["visible"].(bool)
	elem.Interactive, _ = data["interactive"].(bool)
	elem.InViewport, _ = data["inViewport"].(bool)

	if boundsData, ok := data["bounds"].(map[string]interface{}); ok {
		elem.Bounds = Bounds{
			X:      number(boundsData["x"]),
			Y:      number(boundsData["y"]),
			Width:  number(boundsData["width"]),
			Height: number(boundsData["height"]),
		}
	}

	if elem.Selector == "" {
		return nil
	}

	return elem
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

// number принимает и int, и float64: playwright отдает целые числа как int.
func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
