package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

type playwrightElement struct {
	handle       playwright.ElementHandle
	page         playwright.Page
	clickTimeout time.Duration
}

func (e *playwrightElement) timeout() *float64 {
	return playwright.Float(float64(e.clickTimeout.Milliseconds()))
}

// Key метит элемент атрибутом data-clipper-key, чтобы отличать одинаковые
// кнопки между повторными поисками на той же странице.
func (e *playwrightElement) Key() (string, error) {
	v, err := e.handle.Evaluate(`(el) => {
		if (!el.dataset.clipperKey) {
			window.__clipperSeq = (window.__clipperSeq || 0) + 1;
			el.dataset.clipperKey = String(window.__clipperSeq);
		}
		return el.dataset.clipperKey;
	}`)
	if err != nil {
		return "", classify(err)
	}
	key, _ := v.(string)
	return key, nil
}

func (e *playwrightElement) Text() (string, error) {
	text, err := e.handle.InnerText()
	if err != nil {
		// InnerText не работает на svg и некоторых inline-элементах
		text, err = e.handle.TextContent()
		if err != nil {
			return "", classify(err)
		}
	}
	return strings.TrimSpace(text), nil
}

func (e *playwrightElement) TagName() (string, error) {
	v, err := e.handle.Evaluate(`(el) => el.tagName.toLowerCase()`)
	if err != nil {
		return "", classify(err)
	}
	tag, _ := v.(string)
	return tag, nil
}

func (e *playwrightElement) Attribute(name string) (string, bool, error) {
	v, err := e.handle.Evaluate(`(el, name) => el.hasAttribute(name) ? el.getAttribute(name) : null`, name)
	if err != nil {
		return "", false, classify(err)
	}
	if v == nil {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

// Matches возвращает ErrBadSelector, если DOM не понимает селектор
// (например, :has-text или :contains).
func (e *playwrightElement) Matches(selector string) (bool, error) {
	v, err := e.handle.Evaluate(`(el, sel) => {
		try { return el.matches(sel); } catch (e) { return null; }
	}`, selector)
	if err != nil {
		return false, classify(err)
	}
	if v == nil {
		return false, fmt.Errorf("%w: %s", ErrBadSelector, selector)
	}
	ok, _ := v.(bool)
	return ok, nil
}

func (e *playwrightElement) IsVisible() (bool, error) {
	ok, err := e.handle.IsVisible()
	return ok, classify(err)
}

func (e *playwrightElement) IsEnabled() (bool, error) {
	ok, err := e.handle.IsEnabled()
	return ok, classify(err)
}

func (e *playwrightElement) BoundingBox() (*ViewportBounds, error) {
	box, err := e.handle.BoundingBox()
	if err != nil {
		return nil, classify(err)
	}
	if box == nil {
		return nil, ErrNoBoundingBox
	}
	return &ViewportBounds{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

// ScrollIntoView ставит элемент в центр экрана.
func (e *playwrightElement) ScrollIntoView() error {
	_, err := e.handle.Evaluate(`(el) => el.scrollIntoView({ behavior: 'auto', block: 'center', inline: 'center' })`)
	if err == nil {
		return nil
	}
	if err = classify(err); errors.Is(err, ErrStale) {
		return err
	}
	return classify(e.handle.ScrollIntoViewIfNeeded(playwright.ElementHandleScrollIntoViewIfNeededOptions{
		Timeout: e.timeout(),
	}))
}

func (e *playwrightElement) Click() error {
	return classify(e.handle.Click(playwright.ElementHandleClickOptions{
		Timeout: e.timeout(),
	}))
}

func (e *playwrightElement) JSClick() error {
	_, err := e.handle.Evaluate(`(el) => el.click()`)
	return classify(err)
}

// HoverClick наводит курсор на элемент и нажимает кнопку мыши в его позиции.
func (e *playwrightElement) HoverClick() error {
	if err := e.handle.Hover(playwright.ElementHandleHoverOptions{Timeout: e.timeout()}); err != nil {
		return classify(err)
	}
	mouse := e.page.Mouse()
	if err := mouse.Down(); err != nil {
		return classify(err)
	}
	return classify(mouse.Up())
}

func (e *playwrightElement) ParentClick() error {
	v, err := e.handle.Evaluate(`(el) => {
		if (!el.parentElement) return false;
		el.parentElement.click();
		return true;
	}`)
	if err != nil {
		return classify(err)
	}
	if ok, _ := v.(bool); !ok {
		return fmt.Errorf("у элемента нет родителя")
	}
	return nil
}

func (e *playwrightElement) PressEnter() error {
	if err := e.handle.Focus(); err != nil {
		return classify(err)
	}
	return classify(e.handle.Press("Enter", playwright.ElementHandlePressOptions{
		Timeout: e.timeout(),
	}))
}
