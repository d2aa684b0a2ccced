package clipper

import (
	"context"
	"errors"
	"strings"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"go.uber.org/zap"
)

var errClickFailed = errors.New("click failed")

type fakeElement struct {
	key     string
	text    string
	tag     string
	attrs   map[string]string
	matches map[string]bool
	hidden  bool
	enabled *bool
	stale   bool
	box     *browser.ViewportBounds
	// staleTexts - сколько раз Text вернет ErrStale, как после перерисовки.
	staleTexts int

	// failing - способы клика, которые возвращают ошибку: click, js, hover, parent, enter.
	failing map[string]error
	clicks  []string
	onClick func(e *fakeElement)
}

func button(key, text string) *fakeElement {
	return &fakeElement{
		key:  key,
		text: text,
		tag:  "button",
		box:  &browser.ViewportBounds{X: 10, Y: 10, Width: 80, Height: 30},
	}
}

func (e *fakeElement) err() error {
	if e.stale {
		return browser.ErrStale
	}
	return nil
}

func (e *fakeElement) Key() (string, error) { return e.key, e.err() }

func (e *fakeElement) Text() (string, error) {
	if e.staleTexts > 0 {
		e.staleTexts--
		return "", browser.ErrStale
	}
	return e.text, e.err()
}

func (e *fakeElement) TagName() (string, error) { return e.tag, e.err() }

func (e *fakeElement) Attribute(name string) (string, bool, error) {
	if err := e.err(); err != nil {
		return "", false, err
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Matches(selector string) (bool, error) {
	if err := e.err(); err != nil {
		return false, err
	}
	if strings.Contains(selector, ":has-text") || strings.Contains(selector, ":contains") {
		return false, browser.ErrBadSelector
	}
	return e.matches[selector], nil
}

func (e *fakeElement) IsVisible() (bool, error) { return !e.hidden, e.err() }

func (e *fakeElement) IsEnabled() (bool, error) {
	if e.enabled != nil {
		return *e.enabled, e.err()
	}
	return true, e.err()
}

func (e *fakeElement) BoundingBox() (*browser.ViewportBounds, error) {
	if err := e.err(); err != nil {
		return nil, err
	}
	if e.box == nil {
		return nil, browser.ErrNoBoundingBox
	}
	return e.box, nil
}

func (e *fakeElement) ScrollIntoView() error { return e.err() }

func (e *fakeElement) click(name string) error {
	if err := e.err(); err != nil {
		return err
	}
	e.clicks = append(e.clicks, name)
	if err, ok := e.failing[name]; ok {
		return err
	}
	if e.onClick != nil {
		e.onClick(e)
	}
	return nil
}

func (e *fakeElement) Click() error       { return e.click("click") }
func (e *fakeElement) JSClick() error     { return e.click("js") }
func (e *fakeElement) HoverClick() error  { return e.click("hover") }
func (e *fakeElement) ParentClick() error { return e.click("parent") }
func (e *fakeElement) PressEnter() error  { return e.click("enter") }

// markClipped - типичная реакция сайта на клик: кнопка меняет текст.
func markClipped(e *fakeElement) {
	e.text = "Clipped"
}

type fakePage struct {
	selectors map[string][]*fakeElement
	elements  []*fakeElement
	content   string
	lengths   []int
	heights   []int
	viewport  browser.ViewportBounds

	scrolls     []int
	mouseClicks int
}

func newFakePage() *fakePage {
	return &fakePage{
		selectors: make(map[string][]*fakeElement),
		viewport:  browser.ViewportBounds{Width: 1280, Height: 800},
	}
}

func (p *fakePage) add(selector string, els ...*fakeElement) {
	p.selectors[selector] = append(p.selectors[selector], els...)
	p.elements = append(p.elements, els...)
}

func toElements(els []*fakeElement) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}

func (p *fakePage) QueryAll(selector string) ([]browser.Element, error) {
	return toElements(p.selectors[selector]), nil
}

func (p *fakePage) QueryByText(text string, match browser.TextMatch) ([]browser.Element, error) {
	var found []*fakeElement
	for _, el := range p.elements {
		var ok bool
		switch match {
		case browser.TextExact:
			ok = el.text == text
		case browser.TextContains:
			ok = strings.Contains(el.text, text)
		case browser.TextFold:
			ok = strings.Contains(strings.ToLower(el.text), strings.ToLower(text))
		}
		if ok {
			found = append(found, el)
		}
	}
	return toElements(found), nil
}

func (p *fakePage) Content() (string, error) { return p.content, nil }

// ContentLength отдает значения из lengths по очереди, последнее повторяется.
func (p *fakePage) ContentLength() (int, error) {
	if len(p.lengths) == 0 {
		return len(p.content), nil
	}
	v := p.lengths[0]
	if len(p.lengths) > 1 {
		p.lengths = p.lengths[1:]
	}
	return v, nil
}

func (p *fakePage) ScrollHeight() (int, error) {
	if len(p.heights) == 0 {
		return 1000, nil
	}
	v := p.heights[0]
	if len(p.heights) > 1 {
		p.heights = p.heights[1:]
	}
	return v, nil
}

func (p *fakePage) ScrollTo(y int) error {
	p.scrolls = append(p.scrolls, y)
	return nil
}

func (p *fakePage) MouseClick(float64, float64) error {
	p.mouseClicks++
	return nil
}

func (p *fakePage) Viewport() (browser.ViewportBounds, error) { return p.viewport, nil }

func (p *fakePage) URL() string { return "https://example.test/coupons" }

type fakeBrowser struct {
	page *fakePage

	dead         bool
	reconnectErr error
	navigateErr  error
	navigations  int
	reloads      int
	reconnects   int
	popupsClosed int
	snapshot     *browser.PageSnapshot
	onReload     func()
	onNavigate   func()
}

func newFakeBrowser(page *fakePage) *fakeBrowser {
	return &fakeBrowser{page: page}
}

func (b *fakeBrowser) Launch(context.Context) error { return nil }

func (b *fakeBrowser) Page() (browser.Page, error) {
	if b.page == nil {
		return nil, browser.ErrNotLaunched
	}
	return b.page, nil
}

func (b *fakeBrowser) Navigate(context.Context, string) error {
	b.navigations++
	if b.onNavigate != nil {
		b.onNavigate()
	}
	return b.navigateErr
}

func (b *fakeBrowser) Reload(context.Context) error {
	b.reloads++
	if b.onReload != nil {
		b.onReload()
	}
	return nil
}

func (b *fakeBrowser) Alive(context.Context) bool { return !b.dead }

func (b *fakeBrowser) Reconnect(context.Context) error {
	b.reconnects++
	if b.reconnectErr != nil {
		return b.reconnectErr
	}
	b.dead = false
	return nil
}

func (b *fakeBrowser) ClosePopups(context.Context) error {
	b.popupsClosed++
	return nil
}

func (b *fakeBrowser) GetPageSnapshot(context.Context) (*browser.PageSnapshot, error) {
	if b.snapshot == nil {
		return &browser.PageSnapshot{}, nil
	}
	return b.snapshot, nil
}

func (b *fakeBrowser) Mode() string { return browser.ModeProfile }

func (b *fakeBrowser) Close() error { return nil }

type fakeOperator struct {
	notes        []string
	captchaCalls int
	loginCalls   int
	identify     int
	hint         ButtonHint
	speed        SpeedChoice
	mode         RateLimitMode
	decision     RateLimitDecision
	confirms     int
	actions      []ControlAction
	reconnect    ReconnectChoice
	reconnectAsk int
}

func (o *fakeOperator) Notify(msg string) { o.notes = append(o.notes, msg) }

func (o *fakeOperator) SolveCaptcha(context.Context) error {
	o.captchaCalls++
	return nil
}

func (o *fakeOperator) Login(context.Context) error {
	o.loginCalls++
	return nil
}

func (o *fakeOperator) IdentifyButton(context.Context) (ButtonHint, error) {
	o.identify++
	return o.hint, nil
}

func (o *fakeOperator) ChooseSpeed(context.Context, config.Site) (SpeedChoice, error) {
	if o.speed.Speed == "" {
		return SpeedChoice{Speed: SpeedMedium}, nil
	}
	return o.speed, nil
}

func (o *fakeOperator) ChooseRateLimitMode(context.Context, config.Site) (RateLimitMode, error) {
	if o.mode == "" {
		return RateLimitAuto, nil
	}
	return o.mode, nil
}

func (o *fakeOperator) ConfirmRateLimit(context.Context) (RateLimitDecision, error) {
	o.confirms++
	return o.decision, nil
}

func (o *fakeOperator) ControlMenu(context.Context, int, int) (ControlAction, error) {
	if len(o.actions) == 0 {
		return ActionContinue, nil
	}
	a := o.actions[0]
	o.actions = o.actions[1:]
	return a, nil
}

func (o *fakeOperator) ReconnectFailed(context.Context) (ReconnectChoice, error) {
	o.reconnectAsk++
	return o.reconnect, nil
}

// sleeper записывает паузы вместо ожидания.
type sleeper struct {
	calls []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func (s *sleeper) total() time.Duration {
	var sum time.Duration
	for _, d := range s.calls {
		sum += d
	}
	return sum
}

func nopLog() *zap.Logger {
	return zap.NewNop()
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.LoadMoreMaxAttempts = 3
	return s
}
