package clipper

import (
	"testing"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"github.com/stretchr/testify/assert"
)

func keysOf(els []browser.Element) []string {
	out := make([]string, 0, len(els))
	for _, el := range els {
		k, _ := el.Key()
		out = append(out, k)
	}
	return out
}

func TestLocate_StandardDeduplicates(t *testing.T) {
	page := newFakePage()
	b1 := button("1", "Clip Coupon")
	b2 := button("2", "Clip Coupon")
	hidden := button("3", "Clip Coupon")
	hidden.hidden = true
	page.add("button.clip", b1, b2, hidden)
	page.add(".coupon-add", b2)

	site := config.Site{Key: "test", CouponButtonSelector: "button.clip, .coupon-add", Locator: config.LocatorStandard}
	got := (&locator{log: nopLog()}).Locate(page, site)

	assert.Equal(t, []string{"1", "2"}, keysOf(got))
}

func TestLocate_StandardIgnoresHeadings(t *testing.T) {
	page := newFakePage()
	heading := &fakeElement{key: "h", tag: "h2", text: "Clip & Save"}
	label := &fakeElement{key: "l", tag: "span", text: "Clipped"}
	page.elements = append(page.elements, heading, label)
	page.add("button.coupon-clip", button("1", "Clip"))

	site := config.Site{Key: "test", CouponButtonSelector: "button.coupon-clip", Locator: config.LocatorStandard}
	l := &locator{log: nopLog()}
	assert.Equal(t, []string{"1"}, keysOf(l.Locate(page, site)))

	// без кнопок заголовок не становится кнопкой
	empty := newFakePage()
	empty.elements = append(empty.elements, heading, label)
	assert.Empty(t, l.Locate(empty, site))
}

func TestLocate_StandardTextIsCaseSensitive(t *testing.T) {
	page := newFakePage()
	page.elements = append(page.elements,
		button("1", "clip coupon"),
		button("2", "Tap to clip"),
		button("3", "ADD OFFER"),
	)

	got := (&locator{log: nopLog()}).Locate(page, config.Site{Key: "test", Locator: config.LocatorStandard})
	assert.Equal(t, []string{"1", "2"}, keysOf(got))
}

func TestLocate_Weis(t *testing.T) {
	page := newFakePage()
	page.add(".coupon-add", button("1", "Add"))
	page.elements = append(page.elements, button("2", "CLIP COUPON"))

	got := (&locator{log: nopLog()}).Locate(page, config.Site{Key: "weis", Locator: config.LocatorWeis})

	assert.Equal(t, []string{"1", "2"}, keysOf(got))
}

func TestLocate_ClipTextSkipsUnclip(t *testing.T) {
	page := newFakePage()
	page.elements = append(page.elements, button("1", "Clip offer"), button("2", "Unclip"))

	got := (&locator{log: nopLog()}).Locate(page, config.Site{Key: "walmart", Locator: config.LocatorClipText})

	assert.Equal(t, []string{"1"}, keysOf(got))
}

func TestLocate_ClipTextFallsBackToStandard(t *testing.T) {
	page := newFakePage()
	page.add("button.offer", button("1", "Get deal"))

	site := config.Site{Key: "walmart", Locator: config.LocatorClipText, CouponButtonSelector: "button.offer"}
	got := (&locator{log: nopLog()}).Locate(page, site)

	assert.Equal(t, []string{"1"}, keysOf(got))
}

func TestLocate_NothingFound(t *testing.T) {
	page := newFakePage()
	page.add("button.other", button("1", "Sign up"))

	got := (&locator{log: nopLog()}).Locate(page, config.Site{Key: "test", CouponButtonSelector: "button.clip"})
	assert.Empty(t, got)
}

func TestFromHint(t *testing.T) {
	page := newFakePage()
	page.add("div.deal", button("1", "Get deal"))
	page.elements = append(page.elements, button("2", "Grab it"))
	l := &locator{log: nopLog()}

	assert.Nil(t, l.FromHint(page, ButtonHint{Skip: true, Selector: "div.deal"}))
	assert.Equal(t, []string{"1"}, keysOf(l.FromHint(page, ButtonHint{Selector: "div.deal"})))
	assert.Equal(t, []string{"2"}, keysOf(l.FromHint(page, ButtonHint{Text: "grab"})))
	assert.Empty(t, l.FromHint(page, ButtonHint{}))
}
