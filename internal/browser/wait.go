package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
)

const popupPause = 500 * time.Millisecond

// Кнопки закрытия модалок, баннеров cookie и промо-окон магазинов.
var popupCloseSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button[id*='accept-cookies' i]",
	"[role='dialog'] button[aria-label*='close' i]",
	"[role='dialog'] button[aria-label*='dismiss' i]",
	".modal button.close",
	".popup button.close",
	"[data-dismiss='modal']",
	".close-button",
	"button:has-text('No thanks')",
	"button:has-text('Not now')",
	"button:has-text('×')",
	"button:has-text('✕')",
	"[aria-label='Close']",
	"[aria-label='close']",
}

var overlaySelectors = []string{
	"[role='dialog']",
	".modal",
	".popup",
	".overlay",
	"[class*='modal']",
	"[class*='popup']",
	"[class*='overlay']",
}

const overlayCloseSelector = "button[aria-label*='close' i], .close, [data-dismiss]"

func (b *PlaywrightBrowser) WaitForLoadState(ctx context.Context, state string) error {
	page := b.getPage()
	if page == nil {
		return ErrNotLaunched
	}

	var loadState *playwright.LoadState
	switch state {
	case "domcontentloaded":
		loadState = playwright.LoadStateDomcontentloaded
	case "networkidle":
		loadState = playwright.LoadStateNetworkidle
	default:
		loadState = playwright.LoadStateLoad
	}

	return page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   loadState,
		Timeout: playwright.Float(float64(b.cfg.Timeout.Milliseconds())),
	})
}

// ClosePopups закрывает видимые попапы. Если задан PopupDetector, сначала
// спрашиваем его, при ошибке откатываемся на список селекторов.
func (b *PlaywrightBrowser) ClosePopups(ctx context.Context) error {
	page := b.getPage()
	if page == nil {
		return ErrNotLaunched
	}

	if b.popupDetector == nil {
		return b.closePopupsLegacy(ctx, page)
	}

	snapshot, err := b.GetPageSnapshot(ctx)
	if err != nil {
		return b.closePopupsLegacy(ctx, page)
	}

	popupInfo, err := b.popupDetector.DetectPopup(ctx, snapshot)
	if err != nil {
		return b.closePopupsLegacy(ctx, page)
	}

	if !popupInfo.HasPopup || popupInfo.CloseSelector == "" {
		return nil
	}

	if ValidateSelector(popupInfo.CloseSelector) != nil {
		return b.closePopupsLegacy(ctx, page)
	}
	selector, _ := NormalizeSelector(popupInfo.CloseSelector)

	element, err := page.QuerySelector(selector)
	if err != nil || element == nil {
		return b.closePopupsLegacy(ctx, page)
	}

	isVisible, err := element.IsVisible()
	if err != nil || !isVisible {
		return nil
	}

	if err := element.Click(); err == nil {
		time.Sleep(popupPause)
	}

	return nil
}

func (b *PlaywrightBrowser) closePopupsLegacy(ctx context.Context, page playwright.Page) error {
	for _, selector := range popupCloseSelectors {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		elements, err := page.QuerySelectorAll(selector)
		if err != nil {
			continue
		}

		for _, element := range elements {
			isVisible, err := element.IsVisible()
			if err != nil || !isVisible {
				continue
			}

			if err := element.Click(playwright.ElementHandleClickOptions{
				Timeout: playwright.Float(float64(b.cfg.ClickTimeout.Milliseconds())),
			}); err == nil {
				time.Sleep(popupPause)
			}
		}
	}

	for _, selector := range overlaySelectors {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		elements, err := page.QuerySelectorAll(selector)
		if err != nil {
			continue
		}

		for _, element := range elements {
			isVisible, err := element.IsVisible()
			if err != nil || !isVisible {
				continue
			}

			closeButton, err := element.QuerySelector(overlayCloseSelector)
			if err == nil && closeButton != nil {
				if err := closeButton.Click(playwright.ElementHandleClickOptions{
					Timeout: playwright.Float(float64(b.cfg.ClickTimeout.Milliseconds())),
				}); err == nil {
					time.Sleep(popupPause)
				}
			}
		}
	}

	return nil
}
