package clipper

import (
	"context"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"go.uber.org/zap"
)

const (
	initialLoadWait     = 3 * time.Second
	loadMoreWait        = 3 * time.Second
	maxLoadIterations   = 5
	maxScrollPasses     = 3
	fastScrollStepPause = 200 * time.Millisecond
	minContentGrowth    = 500
	lateContentGrowth   = 1000
)

var loadMoreTexts = []string{"load more", "show more", "view more", "more coupons", "see more"}

var loadMoreAttributeSelectors = []string{
	"[id*='load-more']",
	"[id*='loadMore']",
	"[class*='load-more']",
	"[class*='loadMore']",
}

type loader struct {
	log      *zap.Logger
	sleep    SleepFunc
	settings config.Settings
	// checkpoint вызывается перед каждой итерацией; ошибка прерывает загрузку.
	checkpoint func(ctx context.Context) error
}

// LoadAll прокручивает страницу и жмет "load more", пока контент растет.
func (l *loader) LoadAll(ctx context.Context, page browser.Page, site config.Site) error {
	l.log.Info("Загрузка всех купонов")

	if err := l.sleep(ctx, initialLoadWait); err != nil {
		return err
	}

	attempts := 0
	iterations := 0
	changed := true

	prev, err := page.ContentLength()
	if err != nil {
		return err
	}

	for changed && attempts < l.settings.LoadMoreMaxAttempts && iterations < maxLoadIterations {
		if l.checkpoint != nil {
			if err := l.checkpoint(ctx); err != nil {
				return err
			}
		}

		iterations++
		l.log.Debug("Итерация загрузки", zap.Int("iteration", iterations))

		if err := l.scroll(ctx, page); err != nil {
			return err
		}

		clicked := l.clickLoadMore(ctx, page, site)
		if clicked {
			attempts++
			l.log.Info("Нажата кнопка load more", zap.Int("attempt", attempts))
			if err := l.sleep(ctx, loadMoreWait); err != nil {
				return err
			}
		}

		cur, err := page.ContentLength()
		if err != nil {
			l.log.Warn("Не удалось измерить страницу", zap.Error(err))
			break
		}
		growth := cur - prev
		l.log.Debug("Рост контента", zap.Int("bytes", growth))

		switch {
		case clicked && growth < minContentGrowth:
			if err := l.scroll(ctx, page); err != nil {
				return err
			}
			cur, err = page.ContentLength()
			if err != nil || cur-prev < minContentGrowth {
				changed = false
			} else {
				prev = cur
			}
		case growth > minContentGrowth:
			prev = cur
		case !clicked:
			changed = false
		}

		if iterations > 2 && growth < lateContentGrowth {
			l.log.Debug("Контент почти не растет, завершаем загрузку")
			break
		}
	}

	if attempts >= l.settings.LoadMoreMaxAttempts {
		l.log.Info("Достигнут лимит нажатий load more", zap.Int("max", l.settings.LoadMoreMaxAttempts))
	}

	return l.scroll(ctx, page)
}

// scroll проходит страницу сверху вниз до трех раз, пока растет ее высота.
func (l *loader) scroll(ctx context.Context, page browser.Page) error {
	last, err := page.ScrollHeight()
	if err != nil {
		return err
	}

	step := l.settings.ScrollPause / 3
	if l.settings.FastScroll {
		step = fastScrollStepPause
	}
	increment := l.settings.ScrollIncrement
	if increment <= 0 {
		increment = 500
	}

	for pass := 1; pass <= maxScrollPasses; pass++ {
		for y := 0; y < last; y += increment {
			if err := page.ScrollTo(y); err != nil {
				return err
			}
			if err := l.sleep(ctx, step); err != nil {
				return err
			}
		}

		if err := l.sleep(ctx, l.settings.ScrollPause); err != nil {
			return err
		}

		height, err := page.ScrollHeight()
		if err != nil {
			return err
		}
		if height == last {
			break
		}
		l.log.Debug("Высота страницы изменилась", zap.Int("from", last), zap.Int("to", height))
		last = height
	}

	return page.ScrollTo(0)
}

// clickLoadMore жмет первую видимую кнопку "load more". Без селектора
// в каталоге сайт считается страницей без догрузки.
func (l *loader) clickLoadMore(ctx context.Context, page browser.Page, site config.Site) bool {
	if site.LoadMoreSelector == "" {
		return false
	}

	var buttons []browser.Element
	for _, sel := range browser.SplitSelectors(site.LoadMoreSelector) {
		if els, err := page.QueryAll(sel); err == nil {
			buttons = append(buttons, els...)
		}
	}

	if len(buttons) == 0 {
		for _, text := range loadMoreTexts {
			if els, err := page.QueryByText(text, browser.TextFold); err == nil && len(els) > 0 {
				buttons = els
				break
			}
		}
	}

	if len(buttons) == 0 {
		for _, sel := range loadMoreAttributeSelectors {
			if els, err := page.QueryAll(sel); err == nil && len(els) > 0 {
				buttons = els
				break
			}
		}
	}

	for _, b := range buttons {
		visible, err := b.IsVisible()
		if err != nil || !visible {
			continue
		}
		tag, err := b.TagName()
		if err != nil {
			continue
		}
		if tag == "button" {
			if enabled, err := b.IsEnabled(); err != nil || !enabled {
				continue
			}
		}

		if err := b.ScrollIntoView(); err != nil {
			continue
		}
		_ = l.sleep(ctx, scrollSettlePause)

		if err := b.Click(); err != nil {
			if err := b.JSClick(); err != nil {
				continue
			}
		}
		return true
	}

	return false
}
