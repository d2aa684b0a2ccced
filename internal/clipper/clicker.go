package clipper

import (
	"context"
	"errors"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"go.uber.org/zap"
)

const (
	scrollSettlePause = 500 * time.Millisecond
	clickRetryPause   = time.Second
	clickSuccessPause = 500 * time.Millisecond
	minButtonSize     = 5.0
)

type clickStrategy struct {
	name string
	fn   func() error
}

type clicker struct {
	log        *zap.Logger
	sleep      SleepFunc
	maxRetries int
}

// Click нажимает кнопку каскадом стратегии сайта. false без ошибки значит,
// что все способы не сработали. browser.ErrStale прерывает каскад.
func (c *clicker) Click(ctx context.Context, page browser.Page, el browser.Element, strategy string) (bool, error) {
	if strategy == config.ClickEnhanced {
		return c.enhanced(ctx, page, el)
	}
	return c.standard(ctx, el)
}

func (c *clicker) standard(ctx context.Context, el browser.Element) (bool, error) {
	retries := c.maxRetries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		err := el.ScrollIntoView()
		if err == nil {
			if err := c.sleep(ctx, scrollSettlePause); err != nil {
				return false, err
			}
			err = el.Click()
		}

		switch {
		case err == nil:
			return true, nil
		case isStale(err):
			return false, err
		case errors.Is(err, browser.ErrIntercepted):
			jsErr := el.JSClick()
			if jsErr == nil {
				return true, nil
			}
			if isStale(jsErr) {
				return false, jsErr
			}
		default:
			if err := c.sleep(ctx, clickRetryPause); err != nil {
				return false, err
			}
		}

		hoverErr := el.HoverClick()
		if hoverErr == nil {
			return true, nil
		}
		if isStale(hoverErr) {
			return false, hoverErr
		}
		c.log.Debug("Попытка клика не удалась", zap.Int("attempt", attempt), zap.Error(hoverErr))
		if err := c.sleep(ctx, clickRetryPause); err != nil {
			return false, err
		}
	}

	c.log.Warn("Не удалось кликнуть кнопку", zap.Int("attempts", retries))
	return false, nil
}

// enhanced - каскад для сайтов, где обычный клик часто не доходит до кнопки.
func (c *clicker) enhanced(ctx context.Context, page browser.Page, el browser.Element) (bool, error) {
	if err := el.ScrollIntoView(); err != nil {
		if isStale(err) {
			return false, err
		}
		c.log.Debug("Не удалось прокрутить к кнопке", zap.Error(err))
	}
	if err := c.sleep(ctx, scrollSettlePause); err != nil {
		return false, err
	}

	visible, err := el.IsVisible()
	if err != nil && isStale(err) {
		return false, err
	}
	enabled, err := el.IsEnabled()
	if err != nil && isStale(err) {
		return false, err
	}
	if !visible || !enabled {
		c.log.Debug("Кнопка невидима или неактивна")
		return false, nil
	}

	box, err := el.BoundingBox()
	if err != nil {
		if isStale(err) {
			return false, err
		}
		return false, nil
	}
	if box.Width < minButtonSize || box.Height < minButtonSize {
		c.log.Debug("Кнопка слишком маленькая", zap.Float64("width", box.Width), zap.Float64("height", box.Height))
		return false, nil
	}

	strategies := []clickStrategy{
		{"native", el.Click},
		{"js", el.JSClick},
		{"hover", el.HoverClick},
		{"coordinates", func() error {
			return page.MouseClick(box.X+box.Width/2, box.Y+box.Height/2)
		}},
		{"parent", el.ParentClick},
		{"enter", el.PressEnter},
	}

	for _, s := range strategies {
		err := s.fn()
		if err == nil {
			c.log.Debug("Клик выполнен", zap.String("strategy", s.name))
			_ = c.sleep(ctx, clickSuccessPause)
			return true, nil
		}
		if isStale(err) {
			return false, err
		}
		c.log.Debug("Способ клика не сработал", zap.String("strategy", s.name), zap.Error(err))
	}

	c.log.Warn("Все способы клика не сработали")
	return false, nil
}
