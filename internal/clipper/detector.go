package clipper

import (
	"context"
	"strings"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"go.uber.org/zap"
)

const (
	cloudflareWait    = 10 * time.Second
	captchaReloadWait = 5 * time.Second
	loginSettleWait   = 3 * time.Second
)

var cloudflareIndicators = []string{
	"#challenge-running",
	"#challenge-form",
	".cf-browser-verification",
	"#cf-please-wait",
	"#cf-content",
}

var captchaSelectors = []string{
	".g-recaptcha",
	"#captcha",
	"[name='captcha']",
	"[id*='captcha']",
	"[class*='captcha']",
	".recaptcha-checkbox",
}

var captchaPhrases = []string{
	"complete the captcha",
	"solve the captcha",
	"i'm not a robot",
	"security check",
	"checking your browser",
	"please enable javascript",
	"please wait while we verify",
	"please wait...",
}

var loginFormSelectors = []string{
	"form[action*='login']",
	"form[action*='signin']",
	"form.login-form",
	"#login-form",
	".login-form",
	"form.signin-form",
	"#signin-form",
	".signin-form",
}

var loginButtonSelectors = []string{
	"button:has-text('Sign In')",
	"button:has-text('Log In')",
	"a:has-text('Sign In')",
	"a:has-text('Log In')",
}

var loginPhrases = []string{
	"please log in to view coupons",
	"please sign in to view coupons",
	"login required to see coupons",
	"sign in required to see coupons",
	"log in to clip coupons",
	"sign in to clip coupons",
}

type captchaKind int

const (
	captchaNone captchaKind = iota
	captchaCloudflare
	captchaOther
)

type detector struct {
	log   *zap.Logger
	sleep SleepFunc
}

func (d *detector) detectCaptcha(page browser.Page, site config.Site) captchaKind {
	if sel, ok := firstVisible(page, cloudflareIndicators); ok {
		d.log.Info("CloudFlare CAPTCHA", zap.String("selector", sel))
		return captchaCloudflare
	}
	if sel, ok := firstVisible(page, site.CaptchaIndicators); ok {
		d.log.Info("CAPTCHA по индикатору сайта", zap.String("selector", sel))
		return captchaOther
	}
	if sel, ok := firstVisible(page, captchaSelectors); ok {
		d.log.Info("CAPTCHA по селектору", zap.String("selector", sel))
		return captchaOther
	}

	bodies, err := page.QueryAll("body")
	if err != nil || len(bodies) == 0 {
		return captchaNone
	}
	text, err := bodies[0].Text()
	if err != nil {
		return captchaNone
	}
	text = strings.ToLower(text)
	for _, phrase := range captchaPhrases {
		if strings.Contains(text, phrase) {
			d.log.Info("CAPTCHA по фразе", zap.String("phrase", phrase))
			return captchaOther
		}
	}
	return captchaNone
}

// handleCaptcha возвращает true, если CAPTCHA была и ее обработали.
// Для прочих CAPTCHA сначала пробуем перезагрузку; если она помогла, false.
func (d *detector) handleCaptcha(ctx context.Context, br browser.Browser, op Operator, site config.Site) (bool, error) {
	page, err := br.Page()
	if err != nil {
		return false, err
	}

	switch d.detectCaptcha(page, site) {
	case captchaNone:
		return false, nil

	case captchaCloudflare:
		op.Notify("Проверка CloudFlare. Ждем завершения; при необходимости пройдите ее вручную.")
		if err := d.sleep(ctx, cloudflareWait); err != nil {
			return false, err
		}
		if anyPresent(page, cloudflareIndicators) {
			if err := op.SolveCaptcha(ctx); err != nil {
				return true, err
			}
		} else {
			d.log.Info("Проверка CloudFlare пройдена автоматически")
		}
		return true, nil
	}

	d.log.Info("Перезагрузка страницы для обхода CAPTCHA")
	if err := br.Reload(ctx); err != nil {
		d.log.Warn("Не удалось перезагрузить страницу", zap.Error(err))
	}
	if err := d.sleep(ctx, captchaReloadWait); err != nil {
		return false, err
	}

	if page, err = br.Page(); err != nil {
		return false, err
	}
	if anyPresent(page, append(append([]string{}, captchaSelectors...), site.CaptchaIndicators...)) {
		d.log.Info("CAPTCHA осталась после перезагрузки, нужен оператор")
		if err := op.SolveCaptcha(ctx); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// loginRequired ищет форму входа на видном месте, кнопку Sign In в верхней
// половине экрана или явную фразу в основном контенте.
func (d *detector) loginRequired(page browser.Page) bool {
	vp, err := page.Viewport()
	if err != nil {
		return false
	}

	for _, sel := range loginFormSelectors {
		for _, form := range visibleElements(page, sel) {
			box, err := form.BoundingBox()
			if err != nil {
				continue
			}
			if box.Y < vp.Height/2 && box.Width > 200 && box.Height > 100 {
				d.log.Info("Форма входа на видном месте", zap.String("selector", sel))
				return true
			}
		}
	}

	for _, sel := range loginButtonSelectors {
		for _, btn := range visibleElements(page, sel) {
			box, err := btn.BoundingBox()
			if err != nil {
				continue
			}
			if box.Y < vp.Height/2 {
				d.log.Info("Кнопка входа в основном контенте", zap.String("selector", sel))
				return true
			}
		}
	}

	for _, sel := range mainContentSelectors[:5] {
		for _, el := range visibleElements(page, sel) {
			text, err := el.Text()
			if err != nil {
				continue
			}
			text = strings.ToLower(text)
			for _, phrase := range loginPhrases {
				if strings.Contains(text, phrase) {
					d.log.Info("Сообщение о входе в контенте", zap.String("selector", sel))
					return true
				}
			}
		}
	}

	return false
}

func visibleElements(page browser.Page, selector string) []browser.Element {
	els, err := page.QueryAll(selector)
	if err != nil {
		return nil
	}
	out := els[:0]
	for _, el := range els {
		if visible, err := el.IsVisible(); err == nil && visible {
			out = append(out, el)
		}
	}
	return out
}

func firstVisible(page browser.Page, selectors []string) (string, bool) {
	for _, sel := range selectors {
		if len(visibleElements(page, sel)) > 0 {
			return sel, true
		}
	}
	return "", false
}

func anyPresent(page browser.Page, selectors []string) bool {
	for _, sel := range selectors {
		if els, err := page.QueryAll(sel); err == nil && len(els) > 0 {
			return true
		}
	}
	return false
}
