// Package clipper отмечает купоны на сайтах магазинов: загружает страницу,
// находит кнопки, отделяет уже отмеченные и кликает остальные, подстраивая
// темп под rate limit сайта.
package clipper

import (
	"context"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/database"
)

// Speed - пресет темпа клиппинга.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedMedium Speed = "medium"
	SpeedFast   Speed = "fast"
	SpeedCustom Speed = "custom"
	SpeedRapid  Speed = "rapid"
)

// SpeedChoice - выбор оператора. Min и Max используются только для custom.
type SpeedChoice struct {
	Speed Speed
	Min   time.Duration
	Max   time.Duration
}

// RateLimitMode - как реагировать на признаки rate limit на сайте.
type RateLimitMode string

const (
	RateLimitAuto   RateLimitMode = "auto"
	RateLimitOff    RateLimitMode = "off"
	RateLimitManual RateLimitMode = "manual"
)

// RateLimitDecision - ответ оператора в ручном режиме.
type RateLimitDecision int

const (
	RateLimitConfirm RateLimitDecision = iota
	RateLimitIgnore
	RateLimitIgnoreAndDisable
)

// ControlAction - пункт меню управления по Ctrl+C.
type ControlAction int

const (
	ActionContinue ControlAction = iota
	ActionSkipSite
	ActionMenu
	ActionQuit
	ActionToggleRateLimit
	ActionReconnect
)

// ReconnectChoice - что делать, если браузер не удалось восстановить.
type ReconnectChoice int

const (
	ReconnectRetry ReconnectChoice = iota
	ReconnectSkip
	ReconnectQuit
)

// ButtonHint - подсказка оператора, как найти кнопки купонов.
type ButtonHint struct {
	Selector string
	Text     string
	Skip     bool
}

// Outcome - что делать вызывающему после прохода по сайту.
type Outcome string

const (
	OutcomeNext Outcome = "next"
	OutcomeMenu Outcome = "menu"
	OutcomeQuit Outcome = "quit"
)

type Result struct {
	Session database.ClipSession
	Outcome Outcome
}

// SelectorAdvisor подсказывает селектор кнопки купона по снимку страницы.
type SelectorAdvisor interface {
	SuggestCouponSelector(ctx context.Context, siteKey string, snapshot *browser.PageSnapshot) (string, error)
}

// SleepFunc ждет d или отмены ctx.
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
