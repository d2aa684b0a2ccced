package clipper

import (
	"context"

	"couponClipper/internal/config"

	"go.uber.org/zap"
)

// Operator - человек за браузером. Клипер обращается к нему, когда
// эвристики не справляются: CAPTCHA, логин, кнопки не найдены, пауза.
type Operator interface {
	Notify(msg string)
	SolveCaptcha(ctx context.Context) error
	Login(ctx context.Context) error
	IdentifyButton(ctx context.Context) (ButtonHint, error)
	ChooseSpeed(ctx context.Context, site config.Site) (SpeedChoice, error)
	ChooseRateLimitMode(ctx context.Context, site config.Site) (RateLimitMode, error)
	ConfirmRateLimit(ctx context.Context) (RateLimitDecision, error)
	// ControlMenu - меню Ctrl+C. remaining < 0, пока купоны еще загружаются.
	ControlMenu(ctx context.Context, clipped, remaining int) (ControlAction, error)
	ReconnectFailed(ctx context.Context) (ReconnectChoice, error)
}

// UnattendedOperator используется в запусках по расписанию: все, что
// требует человека, завершается ErrOperatorUnavailable, и сайт пропускается.
type UnattendedOperator struct {
	Log   *zap.Logger
	Speed Speed
}

func NewUnattendedOperator(log *zap.Logger, speed Speed) *UnattendedOperator {
	if speed == "" || speed == SpeedCustom {
		speed = SpeedMedium
	}
	return &UnattendedOperator{Log: log, Speed: speed}
}

func (o *UnattendedOperator) Notify(msg string) {
	o.Log.Info(msg)
}

func (o *UnattendedOperator) SolveCaptcha(context.Context) error {
	return ErrOperatorUnavailable
}

func (o *UnattendedOperator) Login(context.Context) error {
	return ErrOperatorUnavailable
}

func (o *UnattendedOperator) IdentifyButton(context.Context) (ButtonHint, error) {
	return ButtonHint{Skip: true}, ErrOperatorUnavailable
}

func (o *UnattendedOperator) ChooseSpeed(_ context.Context, site config.Site) (SpeedChoice, error) {
	if o.Speed == SpeedRapid && !site.SiteSettings.RapidModeCompatible {
		return SpeedChoice{Speed: SpeedMedium}, nil
	}
	return SpeedChoice{Speed: o.Speed}, nil
}

func (o *UnattendedOperator) ChooseRateLimitMode(context.Context, config.Site) (RateLimitMode, error) {
	return RateLimitAuto, nil
}

func (o *UnattendedOperator) ConfirmRateLimit(context.Context) (RateLimitDecision, error) {
	return RateLimitConfirm, nil
}

func (o *UnattendedOperator) ControlMenu(context.Context, int, int) (ControlAction, error) {
	return ActionContinue, nil
}

func (o *UnattendedOperator) ReconnectFailed(context.Context) (ReconnectChoice, error) {
	return ReconnectSkip, nil
}
