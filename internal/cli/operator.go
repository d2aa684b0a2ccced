package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"couponClipper/internal/cli/ui"
	"couponClipper/internal/clipper"
	"couponClipper/internal/config"

	"github.com/chzyer/readline"
)

const (
	defaultCustomMin = 0.5
	defaultCustomMax = 1.5
)

// Operator задает вопросы человеку в консоли. Ctrl+C и конец ввода
// выбирают самый осторожный вариант.
type Operator struct {
	in  LineReader
	out io.Writer
}

func NewOperator(in LineReader, out io.Writer) *Operator {
	return &Operator{in: in, out: out}
}

func (o *Operator) Notify(msg string) {
	fmt.Fprintln(o.out, ui.ColorCyan+msg+ui.ColorReset)
}

func (o *Operator) SolveCaptcha(ctx context.Context) error {
	ui.Banner(o.out, ui.IconLock+" Обнаружена CAPTCHA. Решите ее в окне браузера.")
	return o.waitEnter(ctx, "Нажмите Enter, когда CAPTCHA решена...")
}

func (o *Operator) Login(ctx context.Context) error {
	ui.Banner(o.out, ui.IconLock+" Похоже, нужен вход. Залогиньтесь в окне браузера.")
	return o.waitEnter(ctx, "Нажмите Enter после входа...")
}

func (o *Operator) waitEnter(ctx context.Context, prompt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := o.in.ReadLine(prompt); err != nil {
		return fmt.Errorf("%w: %v", clipper.ErrOperatorUnavailable, err)
	}
	return nil
}

func (o *Operator) IdentifyButton(ctx context.Context) (clipper.ButtonHint, error) {
	ui.Banner(o.out,
		"Кнопки купонов не найдены автоматически.",
		"1. Подсказать, что нажимать",
		"2. Пропустить сайт",
	)
	n, err := o.choose(ctx, "Выберите (1-2, по умолчанию 1): ", 2, 1)
	if err != nil || n == 2 {
		return clipper.ButtonHint{Skip: true}, ctxErr(ctx)
	}

	fmt.Fprintln(o.out, "\nПосмотрите на страницу и укажите кнопку:")
	fmt.Fprintln(o.out, "1. CSS-селектор (например, button.clip-coupon)")
	fmt.Fprintln(o.out, "2. Текст на кнопке (например, Clip Coupon)")
	n, err = o.choose(ctx, "Выберите (1-2, по умолчанию 2): ", 2, 2)
	if err != nil {
		return clipper.ButtonHint{Skip: true}, ctxErr(ctx)
	}

	if n == 1 {
		sel, err := o.in.ReadLine("CSS-селектор: ")
		if err != nil || sel == "" {
			return clipper.ButtonHint{Skip: true}, ctxErr(ctx)
		}
		return clipper.ButtonHint{Selector: sel}, nil
	}

	text, err := o.in.ReadLine("Текст на кнопке: ")
	if err != nil || text == "" {
		return clipper.ButtonHint{Skip: true}, ctxErr(ctx)
	}
	return clipper.ButtonHint{Text: text}, nil
}

func (o *Operator) ChooseSpeed(ctx context.Context, site config.Site) (clipper.SpeedChoice, error) {
	rapid := site.SiteSettings.RapidModeCompatible

	lines := []string{
		"Скорость клиппинга:",
		"1. Медленно (безопасно, реже rate limit)",
		"2. Средне",
		"3. Быстро (может упереться в rate limit)",
		"4. Свои задержки",
	}
	limit := 4
	if rapid {
		lines = append(lines, "5. Rapid (оптимизировано для "+site.DisplayName()+")")
		limit = 5
	}
	fmt.Fprintln(o.out, "\n"+strings.Join(lines, "\n"))

	n, err := o.choose(ctx, fmt.Sprintf("Выберите (1-%d, по умолчанию 2): ", limit), limit, 2)
	if err != nil {
		return clipper.SpeedChoice{Speed: clipper.SpeedMedium}, ctxErr(ctx)
	}

	switch n {
	case 1:
		return clipper.SpeedChoice{Speed: clipper.SpeedSlow}, nil
	case 3:
		return clipper.SpeedChoice{Speed: clipper.SpeedFast}, nil
	case 4:
		return o.customSpeed(ctx)
	case 5:
		fmt.Fprintln(o.out, ui.ColorGray+"Rapid пропускает часть проверок ради скорости"+ui.ColorReset)
		return clipper.SpeedChoice{Speed: clipper.SpeedRapid}, nil
	}
	return clipper.SpeedChoice{Speed: clipper.SpeedMedium}, nil
}

func (o *Operator) customSpeed(ctx context.Context) (clipper.SpeedChoice, error) {
	lo, err := o.seconds(ctx, "Минимальная задержка, с (по умолчанию 0.5): ", defaultCustomMin)
	if err == nil {
		var hi float64
		if hi, err = o.seconds(ctx, "Максимальная задержка, с (по умолчанию 1.5): ", defaultCustomMax); err == nil {
			return clipper.SpeedChoice{
				Speed: clipper.SpeedCustom,
				Min:   time.Duration(lo * float64(time.Second)),
				Max:   time.Duration(hi * float64(time.Second)),
			}, nil
		}
	}
	if cerr := ctxErr(ctx); cerr != nil {
		return clipper.SpeedChoice{Speed: clipper.SpeedMedium}, cerr
	}
	fmt.Fprintln(o.out, ui.ColorYellow+"Неверный ввод, используется средняя скорость"+ui.ColorReset)
	return clipper.SpeedChoice{Speed: clipper.SpeedMedium}, nil
}

func (o *Operator) seconds(ctx context.Context, prompt string, def float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	line, err := o.in.ReadLine(prompt)
	if err != nil {
		return 0, err
	}
	if line == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(line, ",", "."), 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("неверная задержка: %q", line)
	}
	return v, nil
}

func (o *Operator) ChooseRateLimitMode(ctx context.Context, site config.Site) (clipper.RateLimitMode, error) {
	fmt.Fprintln(o.out, "\n"+site.DisplayName()+" может ложно срабатывать на проверке rate limit.")
	fmt.Fprintln(o.out, "1. Автоматическая проверка (по умолчанию)")
	fmt.Fprintln(o.out, "2. Отключить проверку")
	fmt.Fprintln(o.out, "3. Спрашивать перед паузой")

	n, err := o.choose(ctx, "Выберите (1-3, по умолчанию 1): ", 3, 1)
	if err != nil {
		return clipper.RateLimitAuto, ctxErr(ctx)
	}
	switch n {
	case 2:
		return clipper.RateLimitOff, nil
	case 3:
		return clipper.RateLimitManual, nil
	}
	return clipper.RateLimitAuto, nil
}

func (o *Operator) ConfirmRateLimit(ctx context.Context) (clipper.RateLimitDecision, error) {
	ui.Banner(o.out,
		ui.IconWarning+" Похоже на rate limit.",
		"1. Да, сделать паузу",
		"2. Нет, продолжить",
		"3. Нет, и отключить проверку",
	)
	n, err := o.choose(ctx, "Выберите (1-3, по умолчанию 1): ", 3, 1)
	if err != nil {
		return clipper.RateLimitConfirm, ctxErr(ctx)
	}
	switch n {
	case 2:
		return clipper.RateLimitIgnore, nil
	case 3:
		return clipper.RateLimitIgnoreAndDisable, nil
	}
	return clipper.RateLimitConfirm, nil
}

var controlActions = []clipper.ControlAction{
	clipper.ActionContinue,
	clipper.ActionSkipSite,
	clipper.ActionMenu,
	clipper.ActionQuit,
	clipper.ActionToggleRateLimit,
	clipper.ActionReconnect,
}

// ControlMenu показывает меню паузы. Повторный Ctrl+C пропускает сайт.
func (o *Operator) ControlMenu(ctx context.Context, clipped, remaining int) (clipper.ControlAction, error) {
	status := fmt.Sprintf("отмечено %d, осталось ~%d", clipped, remaining)
	if remaining < 0 {
		status = "идет загрузка купонов"
	}
	ui.Banner(o.out, ui.IconPause+" ПАУЗА: "+status)
	fmt.Fprintln(o.out, "1. Продолжить")
	fmt.Fprintln(o.out, "2. Следующий сайт")
	fmt.Fprintln(o.out, "3. Вернуться в меню")
	fmt.Fprintln(o.out, "4. Выйти из программы")
	fmt.Fprintln(o.out, "5. Переключить проверку rate limit")
	fmt.Fprintln(o.out, "6. Переподключить браузер")

	n, err := o.choose(ctx, "Выберите (1-6, по умолчанию 1): ", len(controlActions), 1)
	if err != nil {
		if cerr := ctxErr(ctx); cerr != nil {
			return clipper.ActionQuit, cerr
		}
		return clipper.ActionSkipSite, nil
	}
	return controlActions[n-1], nil
}

func (o *Operator) ReconnectFailed(ctx context.Context) (clipper.ReconnectChoice, error) {
	ui.Banner(o.out,
		ui.ColorRed+"Соединение с браузером потеряно и не восстановлено."+ui.ColorReset,
		"1. Попробовать снова",
		"2. Следующий сайт",
		"3. Выйти из программы",
	)
	n, err := o.choose(ctx, "Выберите (1-3, по умолчанию 1): ", 3, 1)
	if err != nil {
		return clipper.ReconnectSkip, ctxErr(ctx)
	}
	switch n {
	case 2:
		return clipper.ReconnectSkip, nil
	case 3:
		return clipper.ReconnectQuit, nil
	}
	return clipper.ReconnectRetry, nil
}

// choose читает номер пункта из 1..n. Пустой или неверный ввод дает def.
func (o *Operator) choose(ctx context.Context, prompt string, n, def int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	line, err := o.in.ReadLine(prompt)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(line)
	if err != nil || v < 1 || v > n {
		return def, nil
	}
	return v, nil
}

// ctxErr отличает отмену от Ctrl+C и конца ввода: последние не ошибки.
func ctxErr(ctx context.Context) error {
	return ctx.Err()
}

func isInterrupt(err error) bool {
	return errors.Is(err, readline.ErrInterrupt)
}
