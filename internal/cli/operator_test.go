package cli

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"couponClipper/internal/clipper"
	"couponClipper/internal/config"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOp(in *scripted) (*Operator, *bytes.Buffer) {
	var out bytes.Buffer
	return NewOperator(in, &out), &out
}

func TestOperator_ChooseSpeed(t *testing.T) {
	ctx := context.Background()
	plain := config.Site{Key: "giant"}
	rapid := config.Site{Key: "weis", SiteSettings: config.SiteSettings{RapidModeCompatible: true}}

	tests := []struct {
		name  string
		site  config.Site
		input []string
		want  clipper.SpeedChoice
	}{
		{"default medium", plain, []string{""}, clipper.SpeedChoice{Speed: clipper.SpeedMedium}},
		{"slow", plain, []string{"1"}, clipper.SpeedChoice{Speed: clipper.SpeedSlow}},
		{"fast", plain, []string{"3"}, clipper.SpeedChoice{Speed: clipper.SpeedFast}},
		{"rapid hidden", plain, []string{"5"}, clipper.SpeedChoice{Speed: clipper.SpeedMedium}},
		{"rapid", rapid, []string{"5"}, clipper.SpeedChoice{Speed: clipper.SpeedRapid}},
		{"custom", plain, []string{"4", "0.2", "0,8"}, clipper.SpeedChoice{
			Speed: clipper.SpeedCustom, Min: 200 * time.Millisecond, Max: 800 * time.Millisecond}},
		{"custom defaults", plain, []string{"4", "", ""}, clipper.SpeedChoice{
			Speed: clipper.SpeedCustom, Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}},
		{"custom invalid", plain, []string{"4", "fast"}, clipper.SpeedChoice{Speed: clipper.SpeedMedium}},
		{"eof", plain, nil, clipper.SpeedChoice{Speed: clipper.SpeedMedium}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, _ := newOp(lines(tt.input...))
			got, err := op.ChooseSpeed(ctx, tt.site)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOperator_SpeedMenuShowsRapidOnlyWhenCompatible(t *testing.T) {
	op, out := newOp(lines(""))
	_, _ = op.ChooseSpeed(context.Background(), config.Site{Key: "giant"})
	assert.NotContains(t, out.String(), "5. Rapid")

	op, out = newOp(lines(""))
	_, _ = op.ChooseSpeed(context.Background(), config.Site{Key: "weis", Name: "Weis Markets",
		SiteSettings: config.SiteSettings{RapidModeCompatible: true}})
	assert.Contains(t, out.String(), "5. Rapid (оптимизировано для Weis Markets)")
}

func TestOperator_IdentifyButton(t *testing.T) {
	ctx := context.Background()

	op, _ := newOp(lines("", "1", "button.clip"))
	hint, err := op.IdentifyButton(ctx)
	require.NoError(t, err)
	assert.Equal(t, clipper.ButtonHint{Selector: "button.clip"}, hint)

	op, _ = newOp(lines("1", "", "Get deal"))
	hint, err = op.IdentifyButton(ctx)
	require.NoError(t, err)
	assert.Equal(t, clipper.ButtonHint{Text: "Get deal"}, hint)

	op, _ = newOp(lines("2"))
	hint, err = op.IdentifyButton(ctx)
	require.NoError(t, err)
	assert.True(t, hint.Skip)

	op, _ = newOp(lines("1", "2", ""))
	hint, _ = op.IdentifyButton(ctx)
	assert.True(t, hint.Skip)
}

func TestOperator_RateLimitPrompts(t *testing.T) {
	ctx := context.Background()
	site := config.Site{Key: "weis"}

	for input, want := range map[string]clipper.RateLimitMode{
		"": clipper.RateLimitAuto, "2": clipper.RateLimitOff, "3": clipper.RateLimitManual, "9": clipper.RateLimitAuto,
	} {
		op, _ := newOp(lines(input))
		got, err := op.ChooseRateLimitMode(ctx, site)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ввод %q", input)
	}

	for input, want := range map[string]clipper.RateLimitDecision{
		"": clipper.RateLimitConfirm, "2": clipper.RateLimitIgnore, "3": clipper.RateLimitIgnoreAndDisable,
	} {
		op, _ := newOp(lines(input))
		got, err := op.ConfirmRateLimit(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ввод %q", input)
	}
}

func TestOperator_ControlMenu(t *testing.T) {
	ctx := context.Background()
	want := []clipper.ControlAction{
		clipper.ActionContinue, clipper.ActionSkipSite, clipper.ActionMenu,
		clipper.ActionQuit, clipper.ActionToggleRateLimit, clipper.ActionReconnect,
	}
	for i, action := range want {
		op, out := newOp(lines(string(rune('1' + i))))
		got, err := op.ControlMenu(ctx, 12, 30)
		require.NoError(t, err)
		assert.Equal(t, action, got)
		assert.Contains(t, out.String(), "отмечено 12, осталось ~30")
	}

	op, out := newOp(lines("2"))
	got, err := op.ControlMenu(ctx, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, clipper.ActionSkipSite, got)
	assert.Contains(t, out.String(), "идет загрузка купонов")
	assert.NotContains(t, out.String(), "осталось")

	// Ctrl+C в меню паузы пропускает сайт
	op, _ = newOp((&scripted{}).then(readline.ErrInterrupt))
	got, err = op.ControlMenu(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, clipper.ActionSkipSite, got)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	op, _ = newOp(lines("1"))
	got, err = op.ControlMenu(cctx, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, clipper.ActionQuit, got)
}

func TestOperator_ReconnectFailed(t *testing.T) {
	ctx := context.Background()
	for input, want := range map[string]clipper.ReconnectChoice{
		"": clipper.ReconnectRetry, "2": clipper.ReconnectSkip, "3": clipper.ReconnectQuit,
	} {
		op, _ := newOp(lines(input))
		got, err := op.ReconnectFailed(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	op, _ := newOp(&scripted{})
	got, err := op.ReconnectFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, clipper.ReconnectSkip, got)
}

func TestOperator_WaitForHuman(t *testing.T) {
	ctx := context.Background()

	op, out := newOp(lines(""))
	require.NoError(t, op.SolveCaptcha(ctx))
	assert.Contains(t, out.String(), "CAPTCHA")

	op, _ = newOp(lines(""))
	require.NoError(t, op.Login(ctx))

	op, _ = newOp((&scripted{}).then(io.EOF))
	assert.ErrorIs(t, op.Login(ctx), clipper.ErrOperatorUnavailable)

	op, _ = newOp((&scripted{}).then(readline.ErrInterrupt))
	assert.ErrorIs(t, op.SolveCaptcha(ctx), clipper.ErrOperatorUnavailable)

	op, out = newOp(&scripted{})
	op.Notify("Проверка rate limit выключена")
	assert.Contains(t, out.String(), "Проверка rate limit выключена")
}
