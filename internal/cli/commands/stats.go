package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"couponClipper/internal/cli/ui"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"

	"go.uber.org/zap"
)

const defaultHistory = 10

// UsageReporter - остаток бюджета LLM.
type UsageReporter interface {
	Usage() (requests int, tokens int)
}

// StatsHandler обрабатывает команды статистики
type StatsHandler struct {
	store database.StatsRepository
	usage UsageReporter
	log   *logger.Zap
	out   io.Writer
}

func NewStatsHandler(store database.StatsRepository, usage UsageReporter, log *logger.Zap, out io.Writer) *StatsHandler {
	return &StatsHandler{
		store: store,
		usage: usage,
		log:   log,
		out:   out,
	}
}

// Totals выводит накопленные счетчики по сайтам
func (h *StatsHandler) Totals(ctx context.Context) {
	totals, err := h.store.SiteTotals(ctx)
	if err != nil {
		h.log.Error("Ошибка получения статистики", zap.Error(err))
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Ошибка получения статистики"+ui.ColorReset)
		return
	}

	fmt.Fprintln(h.out, "\n"+ui.ColorBold+ui.IconChart+" Статистика:"+ui.ColorReset)
	if len(totals) == 0 {
		fmt.Fprintln(h.out, ui.ColorGray+"Проходов пока не было"+ui.ColorReset)
	}

	sum := 0
	for _, t := range totals {
		sum += t.Clipped
		fmt.Fprintf(h.out, "  "+ui.ColorGreen+"%-10s"+ui.ColorReset+" отмечено: %-5d проходов: %-4d последний: %s\n",
			t.SiteKey, t.Clipped, t.Sessions, t.LastRunAt.Format("2006-01-02 15:04"))
	}
	if len(totals) > 0 {
		fmt.Fprintf(h.out, "  "+ui.ColorBold+"Всего отмечено: %d"+ui.ColorReset+"\n", sum)
	}

	if h.usage != nil {
		req, tok := h.usage.Usage()
		fmt.Fprintf(h.out, "  "+ui.ColorGray+"AI: доступно запросов %d, токенов %d"+ui.ColorReset+"\n", req, tok)
	}
	fmt.Fprintln(h.out)
}

// History выводит последние проходы, по умолчанию десять
func (h *StatsHandler) History(ctx context.Context, arg string) {
	limit := defaultHistory
	if arg = strings.TrimSpace(arg); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Неверное число проходов"+ui.ColorReset)
			return
		}
		limit = n
	}

	sessions, err := h.store.ListSessions(ctx, limit)
	if err != nil {
		h.log.Error("Ошибка получения истории", zap.Error(err))
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Ошибка получения истории"+ui.ColorReset)
		return
	}

	fmt.Fprintf(h.out, "\n"+ui.ColorBold+ui.IconTime+" Последние проходы (%d):"+ui.ColorReset+"\n", len(sessions))
	for _, s := range sessions {
		PrintSession(h.out, s)
	}
	fmt.Fprintln(h.out)
}

// PrintSession печатает одну строку о проходе.
func PrintSession(w io.Writer, s database.ClipSession) {
	icon, color, text := ui.FormatStatus(s.Status)
	fmt.Fprintf(w, "  %s%s %-9s"+ui.ColorReset+" %s "+ui.ColorGreen+"%-10s"+ui.ColorReset+
		" найдено %d, отмечено %d, уже было %d, ошибок %d, rate limit %d, %s\n",
		color, icon, text, s.StartedAt.Format("01-02 15:04"), s.SiteKey,
		s.Total, s.Clipped, s.AlreadyClipped, s.Failed, s.RateLimitHits,
		ui.FormatDuration(s.FinishedAt.Sub(s.StartedAt)))
	if s.Error != "" {
		fmt.Fprintf(w, "    "+ui.ColorRed+"%s"+ui.ColorReset+"\n", s.Error)
	}
}
