package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"couponClipper/internal/cli/ui"
	"couponClipper/internal/clipper"
	"couponClipper/internal/config"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"

	"go.uber.org/zap"
)

// Runner - часть clipper.Clipper, нужная консоли.
type Runner interface {
	Run(ctx context.Context, siteKey string) (*clipper.Result, error)
	Catalog() *config.Catalog
}

// ClipHandler запускает проходы по сайтам
type ClipHandler struct {
	runner     Runner
	store      database.StatsRepository
	interrupts chan<- struct{}
	readLine   func(prompt string) (string, error)
	log        *logger.Zap
	out        io.Writer
}

func NewClipHandler(runner Runner, store database.StatsRepository, interrupts chan<- struct{},
	readLine func(prompt string) (string, error), log *logger.Zap, out io.Writer) *ClipHandler {
	return &ClipHandler{
		runner:     runner,
		store:      store,
		interrupts: interrupts,
		readLine:   readLine,
		log:        log,
		out:        out,
	}
}

// Clip проходит сайт по номеру или ключу, "all" проходит все по порядку.
// Без аргумента спрашивает номер, по Enter берет последний сайт.
// Возвращает true, если оператор выбрал выход из программы.
func (h *ClipHandler) Clip(ctx context.Context, arg string) bool {
	catalog := h.runner.Catalog()
	arg = strings.TrimSpace(arg)

	if arg == "" {
		var ok bool
		if arg, ok = h.ask(ctx); !ok {
			return false
		}
	}

	var keys []string
	if arg == "all" {
		keys = catalog.Keys()
	} else {
		site, ok := catalog.Resolve(arg)
		if !ok {
			fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Сайт не найден:"+ui.ColorReset+" %s\n", arg)
			return false
		}
		keys = []string{site.Key}
	}

	if h.interrupts != nil {
		stop := WatchInterrupts(h.interrupts)
		defer stop()
	}

	for _, key := range keys {
		site, _ := catalog.Get(key)
		fmt.Fprintf(h.out, "\n"+ui.ColorCyan+ui.IconScissors+" Клиппинг %s..."+ui.ColorReset+"\n", site.DisplayName())
		fmt.Fprintln(h.out, ui.ColorGray+"Ctrl+C для паузы"+ui.ColorReset)

		res, err := h.runner.Run(ctx, key)
		if res != nil {
			PrintSession(h.out, res.Session)
		}
		if err != nil {
			h.report(key, err)
			return false
		}
		switch res.Outcome {
		case clipper.OutcomeQuit:
			return true
		case clipper.OutcomeMenu:
			return false
		}
	}
	return false
}

func (h *ClipHandler) ask(ctx context.Context) (string, bool) {
	last := ""
	if h.store != nil {
		last, _ = h.store.LastSite(ctx)
	}

	for i, s := range h.runner.Catalog().Sites() {
		fmt.Fprintf(h.out, "  %d. %s\n", i+1, s.DisplayName())
	}
	prompt := "Номер сайта (0 = отмена): "
	if last != "" {
		prompt = fmt.Sprintf("Номер сайта (Enter = %s, 0 = отмена): ", last)
	}

	line, err := h.readLine(prompt)
	if err != nil {
		return "", false
	}
	line = strings.TrimSpace(line)
	switch {
	case line == "0":
		return "", false
	case line == "" && last == "":
		return "", false
	case line == "":
		return last, true
	}
	return line, true
}

func (h *ClipHandler) report(key string, err error) {
	switch {
	case errors.Is(err, clipper.ErrBusy):
		fmt.Fprintln(h.out, ui.ColorYellow+ui.IconWarning+" Клиппинг уже идет (по расписанию?), попробуйте позже"+ui.ColorReset)
	case errors.Is(err, clipper.ErrUnknownSite):
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Сайт не найден:"+ui.ColorReset+" %s\n", key)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(h.out, ui.ColorYellow+"Проход отменен"+ui.ColorReset)
	default:
		h.log.Error("Ошибка клиппинга", zap.String("site", key), zap.Error(err))
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
	}
}

// WatchInterrupts пересылает Ctrl+C в канал клипера, пока идет проход.
// Сигнал не копится: если прошлый еще не прочитан, новый отбрасывается.
func WatchInterrupts(interrupts chan<- struct{}) (stop func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sig:
				select {
				case interrupts <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}
