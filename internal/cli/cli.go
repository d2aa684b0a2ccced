// Package cli - интерактивная консоль: выбор сайта, запуск клиппинга,
// статистика и ответы оператора на вопросы клипера.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"couponClipper/internal/browser"
	"couponClipper/internal/cli/commands"
	"couponClipper/internal/cli/ui"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"
)

// Deps - зависимости консоли. Interrupts должен быть тем же каналом,
// который читает клипер.
type Deps struct {
	Clipper    commands.Runner
	Store      database.StatsRepository
	Browser    browser.Browser
	Usage      commands.UsageReporter
	Interrupts chan<- struct{}
	Input      LineReader
	Out        io.Writer
	Log        *logger.Zap
}

type CLI struct {
	in             LineReader
	out            io.Writer
	log            *logger.Zap
	mode           string
	sitesHandler   *commands.SitesHandler
	clipHandler    *commands.ClipHandler
	statsHandler   *commands.StatsHandler
	browserHandler *commands.BrowserHandler
}

func New(d Deps) *CLI {
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}

	cli := &CLI{
		in:  d.Input,
		out: d.Out,
		log: d.Log,
	}
	if d.Browser != nil {
		cli.mode = d.Browser.Mode()
	}

	// Инициализация handlers
	cli.sitesHandler = commands.NewSitesHandler(d.Clipper.Catalog(), d.Store, d.Out)
	cli.clipHandler = commands.NewClipHandler(d.Clipper, d.Store, d.Interrupts, d.Input.ReadLine, d.Log, d.Out)
	cli.statsHandler = commands.NewStatsHandler(d.Store, d.Usage, d.Log, d.Out)
	cli.browserHandler = commands.NewBrowserHandler(d.Browser, d.Out)

	return cli
}

// historian - ввод, который ведет историю команд.
type historian interface {
	Remember(line string)
}

// Run читает команды, пока не будет exit, Ctrl+D или выход из меню паузы.
func (c *CLI) Run(ctx context.Context) error {
	ui.PrintWelcome(c.out, c.mode)

	for {
		// Проверка отмены контекста
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out, "\n"+ui.ColorCyan+ui.IconWave+" Получен сигнал завершения..."+ui.ColorReset)
			return nil
		default:
		}

		line, err := c.in.ReadLine("> ")
		if isInterrupt(err) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ошибка чтения команды: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if h, ok := c.in.(historian); ok {
			h.Remember(line)
		}

		if quit := c.handleCommand(ctx, line); quit {
			fmt.Fprintln(c.out, ui.ColorCyan+ui.IconWave+" До свидания!"+ui.ColorReset)
			return nil
		}
	}
}

// handleCommand выполняет команду и сообщает, пора ли выходить.
func (c *CLI) handleCommand(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "exit", "quit":
		return true

	case "clear":
		ui.ClearScreen(c.out)

	case "sites":
		c.sitesHandler.List(ctx)

	case "clip":
		return c.clipHandler.Clip(ctx, arg)

	case "stats":
		c.statsHandler.Totals(ctx)

	case "history":
		c.statsHandler.History(ctx, arg)

	case "launch":
		c.browserHandler.Launch(ctx, arg)

	case "close":
		c.browserHandler.Close()

	default:
		ui.PrintHelp(c.out)
	}
	return false
}
