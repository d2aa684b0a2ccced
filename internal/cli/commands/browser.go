package commands

import (
	"context"
	"fmt"
	"io"

	"couponClipper/internal/browser"
	"couponClipper/internal/cli/ui"
)

// modeSwitcher - браузер, который умеет менять режим запуска.
type modeSwitcher interface {
	SetMode(mode string)
}

// BrowserHandler обрабатывает команды браузера
type BrowserHandler struct {
	browser browser.Browser
	out     io.Writer
}

func NewBrowserHandler(br browser.Browser, out io.Writer) *BrowserHandler {
	return &BrowserHandler{
		browser: br,
		out:     out,
	}
}

// Launch запускает браузер. Пустой mode оставляет текущий режим.
func (h *BrowserHandler) Launch(ctx context.Context, mode string) {
	if h.browser == nil {
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Браузер не инициализирован"+ui.ColorReset)
		return
	}

	if mode != "" {
		switch mode {
		case browser.ModeProfile, browser.ModeClean, browser.ModeAttach:
		default:
			fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Неизвестный режим:"+ui.ColorReset+" %s (profile, clean, attach)\n", mode)
			return
		}
		sw, ok := h.browser.(modeSwitcher)
		if !ok {
			fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Браузер не поддерживает смену режима"+ui.ColorReset)
			return
		}
		// Новый режим применяется только к свежему запуску
		_ = h.browser.Close()
		sw.SetMode(mode)
	}

	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconGlobe+" Запуск браузера (%s)..."+ui.ColorReset+"\n", h.browser.Mode())
	if err := h.browser.Launch(ctx); err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Ошибка запуска:"+ui.ColorReset+" %v\n", err)
		return
	}

	fmt.Fprintln(h.out, ui.ColorGreen+ui.IconCheckmark+" Браузер готов"+ui.ColorReset)
	if h.browser.Mode() == browser.ModeAttach {
		fmt.Fprintln(h.out, ui.ColorGray+"Подключено к уже запущенному Chrome с --remote-debugging-port"+ui.ColorReset)
	} else {
		fmt.Fprintln(h.out, ui.ColorGray+"Можно вручную залогиниться на сайтах, затем выполнить "+ui.ColorYellow+"clip"+ui.ColorReset)
	}
}

// Close закрывает браузер. Профиль сохраняется на диске.
func (h *BrowserHandler) Close() {
	if h.browser == nil {
		return
	}
	if err := h.browser.Close(); err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Ошибка закрытия:"+ui.ColorReset+" %v\n", err)
		return
	}
	fmt.Fprintln(h.out, ui.ColorGray+"Браузер закрыт"+ui.ColorReset)
}
