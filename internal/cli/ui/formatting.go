package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"couponClipper/internal/database"
)

// FormatStatus возвращает иконку, цвет и текст для статуса прохода
func FormatStatus(status string) (icon, color, text string) {
	switch status {
	case database.StatusCompleted:
		return IconCheckmark, ColorGreen, "завершен"
	case database.StatusFailed:
		return IconCross, ColorRed, "ошибка"
	case database.StatusSkipped:
		return IconSkip, ColorYellow, "пропущен"
	case database.StatusAborted:
		return IconPause, ColorYellow, "прерван"
	default:
		return IconTime, ColorGray, status
	}
}

// FormatDuration печатает длительность с точностью до секунды.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	return d.Round(time.Second).String()
}

// Banner печатает заголовок в рамке из "=".
func Banner(w io.Writer, lines ...string) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(w, "\n"+ColorYellow+rule+ColorReset)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, ColorYellow+rule+ColorReset)
}

// ClearScreen очищает терминал
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}
