package ui

import (
	"fmt"
	"io"
	"os"
)

// PrintWelcome выводит приветствие и лого
func PrintWelcome(w io.Writer, mode string) {
	logoBytes, err := os.ReadFile("logo.txt")
	if err == nil {
		fmt.Fprintln(w, ColorCyan+string(logoBytes)+ColorReset)
	}
	fmt.Fprintln(w, ColorBold+IconScissors+" Coupon Clipper v0.2.0"+ColorReset)
	fmt.Fprintln(w, ColorGray+"Отмечает купоны на сайтах продуктовых магазинов"+ColorReset)
	fmt.Fprintln(w, ColorGray+"Браузер: Chrome через Playwright, режим "+mode+ColorReset)
	fmt.Fprintln(w)
	PrintHelp(w)
	fmt.Fprintln(w, ColorCyan+IconBulb+" Совет:"+ColorReset+" залогиньтесь на сайтах в профиле браузера, затем "+ColorYellow+"clip"+ColorReset+" <номер>")
	fmt.Fprintln(w, ColorGray+"Ctrl+C во время клиппинга открывает меню паузы"+ColorReset)
	fmt.Fprintln(w)
}

// PrintHelp выводит список доступных команд
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, ColorYellow+IconList+" Доступные команды:"+ColorReset)
	fmt.Fprintln(w, "  "+ColorGreen+"sites"+ColorReset+"                 - Список сайтов")
	fmt.Fprintln(w, "  "+ColorGreen+"clip"+ColorReset+" [номер|ключ|all] - Отметить купоны на сайте")
	fmt.Fprintln(w, "  "+ColorGreen+"stats"+ColorReset+"                 - Статистика по сайтам")
	fmt.Fprintln(w, "  "+ColorGreen+"history"+ColorReset+" [n]           - Последние проходы")
	fmt.Fprintln(w, "  "+ColorGreen+"launch"+ColorReset+" [режим]        - Запустить браузер (profile, clean, attach)")
	fmt.Fprintln(w, "  "+ColorGreen+"close"+ColorReset+"                 - Закрыть браузер")
	fmt.Fprintln(w, "  "+ColorGreen+"clear"+ColorReset+"                 - Очистить экран")
	fmt.Fprintln(w, "  "+ColorGreen+"exit"+ColorReset+"                  - Выход")
	fmt.Fprintln(w)
}
