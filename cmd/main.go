package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Глобальные флаги
	browserMode string
	verbose     bool
)

// rootCmd без подкоманды запускает интерактивную консоль
var rootCmd = &cobra.Command{
	Use:   "couponclipper",
	Short: "Отмечает купоны на сайтах продуктовых магазинов",
	Long: `Coupon Clipper открывает сайты магазинов в Chrome через Playwright,
находит кнопки купонов и отмечает их, подстраивая темп под rate limit сайта.

Без аргументов запускается интерактивная консоль.
Настройки читаются из .env и переменных окружения.`,
	SilenceUsage: true,
	RunE:         runConsole,
}

var clipCmd = &cobra.Command{
	Use:   "clip <site>...",
	Short: "Отметить купоны на указанных сайтах по порядку",
	Long: `Проходит сайты по порядку. Сайт задается ключом или номером из списка.

Пример:
  couponclipper clip giant weis
  couponclipper clip --unattended --speed slow 1 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClip,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Только HTTP API статуса",
	Long: `Запускает HTTP API на SERVER_ADDR (по умолчанию 127.0.0.1:8080):
  GET /health, /api/sites, /api/stats, /api/sessions?limit=`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Клиппинг по расписанию без участия человека",
	Long: `Проходит сайты из SCHEDULE_SITES по расписанию SCHEDULE_CRON.
Сайты, где нужна CAPTCHA, вход или ручной выбор кнопки, пропускаются.
Если задан SERVER_ADDR, рядом поднимается HTTP API.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var (
	unattended bool
	speed      string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&browserMode, "mode", "", "Режим браузера: profile, clean, attach (или BROWSER_MODE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Подробный лог")

	clipCmd.Flags().BoolVar(&unattended, "unattended", false, "Не задавать вопросов: пропускать сайты, где нужен человек")
	clipCmd.Flags().StringVar(&speed, "speed", "medium", "Скорость без вопросов: slow, medium, fast, rapid")
	scheduleCmd.Flags().StringVar(&speed, "speed", "medium", "Скорость: slow, medium, fast, rapid")

	rootCmd.AddCommand(clipCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
