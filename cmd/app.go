package main

import (
	"fmt"

	"couponClipper/internal/browser"
	"couponClipper/internal/clipper"
	"couponClipper/internal/config"
	"couponClipper/internal/database"
	"couponClipper/internal/llm"
	"couponClipper/internal/logger"
	"couponClipper/internal/migrations"
)

// app собирает общие зависимости всех команд.
type app struct {
	cfg   *config.Cfg
	log   *logger.Zap
	db    *database.Database
	store database.StatsRepository
	llm   *llm.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	if browserMode != "" {
		cfg.Browser.Mode = browserMode
	}
	if verbose {
		cfg.Logger.Level = "debug"
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level, cfg.Logger.File)
	if err != nil {
		return nil, fmt.Errorf("ошибка логгера: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	if err := migrations.Run(cfg, log); err != nil {
		return nil, err
	}

	var llmLog llm.Logger
	if cfg.Database.Enabled() {
		db, err := database.New(cfg, log)
		if err != nil {
			return nil, err
		}
		repo := database.NewPostgresRepository(db.DB)
		a.db, a.store, llmLog = db, repo, repo
	} else {
		repo, err := database.NewFileRepository(cfg.State.File)
		if err != nil {
			return nil, err
		}
		a.store = repo
		log.Debug("Статистика пишется в файл " + cfg.State.File)
	}

	if cfg.OpenAI.KeyAI != "" {
		a.llm = llm.NewClient(cfg.OpenAI, llmLog)
	}
	return a, nil
}

func (a *app) newBrowser() *browser.PlaywrightBrowser {
	br := browser.New(browser.Config{
		Mode:         a.cfg.Browser.Mode,
		Headless:     a.cfg.Browser.Headless,
		UserDataDir:  a.cfg.Browser.UserDataDir,
		BrowsersPath: a.cfg.Browser.BrowsersPath,
		Display:      a.cfg.Browser.Display,
		CDPURL:       a.cfg.Browser.CDPURL,
		Channel:      a.cfg.Browser.Channel,
	})
	if a.llm != nil {
		br.SetPopupDetector(browser.NewLLMPopupDetector(a.llm))
	}
	return br
}

func (a *app) newClipper(br browser.Browser, op clipper.Operator, interrupts <-chan struct{}) *clipper.Clipper {
	d := clipper.Deps{
		Browser:    br,
		Catalog:    a.cfg.Clipper.Sites,
		Settings:   a.cfg.Clipper.Settings,
		Store:      a.store,
		Operator:   op,
		Log:        a.log,
		Interrupts: interrupts,
	}
	if a.llm != nil {
		d.Advisor = a.llm
	}
	return clipper.New(d)
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close(a.log)
	}
	_ = a.log.Sync()
}

// unattendedSpeed разбирает --speed. Custom без вопросов не имеет смысла.
func unattendedSpeed(s string) (clipper.Speed, error) {
	switch v := clipper.Speed(s); v {
	case clipper.SpeedSlow, clipper.SpeedMedium, clipper.SpeedFast, clipper.SpeedRapid:
		return v, nil
	}
	return "", fmt.Errorf("неизвестная скорость %q (slow, medium, fast, rapid)", s)
}
