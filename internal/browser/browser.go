package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

const defaultCDPURL = "http://127.0.0.1:9222"

func New(cfg Config) *PlaywrightBrowser {
	// Установка дефолтных таймаутов
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 60 * time.Second // Navigate обычно дольше
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = 10 * time.Second
	}
	if cfg.ClickTimeout == 0 {
		cfg.ClickTimeout = 3 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeProfile
	}
	if cfg.CDPURL == "" {
		cfg.CDPURL = defaultCDPURL
	}

	return &PlaywrightBrowser{
		cfg: cfg,
	}
}

func (b *PlaywrightBrowser) SetPopupDetector(detector PopupDetector) {
	b.popupDetector = detector
}

func (b *PlaywrightBrowser) Mode() string {
	return b.cfg.Mode
}

// SetMode меняет режим для следующего Launch/Reconnect.
func (b *PlaywrightBrowser) SetMode(mode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Mode = mode
}

// getPage безопасно возвращает текущую страницу с read lock
func (b *PlaywrightBrowser) getPage() playwright.Page {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.page
}

// setPage безопасно устанавливает страницу с write lock
func (b *PlaywrightBrowser) setPage(page playwright.Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page = page
}

// Page возвращает обертку над текущей вкладкой.
func (b *PlaywrightBrowser) Page() (Page, error) {
	page := b.getPage()
	if page == nil {
		return nil, ErrNotLaunched
	}
	return &playwrightPage{page: page, clickTimeout: b.cfg.ClickTimeout}, nil
}

func (b *PlaywrightBrowser) getEnvMap() map[string]string {
	if b.cfg.Display != "" {
		return map[string]string{
			"DISPLAY": b.cfg.Display,
		}
	}
	return nil
}

func (b *PlaywrightBrowser) channel() *string {
	if b.cfg.Channel == "" {
		return nil
	}
	return playwright.String(b.cfg.Channel)
}

func (b *PlaywrightBrowser) launchPersistent(pw *playwright.Playwright) error {
	if err := os.MkdirAll(b.cfg.UserDataDir, 0o755); err != nil {
		return fmt.Errorf("не удалось создать каталог профиля: %w", err)
	}

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(b.cfg.Headless),
		Args:              stealthArgs(),
		IgnoreDefaultArgs: ignoredDefaultArgs(),
		Channel:           b.channel(),
		NoViewport:        playwright.Bool(true),
	}

	if env := b.getEnvMap(); env != nil {
		opts.Env = env
	}

	browserContext, err := pw.Chromium.LaunchPersistentContext(b.cfg.UserDataDir, opts)
	if err != nil {
		return err
	}

	return b.adoptContext(browserContext)
}

func (b *PlaywrightBrowser) launchClean(pw *playwright.Playwright) error {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless:          playwright.Bool(b.cfg.Headless),
		Args:              stealthArgs(),
		IgnoreDefaultArgs: ignoredDefaultArgs(),
		Channel:           b.channel(),
	}

	if env := b.getEnvMap(); env != nil {
		opts.Env = env
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.browser = browser
	b.mu.Unlock()

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		NoViewport: playwright.Bool(true),
	})
	if err != nil {
		return err
	}

	return b.adoptContext(browserContext)
}

// launchAttach подключается к уже запущенному Chrome с --remote-debugging-port.
func (b *PlaywrightBrowser) launchAttach(pw *playwright.Playwright) error {
	browser, err := pw.Chromium.ConnectOverCDP(b.cfg.CDPURL)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к %s: %w", b.cfg.CDPURL, err)
	}

	b.mu.Lock()
	b.browser = browser
	b.mu.Unlock()

	contexts := browser.Contexts()
	if len(contexts) == 0 {
		browserContext, err := browser.NewContext()
		if err != nil {
			return err
		}
		return b.adoptContext(browserContext)
	}
	return b.adoptContext(contexts[0])
}

// adoptContext берет первую вкладку контекста и вешает stealth-скрипт.
func (b *PlaywrightBrowser) adoptContext(browserContext playwright.BrowserContext) error {
	if err := browserContext.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		return fmt.Errorf("ошибка установки stealth-скрипта: %w", err)
	}

	b.mu.Lock()
	b.context = browserContext
	b.mu.Unlock()

	pages := browserContext.Pages()
	var page playwright.Page
	var err error
	if len(pages) == 0 {
		page, err = browserContext.NewPage()
		if err != nil {
			return err
		}
	} else {
		page = pages[0]
	}

	b.setPage(page)
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))
	return nil
}

func (b *PlaywrightBrowser) Launch(ctx context.Context) error {
	if b.getPage() != nil {
		return nil
	}

	if b.cfg.BrowsersPath != "" {
		os.Setenv("PLAYWRIGHT_BROWSERS_PATH", b.cfg.BrowsersPath)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("не удалось запустить playwright: %w", err)
	}
	b.mu.Lock()
	b.pw = pw
	b.mu.Unlock()

	switch b.cfg.Mode {
	case ModeAttach:
		err = b.launchAttach(pw)
	case ModeClean:
		err = b.launchClean(pw)
	default:
		err = b.launchPersistent(pw)
	}
	if err != nil {
		b.Close()
		return fmt.Errorf("ошибка запуска браузера (%s): %w", b.cfg.Mode, err)
	}
	return nil
}

func (b *PlaywrightBrowser) Navigate(ctx context.Context, url string) error {
	page := b.getPage()
	if page == nil {
		return ErrNotLaunched
	}

	// Создаем context с timeout для navigate операции
	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()

	// Channel для получения результата
	errChan := make(chan error, 1)
	go func() {
		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(b.cfg.NavigateTimeout.Milliseconds())),
		})
		errChan <- err
	}()

	// Ждем результат или timeout
	select {
	case <-navCtx.Done():
		return fmt.Errorf("navigate timeout after %v", b.cfg.NavigateTimeout)
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *PlaywrightBrowser) Reload(ctx context.Context) error {
	page := b.getPage()
	if page == nil {
		return ErrNotLaunched
	}

	_, err := page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.cfg.NavigateTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("ошибка перезагрузки страницы: %w", err)
	}
	return nil
}

// Alive проверяет, что вкладка отвечает на простой evaluate.
func (b *PlaywrightBrowser) Alive(ctx context.Context) bool {
	page := b.getPage()
	if page == nil || page.IsClosed() {
		return false
	}

	done := make(chan bool, 1)
	go func() {
		v, err := page.Evaluate(`() => 1`)
		done <- err == nil && v != nil
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	case <-time.After(b.cfg.ActionTimeout):
		return false
	}
}

// Reconnect закрывает текущую сессию и запускает браузер заново в том же режиме.
func (b *PlaywrightBrowser) Reconnect(ctx context.Context) error {
	_ = b.Close()
	return b.Launch(ctx)
}

func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	// В attach-режиме не закрываем чужой Chrome, только отключаемся.
	if b.context != nil && b.cfg.Mode != ModeAttach {
		if err := b.context.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	b.context = nil
	b.browser = nil
	b.page = nil
	b.pw = nil
	return firstErr
}
