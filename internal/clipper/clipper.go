package clipper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxIdleRefreshes = 3
	persistTimeout   = 10 * time.Second
)

// Deps - зависимости клипера. Sleep, Rand и Now подменяются в тестах.
type Deps struct {
	Browser    browser.Browser
	Catalog    *config.Catalog
	Settings   config.Settings
	Store      database.StatsRepository
	Operator   Operator
	Advisor    SelectorAdvisor
	Log        *logger.Zap
	Interrupts <-chan struct{}
	Sleep      SleepFunc
	Rand       func() float64
	Now        func() time.Time
}

type Clipper struct {
	d  Deps
	mu sync.Mutex
}

func New(d Deps) *Clipper {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Catalog == nil {
		d.Catalog = config.DefaultCatalog()
	}
	if d.Operator == nil {
		d.Operator = NewUnattendedOperator(d.Log.Logger, SpeedMedium)
	}
	if d.Sleep == nil {
		d.Sleep = contextSleep
	}
	if d.Rand == nil {
		d.Rand = rand.Float64
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Clipper{d: d}
}

func (c *Clipper) Catalog() *config.Catalog {
	return c.d.Catalog
}

// Run проходит один сайт. Ошибки самого прохода попадают в сессию;
// ошибка возвращается, только если проход не начался или отменен ctx.
func (c *Clipper) Run(ctx context.Context, siteKey string) (*Result, error) {
	site, ok := c.d.Catalog.Get(siteKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, siteKey)
	}
	if !c.mu.TryLock() {
		return nil, ErrBusy
	}
	defer c.mu.Unlock()

	c.drainInterrupts()

	r := c.newRun(site, uuid.NewString())
	r.log.Info("Начало прохода", zap.String("url", site.URL))

	err := r.execute(ctx)
	r.finish(err)

	r.log.Info("Проход завершен",
		zap.String("status", r.session.Status),
		zap.Int("total", r.session.Total),
		zap.Int("clipped", r.session.Clipped),
		zap.Int("already_clipped", r.session.AlreadyClipped),
		zap.Int("failed", r.session.Failed),
		zap.Int("rate_limit_hits", r.session.RateLimitHits),
	)

	c.persist(ctx, r)

	res := &Result{Session: *r.session, Outcome: r.outcome}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	return res, nil
}

// RunSites проходит сайты по порядку, пока оператор не выберет меню или выход.
func (c *Clipper) RunSites(ctx context.Context, keys []string) ([]Result, error) {
	results := make([]Result, 0, len(keys))
	for _, key := range keys {
		res, err := c.Run(ctx, key)
		if res != nil {
			results = append(results, *res)
		}
		if err != nil {
			return results, err
		}
		if res.Outcome != OutcomeNext {
			break
		}
	}
	return results, nil
}

func (c *Clipper) persist(ctx context.Context, r *run) {
	if c.d.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := c.d.Store.RecordSession(ctx, r.session); err != nil {
		r.log.Error("Не удалось сохранить сессию", zap.Error(err))
	}
	if err := c.d.Store.SetLastSite(ctx, r.site.Key); err != nil {
		r.log.Error("Не удалось сохранить последний сайт", zap.Error(err))
	}
}

// drainInterrupts сбрасывает Ctrl+C, нажатые вне прохода.
func (c *Clipper) drainInterrupts() {
	for {
		select {
		case <-c.d.Interrupts:
		default:
			return
		}
	}
}

func (c *Clipper) newRun(site config.Site, runID string) *run {
	log := c.d.Log.ForSite(site.Key, runID)
	settings := c.d.Settings

	r := &run{
		c:        c,
		site:     site,
		settings: settings,
		log:      log,
		limiter:  &rateLimiter{log: log, sleep: c.d.Sleep},
		locator:  &locator{log: log},
		clicker:  &clicker{log: log, sleep: c.d.Sleep, maxRetries: settings.MaxRetries},
		loader:   &loader{log: log, sleep: c.d.Sleep, settings: settings},
		detector: &detector{log: log, sleep: c.d.Sleep},
		mode:     RateLimitAuto,
		outcome:  OutcomeNext,
		counted:  make(map[string]bool),
		session: &database.ClipSession{
			RunID:     runID,
			SiteKey:   site.Key,
			Status:    database.StatusCompleted,
			StartedAt: c.d.Now(),
		},
	}
	r.loader.checkpoint = r.loadCheckpoint
	return r
}

// run - состояние одного прохода по сайту.
type run struct {
	c        *Clipper
	site     config.Site
	settings config.Settings
	log      *zap.Logger

	limiter  *rateLimiter
	locator  *locator
	clicker  *clicker
	loader   *loader
	detector *detector

	mode    RateLimitMode
	pace    pacing
	hint    *ButtonHint
	outcome Outcome
	// counted - купоны (см. couponIdentity), уже учтенные в Clipped или AlreadyClipped.
	counted map[string]bool
	session *database.ClipSession
}

type stepResult int

const (
	stepNext stepResult = iota
	stepRefresh
)

func (r *run) execute(ctx context.Context) error {
	r.limiter.reset(r.settings)

	if err := r.ensureConnection(ctx); err != nil {
		return err
	}

	if r.site.AskRateLimitMode {
		mode, err := r.c.d.Operator.ChooseRateLimitMode(ctx, r.site)
		if err != nil {
			return err
		}
		r.applyMode(mode)
	}

	if err := r.open(ctx); err != nil {
		return err
	}

	buttons, err := r.locate(ctx)
	if err != nil {
		return err
	}
	if len(buttons) == 0 {
		r.log.Warn("Кнопки купонов не найдены, сайт пропущен")
		r.session.Status = database.StatusSkipped
		return nil
	}

	choice, err := r.c.d.Operator.ChooseSpeed(ctx, r.site)
	if err != nil {
		return err
	}
	r.pace = resolvePacing(choice, r.site, r.settings)
	r.session.Speed = string(choice.Speed)
	if choice.Speed == SpeedRapid && !r.pace.rapid {
		r.session.Speed = string(SpeedMedium)
	}
	r.log.Info("Темп клиппинга", zap.String("speed", r.session.Speed), zap.Stringer("delay", r.pace))

	return r.clipAll(ctx, buttons)
}

func (r *run) applyMode(mode RateLimitMode) {
	r.mode = mode
	if mode == RateLimitOff {
		r.settings.RateLimitDetection = false
	}
	r.log.Info("Режим rate limit", zap.String("mode", string(mode)))
}

// open загружает сайт и доводит страницу до состояния, где видны купоны.
// Переподключение из меню Ctrl+C во время загрузки открывает сайт заново.
func (r *run) open(ctx context.Context) error {
	for {
		err := r.load(ctx)
		if !errors.Is(err, errReopen) {
			return err
		}
		r.log.Info("Повторное открытие сайта после переподключения")
	}
}

func (r *run) load(ctx context.Context) error {
	br := r.c.d.Browser

	err := retryAction(ctx, r.c.d.Sleep, r.settings.MaxRetries, r.settings.InitialBackoff, "navigate", func() error {
		return br.Navigate(ctx, r.site.URL)
	})
	if err != nil {
		return fmt.Errorf("ошибка открытия %s: %w", r.site.URL, err)
	}

	if err := r.c.d.Sleep(ctx, r.settings.DelayMax); err != nil {
		return err
	}

	if err := br.ClosePopups(ctx); err != nil {
		r.log.Warn("Не удалось закрыть попапы", zap.Error(err))
	}

	if _, err := r.detector.handleCaptcha(ctx, br, r.c.d.Operator, r.site); err != nil {
		return err
	}

	page, err := br.Page()
	if err != nil {
		return err
	}
	if r.detector.loginRequired(page) {
		r.c.d.Operator.Notify("Сайт требует входа. Войдите в аккаунт в окне браузера.")
		if err := r.c.d.Operator.Login(ctx); err != nil {
			return err
		}
		if err := r.c.d.Sleep(ctx, loginSettleWait); err != nil {
			return err
		}
		if page, err = br.Page(); err != nil {
			return err
		}
	}

	return r.loader.LoadAll(ctx, page, r.site)
}

// locate: эвристики сайта, затем подсказка LLM, затем оператор.
func (r *run) locate(ctx context.Context) ([]browser.Element, error) {
	page, err := r.c.d.Browser.Page()
	if err != nil {
		return nil, err
	}

	if buttons := r.locator.Locate(page, r.site); len(buttons) > 0 {
		return buttons, nil
	}

	if advisor := r.c.d.Advisor; advisor != nil {
		if buttons := r.locateWithAdvisor(ctx, advisor, page); len(buttons) > 0 {
			return buttons, nil
		}
	}

	r.c.d.Operator.Notify("Кнопки купонов не найдены автоматически.")
	hint, err := r.c.d.Operator.IdentifyButton(ctx)
	if err != nil {
		if errors.Is(err, ErrOperatorUnavailable) {
			return nil, nil
		}
		return nil, err
	}
	if hint.Skip {
		return nil, nil
	}

	r.hint = &hint
	return uniqueVisible(r.locator.FromHint(page, hint)), nil
}

func (r *run) locateWithAdvisor(ctx context.Context, advisor SelectorAdvisor, page browser.Page) []browser.Element {
	snapshot, err := r.c.d.Browser.GetPageSnapshot(ctx)
	if err != nil {
		r.log.Warn("Не удалось снять снимок страницы", zap.Error(err))
		return nil
	}

	selector, err := advisor.SuggestCouponSelector(ctx, r.site.Key, snapshot)
	if err != nil {
		r.log.Warn("LLM не подсказал селектор", zap.Error(err))
		return nil
	}
	if selector == "" {
		return nil
	}

	hint := ButtonHint{Selector: selector}
	buttons := uniqueVisible(r.locator.FromHint(page, hint))
	r.log.Info("Селектор от LLM", zap.String("selector", selector), zap.Int("count", len(buttons)))
	if len(buttons) > 0 {
		r.hint = &hint
	}
	return buttons
}

// relocate ищет кнопки заново тем же способом, каким они были найдены.
func (r *run) relocate() ([]browser.Element, error) {
	page, err := r.c.d.Browser.Page()
	if err != nil {
		return nil, err
	}
	if r.hint != nil {
		return uniqueVisible(r.locator.FromHint(page, *r.hint)), nil
	}
	return r.locator.Locate(page, r.site), nil
}

func (r *run) clipAll(ctx context.Context, buttons []browser.Element) error {
	r.session.Total = len(buttons)

	var preclassified map[string]bool
	if r.pace.rapid {
		preclassified = r.preclassify(buttons)
	}

	var (
		pending      bool
		refreshes    int
		progressMark = r.session.Clipped
		sinceCheck   int
	)

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if pending {
			pending = false
			if r.session.Clipped > progressMark {
				progressMark = r.session.Clipped
				refreshes = 0
			}
			if refreshes < maxIdleRefreshes {
				refreshes++
				fresh, err := r.relocate()
				if err != nil {
					r.log.Warn("Не удалось обновить список кнопок", zap.Error(err))
				} else if len(fresh) > 0 {
					r.log.Debug("Список кнопок обновлен", zap.Int("count", len(fresh)))
					buttons, i = r.restart(fresh), 0
					if r.pace.rapid {
						preclassified = r.preclassify(buttons)
					}
				}
			} else {
				r.log.Warn("Обновления не дают прогресса, кнопка пропущена", zap.Int("index", i))
			}
		}

		if i >= len(buttons) {
			return nil
		}

		select {
		case <-r.c.d.Interrupts:
			action, err := r.control(ctx, len(buttons)-i)
			if err != nil {
				return err
			}
			switch action {
			case ActionSkipSite, ActionMenu:
				return nil
			case ActionReconnect:
				fresh, err := r.reopen(ctx)
				if err != nil {
					return err
				}
				if buttons, i = r.restart(fresh), 0; len(buttons) == 0 {
					return nil
				}
			}
		default:
		}

		sinceCheck++
		if interval := r.settings.ConnectionCheckInterval; interval > 0 && sinceCheck >= interval {
			sinceCheck = 0
			if !r.c.d.Browser.Alive(ctx) {
				r.log.Warn("Соединение с браузером потеряно")
				fresh, err := r.recoverConnection(ctx)
				if err != nil {
					return err
				}
				if buttons, i = r.restart(fresh), 0; len(buttons) == 0 {
					return nil
				}
			}
		}

		res, err := r.step(ctx, buttons[i], i, preclassified)
		if err != nil {
			return err
		}
		if res == stepRefresh {
			pending = true
		}
	}
}

func (r *run) restart(fresh []browser.Element) []browser.Element {
	if len(fresh) > r.session.Total {
		r.session.Total = len(fresh)
	}
	return fresh
}

// preclassify в быстром режиме заранее отмечает уже отмеченные купоны,
// чтобы не проверять их между кликами.
func (r *run) preclassify(buttons []browser.Element) map[string]bool {
	out := make(map[string]bool, len(buttons))
	for _, b := range buttons {
		key, err := b.Key()
		if err != nil {
			continue
		}
		clipped, err := IsClipped(b, r.site.ClippedIndicator)
		if err != nil {
			continue
		}
		out[key] = clipped
	}
	return out
}

func (r *run) step(ctx context.Context, el browser.Element, index int, preclassified map[string]bool) (stepResult, error) {
	log := r.log.With(zap.Int("index", index))

	key, err := el.Key()
	if err != nil {
		if isStale(err) {
			return stepRefresh, nil
		}
		log.Debug("Не удалось получить ключ кнопки", zap.Error(err))
	}
	id, err := couponIdentity(el, key)
	if err != nil {
		return stepRefresh, nil
	}
	if id != "" && r.counted[id] {
		return stepNext, nil
	}

	clipped, known := preclassified[key]
	if !known {
		clipped, err = IsClipped(el, r.site.ClippedIndicator)
		if err != nil {
			log.Debug("Кнопка устарела при проверке", zap.Error(err))
			return stepRefresh, nil
		}
	}
	if clipped {
		if id != "" {
			r.counted[id] = true
		}
		r.session.AlreadyClipped++
		return stepNext, nil
	}

	if err := r.c.d.Sleep(ctx, r.pace.delay(r.limiter, r.settings, r.c.d.Rand)); err != nil {
		return stepNext, err
	}

	page, err := r.c.d.Browser.Page()
	if err != nil {
		return stepNext, err
	}

	ok, err := r.clicker.Click(ctx, page, el, r.site.Click)
	switch {
	case isStale(err):
		log.Debug("Кнопка устарела при клике")
		return stepRefresh, nil
	case err != nil:
		return stepNext, err
	case !ok:
		r.limiter.failure()
		r.session.Failed++
		return stepNext, nil
	}

	r.limiter.success()
	r.session.Clipped++
	if id != "" {
		r.counted[id] = true
	}
	log.Info("Купон отмечен", zap.Int("clipped", r.session.Clipped))

	if !r.pace.rapid || r.settings.ForceRateLimitChecks {
		hit, err := r.checkRateLimit(ctx, page)
		if err != nil {
			return stepNext, err
		}
		if hit {
			return stepRefresh, nil
		}
	}

	if r.pace.rapid {
		return stepNext, nil
	}

	handled, err := r.detector.handleCaptcha(ctx, r.c.d.Browser, r.c.d.Operator, r.site)
	if err != nil {
		return stepNext, err
	}
	if handled {
		return stepRefresh, nil
	}

	if !r.site.SiteSettings.RapidModeCompatible {
		if _, err := el.IsVisible(); isStale(err) {
			return stepRefresh, nil
		}
	}
	return stepNext, nil
}

func (r *run) checkRateLimit(ctx context.Context, page browser.Page) (bool, error) {
	if !r.limiter.detect(page, r.site, r.settings) {
		return false, nil
	}

	if r.mode == RateLimitManual {
		decision, err := r.c.d.Operator.ConfirmRateLimit(ctx)
		if err != nil {
			return false, err
		}
		switch decision {
		case RateLimitIgnore:
			r.log.Info("Оператор проигнорировал rate limit")
			return false, nil
		case RateLimitIgnoreAndDisable:
			r.log.Info("Оператор отключил проверку rate limit")
			r.settings.RateLimitDetection = false
			return false, nil
		}
	}

	r.limiter.markHit()
	r.session.RateLimitHits++
	if err := r.limiter.handle(ctx, r.c.d.Browser, r.c.d.Operator, r.settings); err != nil {
		return false, err
	}
	return true, nil
}

// loadCheckpoint показывает меню Ctrl+C между итерациями загрузки.
func (r *run) loadCheckpoint(ctx context.Context) error {
	select {
	case <-r.c.d.Interrupts:
	default:
		return nil
	}

	action, err := r.control(ctx, -1)
	if err != nil {
		return err
	}
	switch action {
	case ActionSkipSite, ActionMenu:
		return errSiteStopped
	case ActionReconnect:
		if err := r.reconnect(ctx); err != nil {
			return err
		}
		return errReopen
	}
	return nil
}

// control показывает меню Ctrl+C и применяет действия, не требующие
// перезапуска прохода.
func (r *run) control(ctx context.Context, remaining int) (ControlAction, error) {
	action, err := r.c.d.Operator.ControlMenu(ctx, r.session.Clipped, remaining)
	if err != nil {
		return ActionContinue, err
	}

	switch action {
	case ActionSkipSite:
		r.log.Info("Сайт пропущен оператором")
		r.session.Status = database.StatusSkipped
	case ActionMenu:
		r.session.Status = database.StatusAborted
		r.outcome = OutcomeMenu
	case ActionQuit:
		return action, ErrQuit
	case ActionToggleRateLimit:
		r.settings.RateLimitDetection = !r.settings.RateLimitDetection
		state := "выключена"
		if r.settings.RateLimitDetection {
			state = "включена"
		}
		r.c.d.Operator.Notify("Проверка rate limit " + state)
	}
	return action, nil
}

// reopen переподключается по просьбе оператора и ищет кнопки заново.
func (r *run) reopen(ctx context.Context) ([]browser.Element, error) {
	if err := r.c.d.Browser.Reconnect(ctx); err != nil {
		r.log.Warn("Переподключение не удалось", zap.Error(err))
		return r.recoverConnection(ctx)
	}
	if err := r.open(ctx); err != nil {
		return nil, err
	}
	return r.relocate()
}

// ensureConnection запускает браузер, если нужно, и проверяет связь.
func (r *run) ensureConnection(ctx context.Context) error {
	br := r.c.d.Browser
	if err := br.Launch(ctx); err == nil && br.Alive(ctx) {
		return nil
	}
	r.log.Warn("Браузер недоступен, восстановление")
	return r.reconnect(ctx)
}

// recoverConnection переподключается, открывает сайт заново и ищет кнопки.
func (r *run) recoverConnection(ctx context.Context) ([]browser.Element, error) {
	if err := r.reconnect(ctx); err != nil {
		return nil, err
	}
	if err := r.open(ctx); err != nil {
		return nil, err
	}
	return r.relocate()
}

// reconnect делает до MaxRecoveryAttempts попыток, затем спрашивает оператора.
func (r *run) reconnect(ctx context.Context) error {
	br := r.c.d.Browser
	for {
		for attempt := 1; attempt <= r.settings.MaxRecoveryAttempts; attempt++ {
			err := br.Reconnect(ctx)
			if err == nil && br.Alive(ctx) {
				r.log.Info("Соединение восстановлено", zap.Int("attempt", attempt))
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.log.Warn("Попытка восстановления не удалась", zap.Int("attempt", attempt), zap.Error(err))
			if err := r.c.d.Sleep(ctx, time.Duration(attempt)*r.settings.InitialBackoff); err != nil {
				return err
			}
		}

		choice, err := r.c.d.Operator.ReconnectFailed(ctx)
		if err != nil {
			return err
		}
		switch choice {
		case ReconnectRetry:
			continue
		case ReconnectQuit:
			return ErrQuit
		default:
			return ErrConnectionLost
		}
	}
}

// finish переводит ошибку прохода в статус и исход.
func (r *run) finish(err error) {
	r.session.FinishedAt = r.c.d.Now()

	switch {
	case err == nil, errors.Is(err, errSiteStopped):
	case errors.Is(err, ErrQuit):
		r.session.Status = database.StatusAborted
		r.outcome = OutcomeQuit
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.session.Status = database.StatusAborted
		r.session.Error = err.Error()
		r.outcome = OutcomeQuit
	case errors.Is(err, ErrOperatorUnavailable):
		r.log.Warn("Нужен оператор, сайт пропущен", zap.Error(err))
		r.session.Status = database.StatusSkipped
		r.session.Error = err.Error()
	default:
		r.log.Error("Проход завершился ошибкой", zap.Error(err))
		r.session.Status = database.StatusFailed
		r.session.Error = err.Error()
	}
}
