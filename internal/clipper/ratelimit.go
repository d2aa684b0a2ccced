package clipper

import (
	"context"
	"strings"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/config"

	"go.uber.org/zap"
)

const reloadSettleWait = 3 * time.Second

var mainContentSelectors = []string{"main", "#main", ".main-content", "#content", ".content", "article"}

var rateLimitPhrases = []string{
	"rate limit",
	"too many requests",
	"too many attempts",
	"try again later",
	"temporarily blocked",
}

// rateLimiter хранит состояние одного прохода по сайту: текущий backoff,
// счетчик подозрительных фраз и серию успешных кликов.
type rateLimiter struct {
	log   *zap.Logger
	sleep SleepFunc

	backoff            time.Duration
	phraseCount        int
	consecutiveSuccess int
	hit                bool
}

func (r *rateLimiter) reset(s config.Settings) {
	r.backoff = s.InitialBackoff
	r.phraseCount = 0
	r.consecutiveSuccess = 0
	r.hit = false
}

func (r *rateLimiter) success() {
	r.consecutiveSuccess++
}

func (r *rateLimiter) failure() {
	r.consecutiveSuccess = 0
}

// markHit фиксирует срабатывание: дальше темп будет осторожнее.
func (r *rateLimiter) markHit() {
	r.hit = true
	r.consecutiveSuccess = 0
}

// detect ищет признаки rate limit. Индикаторы сайта срабатывают сразу,
// общие фразы только после RateLimitThreshold подряд.
func (r *rateLimiter) detect(page browser.Page, site config.Site, s config.Settings) bool {
	if !s.RateLimitDetection {
		return false
	}

	if !s.RateLimitMainOnly {
		source, err := page.Content()
		if err != nil {
			r.log.Warn("Не удалось получить HTML страницы", zap.Error(err))
			return false
		}
		for _, ind := range site.RateLimitIndicators {
			if strings.Contains(source, ind) {
				r.log.Warn("Индикатор rate limit в HTML", zap.String("indicator", ind))
				return true
			}
		}
		return false
	}

	text, err := mainContentText(page)
	if err != nil {
		r.log.Warn("Не удалось прочитать основной контент", zap.Error(err))
		return false
	}
	text = strings.ToLower(text)

	for _, ind := range site.RateLimitIndicators {
		if strings.Contains(text, strings.ToLower(ind)) {
			r.log.Warn("Индикатор rate limit в контенте", zap.String("indicator", ind))
			return true
		}
	}

	matched := ""
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(text, phrase) {
			matched = phrase
			break
		}
	}
	if matched == "" {
		r.phraseCount = 0
		return false
	}

	r.phraseCount++
	r.log.Warn("Возможный rate limit",
		zap.String("phrase", matched),
		zap.Int("count", r.phraseCount),
		zap.Int("threshold", s.RateLimitThreshold),
	)
	return r.phraseCount >= s.RateLimitThreshold
}

// handle ждет backoff, увеличивает его и перезагружает страницу.
func (r *rateLimiter) handle(ctx context.Context, br browser.Browser, op Operator, s config.Settings) error {
	wait := minDuration(s.MaxBackoff, r.backoff)
	r.log.Info("Rate limit, пауза", zap.Duration("wait", wait))
	op.Notify("Обнаружен rate limit. Пауза " + wait.String())

	if err := r.sleep(ctx, wait); err != nil {
		return err
	}

	r.backoff = minDuration(s.MaxBackoff, time.Duration(float64(r.backoff)*s.BackoffFactor))

	if err := br.Reload(ctx); err != nil {
		r.log.Warn("Не удалось перезагрузить страницу", zap.Error(err))
	}
	return r.sleep(ctx, reloadSettleWait)
}

// mainContentText возвращает текст первой видимой основной области или body.
func mainContentText(page browser.Page) (string, error) {
	for _, sel := range mainContentSelectors {
		els, err := page.QueryAll(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.IsVisible(); err == nil && visible {
				return el.Text()
			}
		}
	}

	bodies, err := page.QueryAll("body")
	if err != nil {
		return "", err
	}
	if len(bodies) == 0 {
		return "", nil
	}
	return bodies[0].Text()
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
