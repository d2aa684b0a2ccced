package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter - два token bucket: запросы в минуту и токены в час.
type RateLimiter struct {
	requestsPerMinute int
	tokensPerHour     int

	mu               sync.Mutex
	now              func() time.Time
	requestTokens    float64
	requestLastCheck time.Time
	tokenBudget      float64
	tokenLastCheck   time.Time
}

func NewRateLimiter(requestsPerMinute, tokensPerHour int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 20
	}
	if tokensPerHour <= 0 {
		tokensPerHour = 90000
	}

	rl := &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokensPerHour:     tokensPerHour,
		now:               time.Now,
	}
	rl.resetLocked()
	return rl
}

func (rl *RateLimiter) resetLocked() {
	now := rl.now()
	rl.requestTokens = float64(rl.requestsPerMinute)
	rl.requestLastCheck = now
	rl.tokenBudget = float64(rl.tokensPerHour)
	rl.tokenLastCheck = now
}

// refillLocked пополняет оба бюджета пропорционально прошедшему времени.
func (rl *RateLimiter) refillLocked() {
	now := rl.now()

	rl.requestTokens += now.Sub(rl.requestLastCheck).Minutes() * float64(rl.requestsPerMinute)
	if limit := float64(rl.requestsPerMinute); rl.requestTokens > limit {
		rl.requestTokens = limit
	}
	rl.requestLastCheck = now

	rl.tokenBudget += now.Sub(rl.tokenLastCheck).Hours() * float64(rl.tokensPerHour)
	if limit := float64(rl.tokensPerHour); rl.tokenBudget > limit {
		rl.tokenBudget = limit
	}
	rl.tokenLastCheck = now
}

// AllowRequest списывает один запрос или возвращает ошибку с временем ожидания.
func (rl *RateLimiter) AllowRequest(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.requestTokens < 1 {
		wait := time.Duration((1 - rl.requestTokens) * float64(time.Minute) / float64(rl.requestsPerMinute))
		return fmt.Errorf("превышен лимит запросов (%d RPM), повторите через %v", rl.requestsPerMinute, wait.Round(time.Second))
	}

	rl.requestTokens--
	return nil
}

// AllowTokens резервирует оценку токенов запроса.
func (rl *RateLimiter) AllowTokens(ctx context.Context, tokens int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokenBudget < float64(tokens) {
		return fmt.Errorf("превышен лимит токенов (%d TPH): требуется %d, доступно %d",
			rl.tokensPerHour, tokens, int(rl.tokenBudget))
	}

	rl.tokenBudget -= float64(tokens)
	return nil
}

// ConsumeTokens списывает перерасход после ответа.
func (rl *RateLimiter) ConsumeTokens(tokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokenBudget -= float64(tokens)
	if rl.tokenBudget < 0 {
		rl.tokenBudget = 0
	}
}

// Stats возвращает доступные запросы и токены.
func (rl *RateLimiter) Stats() (requests int, tokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	return int(rl.requestTokens), int(rl.tokenBudget)
}
