package clipper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"couponClipper/internal/browser"
)

var (
	ErrUnknownSite         = errors.New("сайт не найден в каталоге")
	ErrOperatorUnavailable = errors.New("требуется оператор")
	ErrQuit                = errors.New("выход по запросу оператора")
	ErrBusy                = errors.New("клиппинг уже выполняется")
	ErrConnectionLost      = errors.New("соединение с браузером потеряно")
)

var (
	// errSiteStopped - оператор ушел с сайта во время загрузки, статус уже выставлен.
	errSiteStopped = errors.New("сайт остановлен оператором")
	// errReopen - после переподключения сайт нужно открыть заново.
	errReopen = errors.New("требуется повторное открытие сайта")
)

type ErrorType int

const (
	ErrorTypeTemporary ErrorType = iota
	ErrorTypeCritical
	ErrorTypeRetryable
	ErrorTypeStale
)

func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTemporary:
		return "temporary"
	case ErrorTypeCritical:
		return "critical"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeStale:
		return "stale"
	default:
		return "unknown"
	}
}

type ActionError struct {
	Type   ErrorType
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func classifyError(action string, err error) *ActionError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, browser.ErrStale):
		return &ActionError{Type: ErrorTypeStale, Action: action, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, browser.ErrNotLaunched):
		return &ActionError{Type: ErrorTypeCritical, Action: action, Err: err}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "err_connection") ||
		strings.Contains(errStr, "econnrefused") ||
		strings.Contains(errStr, "etimedout") {
		return &ActionError{Type: ErrorTypeRetryable, Action: action, Err: err}
	}

	if strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "selector") ||
		strings.Contains(errStr, "element") {
		return &ActionError{Type: ErrorTypeTemporary, Action: action, Err: err}
	}

	return &ActionError{Type: ErrorTypeCritical, Action: action, Err: err}
}

// retryAction повторяет fn, пока ошибка не станет критической или не кончатся попытки.
func retryAction(ctx context.Context, sleep SleepFunc, maxRetries int, delay time.Duration, action string, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if classifyError(action, err).Type == ErrorTypeCritical {
			return err
		}
	}

	return fmt.Errorf("%s: после %d попыток: %w", action, maxRetries, lastErr)
}

func isStale(err error) bool {
	return errors.Is(err, browser.ErrStale)
}
