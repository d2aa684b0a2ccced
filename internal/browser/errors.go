package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotLaunched   = errors.New("браузер не запущен")
	ErrStale         = errors.New("элемент больше не привязан к странице")
	ErrIntercepted   = errors.New("клик перехвачен другим элементом")
	ErrBadSelector   = errors.New("селектор не поддерживается DOM")
	ErrNoBoundingBox = errors.New("у элемента нет размеров")
)

var staleMarkers = []string{
	"not attached to the dom",
	"element is not attached",
	"element handle is disposed",
	"target closed",
	"execution context was destroyed",
	"node is detached",
}

var interceptMarkers = []string{
	"intercepts pointer events",
	"is not clickable at point",
	"would receive the click",
}

// classify приводит ошибки playwright к сентинелам пакета.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStale) || errors.Is(err, ErrIntercepted) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
	}
	for _, m := range interceptMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", ErrIntercepted, err)
		}
	}
	return err
}
