// Package scheduler запускает клиппинг по cron без участия человека.
// Сайты, где нужен оператор, пропускаются; проходы не пересекаются.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"couponClipper/internal/clipper"
	"couponClipper/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrNoSites = errors.New("не заданы сайты для расписания")

// Runner - часть clipper.Clipper, которую вызывает расписание.
type Runner interface {
	Run(ctx context.Context, siteKey string) (*clipper.Result, error)
}

type Scheduler struct {
	cron    *cron.Cron
	spec    string
	sites   []string
	runner  Runner
	log     *logger.Zap
	running atomic.Bool

	mu  sync.Mutex
	ctx context.Context
}

// New проверяет выражение cron заранее, чтобы ошибка была видна при старте.
func New(spec string, sites []string, runner Runner, log *logger.Zap) (*Scheduler, error) {
	if len(sites) == 0 {
		return nil, ErrNoSites
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("неверное расписание %q: %w", spec, err)
	}

	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec:   spec,
		sites:  sites,
		runner: runner,
		log:    log,
		ctx:    context.Background(),
	}, nil
}

// Start блокируется до отмены ctx, затем ждет завершения текущего прохода.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	id, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(s.jobContext()) })
	if err != nil {
		return fmt.Errorf("ошибка добавления задания: %w", err)
	}

	s.cron.Start()
	s.log.Info("Расписание запущено",
		zap.String("cron", s.spec),
		zap.Strings("sites", s.sites),
		zap.Time("next_run", s.cron.Entry(id).Next),
	)

	<-ctx.Done()
	s.log.Info("Остановка расписания")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// RunOnce проходит сайты по порядку. Если предыдущий запуск еще идет,
// возвращает false и ничего не делает.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("Предыдущий запуск еще идет, пропуск")
		return false
	}
	defer s.running.Store(false)

	s.log.Info("Запуск по расписанию", zap.Strings("sites", s.sites))
	clipped := 0
	for _, key := range s.sites {
		if ctx.Err() != nil {
			return true
		}

		res, err := s.runner.Run(ctx, key)
		switch {
		case errors.Is(err, clipper.ErrBusy):
			s.log.Warn("Клиппинг уже идет из консоли, сайт пропущен", zap.String("site", key))
			continue
		case err != nil:
			s.log.Error("Ошибка прохода", zap.String("site", key), zap.Error(err))
			continue
		}

		clipped += res.Session.Clipped
		s.log.Info("Сайт пройден",
			zap.String("site", key),
			zap.String("status", res.Session.Status),
			zap.Int("clipped", res.Session.Clipped),
		)
		if res.Outcome == clipper.OutcomeQuit {
			break
		}
	}
	s.log.Info("Запуск по расписанию завершен", zap.Int("clipped", clipped))
	return true
}

// cronLogger направляет логи cron в zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
