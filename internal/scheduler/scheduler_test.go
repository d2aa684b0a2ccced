package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"couponClipper/internal/clipper"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRunner struct {
	mu      sync.Mutex
	runs    []string
	errs    map[string]error
	block   chan struct{}
	started chan string
	quitAt  string
}

func (f *fakeRunner) Run(ctx context.Context, key string) (*clipper.Result, error) {
	f.mu.Lock()
	f.runs = append(f.runs, key)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- key
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	outcome := clipper.OutcomeNext
	if key == f.quitAt {
		outcome = clipper.OutcomeQuit
	}
	return &clipper.Result{
		Session: database.ClipSession{SiteKey: key, Status: database.StatusCompleted, Clipped: 2},
		Outcome: outcome,
	}, nil
}

func (f *fakeRunner) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

func TestNew_Validates(t *testing.T) {
	_, err := New("0 8 * * *", nil, &fakeRunner{}, logger.Nop())
	assert.ErrorIs(t, err, ErrNoSites)

	_, err = New("every morning", []string{"giant"}, &fakeRunner{}, logger.Nop())
	assert.Error(t, err)

	_, err = New("0 8 * * *", []string{"giant"}, &fakeRunner{}, logger.Nop())
	assert.NoError(t, err)
}

func TestRunOnce_ContinuesPastErrors(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{
		"giant": clipper.ErrBusy,
		"weis":  errors.New("browser gone"),
	}}
	s, err := New("@daily", []string{"giant", "weis", "martins"}, r, logger.Nop())
	require.NoError(t, err)

	assert.True(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"giant", "weis", "martins"}, r.calls())
}

func TestRunOnce_StopsOnQuitAndCancel(t *testing.T) {
	r := &fakeRunner{quitAt: "giant"}
	s, err := New("@daily", []string{"giant", "weis"}, r, logger.Nop())
	require.NoError(t, err)
	s.RunOnce(context.Background())
	assert.Equal(t, []string{"giant"}, r.calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r = &fakeRunner{}
	s, err = New("@daily", []string{"giant", "weis"}, r, logger.Nop())
	require.NoError(t, err)
	s.RunOnce(ctx)
	assert.Empty(t, r.calls())
}

func TestRunOnce_NoOverlap(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{}), started: make(chan string, 1)}
	s, err := New("@daily", []string{"giant"}, r, logger.Nop())
	require.NoError(t, err)

	done := make(chan bool)
	go func() { done <- s.RunOnce(context.Background()) }()

	<-r.started
	assert.False(t, s.RunOnce(context.Background()))

	close(r.block)
	assert.True(t, <-done)
	assert.Equal(t, []string{"giant"}, r.calls())
}

func TestStart_RunsOnScheduleAndStops(t *testing.T) {
	r := &fakeRunner{started: make(chan string, 4)}
	s, err := New("@every 1s", []string{"giant"}, r, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case key := <-r.started:
		assert.Equal(t, "giant", key)
	case <-time.After(5 * time.Second):
		t.Fatal("задание не запустилось")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("расписание не остановилось")
	}
}
