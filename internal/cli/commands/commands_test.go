package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"couponClipper/internal/browser"
	"couponClipper/internal/cli/ui"
	"couponClipper/internal/clipper"
	"couponClipper/internal/config"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *config.Catalog {
	return config.NewCatalog(
		config.Site{Key: "giant", Name: "Giant Food", URL: "https://giantfood.com/coupons"},
		config.Site{Key: "weis", Name: "Weis Markets", URL: "https://weismarkets.com/coupons",
			SiteSettings: config.SiteSettings{RapidModeCompatible: true}},
	)
}

func testStore(t *testing.T) *database.FileRepository {
	t.Helper()
	repo, err := database.NewFileRepository(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	return repo
}

type fakeRunner struct {
	catalog  *config.Catalog
	runs     []string
	outcomes map[string]clipper.Outcome
	err      error
}

func (f *fakeRunner) Catalog() *config.Catalog { return f.catalog }

func (f *fakeRunner) Run(_ context.Context, key string) (*clipper.Result, error) {
	f.runs = append(f.runs, key)
	if f.err != nil {
		return nil, f.err
	}
	outcome := clipper.OutcomeNext
	if o, ok := f.outcomes[key]; ok {
		outcome = o
	}
	now := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	return &clipper.Result{
		Session: database.ClipSession{SiteKey: key, Status: database.StatusCompleted, Total: 5, Clipped: 3,
			StartedAt: now, FinishedAt: now.Add(90 * time.Second)},
		Outcome: outcome,
	}, nil
}

type scripted struct {
	lines   []string
	prompts []string
}

func (s *scripted) ReadLine(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", errors.New("EOF")
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newClip(r *fakeRunner, store database.StatsRepository, in *scripted) (*ClipHandler, *bytes.Buffer) {
	var out bytes.Buffer
	return NewClipHandler(r, store, nil, in.ReadLine, logger.Nop(), &out), &out
}

func TestClip_ByNumberAndKey(t *testing.T) {
	r := &fakeRunner{catalog: testCatalog()}
	h, out := newClip(r, nil, &scripted{})

	assert.False(t, h.Clip(context.Background(), "2"))
	assert.False(t, h.Clip(context.Background(), "giant"))
	assert.Equal(t, []string{"weis", "giant"}, r.runs)
	assert.Contains(t, out.String(), "Клиппинг Weis Markets")
	assert.Contains(t, out.String(), "отмечено 3")
	assert.Contains(t, out.String(), "1m30s")
}

func TestClip_UnknownSite(t *testing.T) {
	r := &fakeRunner{catalog: testCatalog()}
	h, out := newClip(r, nil, &scripted{})

	assert.False(t, h.Clip(context.Background(), "kroger"))
	assert.Empty(t, r.runs)
	assert.Contains(t, out.String(), "Сайт не найден")
}

func TestClip_AllStopsOnMenuAndQuit(t *testing.T) {
	r := &fakeRunner{catalog: testCatalog(), outcomes: map[string]clipper.Outcome{"giant": clipper.OutcomeMenu}}
	h, _ := newClip(r, nil, &scripted{})
	assert.False(t, h.Clip(context.Background(), "all"))
	assert.Equal(t, []string{"giant"}, r.runs)

	r = &fakeRunner{catalog: testCatalog(), outcomes: map[string]clipper.Outcome{"giant": clipper.OutcomeQuit}}
	h, _ = newClip(r, nil, &scripted{})
	assert.True(t, h.Clip(context.Background(), "all"))
	assert.Equal(t, []string{"giant"}, r.runs)

	r = &fakeRunner{catalog: testCatalog()}
	h, _ = newClip(r, nil, &scripted{})
	assert.False(t, h.Clip(context.Background(), "all"))
	assert.Equal(t, []string{"giant", "weis"}, r.runs)
}

func TestClip_Busy(t *testing.T) {
	r := &fakeRunner{catalog: testCatalog(), err: clipper.ErrBusy}
	h, out := newClip(r, nil, &scripted{})

	assert.False(t, h.Clip(context.Background(), "1"))
	assert.Contains(t, out.String(), "Клиппинг уже идет")
}

func TestClip_AsksWithLastSiteDefault(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	require.NoError(t, store.SetLastSite(ctx, "weis"))

	r := &fakeRunner{catalog: testCatalog()}
	in := &scripted{lines: []string{""}}
	h, _ := newClip(r, store, in)

	h.Clip(ctx, "")
	assert.Equal(t, []string{"weis"}, r.runs)
	require.Len(t, in.prompts, 1)
	assert.Contains(t, in.prompts[0], "Enter = weis")
}

func TestClip_AskCancelled(t *testing.T) {
	r := &fakeRunner{catalog: testCatalog()}

	h, _ := newClip(r, nil, &scripted{lines: []string{"0"}})
	h.Clip(context.Background(), "")

	// Без последнего сайта пустой ввод тоже отмена
	h, _ = newClip(r, nil, &scripted{lines: []string{""}})
	h.Clip(context.Background(), "")

	assert.Empty(t, r.runs)
}

func TestWatchInterrupts_Stops(t *testing.T) {
	ch := make(chan struct{}, 1)
	stop := WatchInterrupts(ch)
	stop()
	assert.Empty(t, ch)
}

func TestSitesList(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	require.NoError(t, store.SetLastSite(ctx, "weis"))

	var out bytes.Buffer
	NewSitesHandler(testCatalog(), store, &out).List(ctx)

	s := out.String()
	assert.Contains(t, s, " 1. ")
	assert.Contains(t, s, "Giant Food")
	assert.Contains(t, s, "https://weismarkets.com/coupons")
	assert.Contains(t, s, ui.ColorYellow+"*")
	assert.Contains(t, s, "[rapid]")
}

type fakeUsage struct{}

func (fakeUsage) Usage() (int, int) { return 17, 42000 }

func TestStatsTotalsAndHistory(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordSession(ctx, &database.ClipSession{RunID: "1", SiteKey: "giant", Status: database.StatusCompleted,
		Clipped: 4, StartedAt: at, FinishedAt: at.Add(time.Minute)}))
	require.NoError(t, store.RecordSession(ctx, &database.ClipSession{RunID: "2", SiteKey: "weis", Status: database.StatusFailed,
		Clipped: 3, Error: "browser gone", StartedAt: at, FinishedAt: at.Add(time.Minute)}))

	var out bytes.Buffer
	h := NewStatsHandler(store, fakeUsage{}, logger.Nop(), &out)

	h.Totals(ctx)
	assert.Contains(t, out.String(), "Всего отмечено: 7")
	assert.Contains(t, out.String(), "запросов 17, токенов 42000")

	out.Reset()
	h.History(ctx, "1")
	assert.Contains(t, out.String(), "Последние проходы (1)")
	assert.Contains(t, out.String(), "browser gone")

	out.Reset()
	h.History(ctx, "abc")
	assert.Contains(t, out.String(), "Неверное число")
}

type fakeBrowser struct {
	browser.Browser
	mode     string
	launches int
	closes   int
}

func (f *fakeBrowser) Launch(context.Context) error { f.launches++; return nil }
func (f *fakeBrowser) Mode() string                 { return f.mode }
func (f *fakeBrowser) SetMode(m string)             { f.mode = m }
func (f *fakeBrowser) Close() error                 { f.closes++; return nil }

func TestBrowserLaunch(t *testing.T) {
	var out bytes.Buffer
	br := &fakeBrowser{mode: browser.ModeProfile}
	h := NewBrowserHandler(br, &out)

	h.Launch(context.Background(), "")
	assert.Equal(t, 1, br.launches)
	assert.Equal(t, 0, br.closes)

	h.Launch(context.Background(), "attach")
	assert.Equal(t, browser.ModeAttach, br.mode)
	assert.Equal(t, 2, br.launches)
	assert.Equal(t, 1, br.closes)
	assert.Contains(t, out.String(), "remote-debugging-port")

	h.Launch(context.Background(), "incognito")
	assert.Equal(t, 2, br.launches)
	assert.Contains(t, out.String(), "Неизвестный режим")
}
