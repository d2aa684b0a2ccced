package cli

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"couponClipper/internal/clipper"
	"couponClipper/internal/config"
	"couponClipper/internal/database"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted отдает заранее заданные ответы, затем io.EOF.
type scripted struct {
	answers    []answer
	prompts    []string
	remembered []string
}

type answer struct {
	line string
	err  error
}

func lines(ls ...string) *scripted {
	s := &scripted{}
	for _, l := range ls {
		s.answers = append(s.answers, answer{line: l})
	}
	return s
}

func (s *scripted) then(err error) *scripted {
	s.answers = append(s.answers, answer{err: err})
	return s
}

func (s *scripted) ReadLine(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a.line, a.err
}

func (s *scripted) Remember(line string) {
	s.remembered = append(s.remembered, line)
}

type fakeRunner struct {
	catalog *config.Catalog
	runs    []string
	outcome clipper.Outcome
}

func (f *fakeRunner) Catalog() *config.Catalog { return f.catalog }

func (f *fakeRunner) Run(_ context.Context, key string) (*clipper.Result, error) {
	f.runs = append(f.runs, key)
	now := time.Now()
	return &clipper.Result{
		Session: database.ClipSession{SiteKey: key, Status: database.StatusCompleted, StartedAt: now, FinishedAt: now},
		Outcome: f.outcome,
	}, nil
}

type nopStore struct{}

func (nopStore) RecordSession(context.Context, *database.ClipSession) error { return nil }
func (nopStore) ListSessions(context.Context, int) ([]database.ClipSession, error) {
	return nil, nil
}
func (nopStore) SiteTotals(context.Context) ([]database.SiteTotal, error) { return nil, nil }
func (nopStore) LastSite(context.Context) (string, error)                 { return "", nil }
func (nopStore) SetLastSite(context.Context, string) error                { return nil }

func newTestCLI(in *scripted, outcome clipper.Outcome) (*CLI, *fakeRunner, *bytes.Buffer) {
	r := &fakeRunner{
		catalog: config.NewCatalog(config.Site{Key: "giant", URL: "https://giantfood.com"}),
		outcome: outcome,
	}
	var out bytes.Buffer
	c := New(Deps{Clipper: r, Store: nopStore{}, Input: in, Out: &out})
	return c, r, &out
}

func TestCLI_RunsCommandsUntilEOF(t *testing.T) {
	in := lines("sites", "", "clip 1", "stats", "bogus")
	c, r, out := newTestCLI(in, clipper.OutcomeNext)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"giant"}, r.runs)
	assert.Equal(t, []string{"sites", "clip 1", "stats", "bogus"}, in.remembered)
	assert.Contains(t, out.String(), "Сайты:")
	assert.Contains(t, out.String(), "Проходов пока не было")
	assert.Contains(t, out.String(), "Доступные команды")
}

func TestCLI_ExitAndQuitOutcome(t *testing.T) {
	in := lines("exit", "sites")
	c, _, out := newTestCLI(in, clipper.OutcomeNext)
	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, in.prompts, 1)
	assert.Contains(t, out.String(), "До свидания")

	in = lines("clip giant", "sites")
	c, r, _ := newTestCLI(in, clipper.OutcomeQuit)
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"giant"}, r.runs)
	assert.Len(t, in.prompts, 1)
}

func TestCLI_InterruptOnEmptyLineExits(t *testing.T) {
	in := (&scripted{}).then(readline.ErrInterrupt)
	in.answers = append(in.answers, answer{line: "sites"})
	c, _, _ := newTestCLI(in, clipper.OutcomeNext)

	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, in.prompts, 1)
}

func TestCLI_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := lines("sites")
	c, _, out := newTestCLI(in, clipper.OutcomeNext)
	require.NoError(t, c.Run(ctx))
	assert.Empty(t, in.prompts)
	assert.Contains(t, out.String(), "сигнал завершения")
}

func TestPlainInput(t *testing.T) {
	var out bytes.Buffer
	in := newPlainInput(bytes.NewBufferString("  clip 2 \nlast"), &out)

	line, err := in.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "clip 2", line)

	line, err = in.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = in.ReadLine("> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > ", out.String())

	in.Remember("ignored")
	in.Close()
}
