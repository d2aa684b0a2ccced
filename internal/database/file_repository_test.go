package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(site string, clipped int, at time.Time) *ClipSession {
	return &ClipSession{
		RunID:      fmt.Sprintf("%s-%d", site, at.UnixNano()),
		SiteKey:    site,
		Status:     StatusCompleted,
		Total:      clipped + 2,
		Clipped:    clipped,
		StartedAt:  at.Add(-time.Minute),
		FinishedAt: at,
	}
}

func TestFileRepository_RecordAndTotals(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.yaml")

	repo, err := NewFileRepository(path)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordSession(ctx, session("weis", 4, base)))
	require.NoError(t, repo.RecordSession(ctx, session("giant", 1, base.Add(time.Hour))))
	require.NoError(t, repo.RecordSession(ctx, session("weis", 3, base.Add(2*time.Hour))))

	totals, err := repo.SiteTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "giant", totals[0].SiteKey)
	assert.Equal(t, "weis", totals[1].SiteKey)
	assert.Equal(t, 7, totals[1].Clipped)
	assert.Equal(t, 2, totals[1].Sessions)
	assert.True(t, totals[1].LastRunAt.Equal(base.Add(2*time.Hour)))

	sessions, err := repo.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "weis", sessions[0].SiteKey)
	assert.Equal(t, 3, sessions[0].Clipped)
	assert.Equal(t, "giant", sessions[1].SiteKey)
}

func TestFileRepository_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.yaml")

	repo, err := NewFileRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SetLastSite(ctx, "safeway"))
	require.NoError(t, repo.RecordSession(ctx, session("safeway", 5, time.Now().UTC())))

	reopened, err := NewFileRepository(path)
	require.NoError(t, err)

	last, err := reopened.LastSite(ctx)
	require.NoError(t, err)
	assert.Equal(t, "safeway", last)

	totals, err := reopened.SiteTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 5, totals[0].Clipped)
}

func TestFileRepository_KeepsLastSessionsOnly(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxFileSessions+5; i++ {
		require.NoError(t, repo.RecordSession(ctx, session("weis", 1, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := repo.ListSessions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, MaxFileSessions)

	totals, err := repo.SiteTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, MaxFileSessions+5, totals[0].Sessions)
}

func TestNewFileRepository_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions: [unclosed"), 0o644))

	_, err := NewFileRepository(path)
	assert.Error(t, err)
}
