package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"couponClipper/internal/config"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *database.FileRepository) {
	t.Helper()
	store, err := database.NewFileRepository(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)

	catalog := config.NewCatalog(
		config.Site{Key: "giant", Name: "Giant Food", URL: "https://giantfood.com/coupons"},
		config.Site{Key: "weis", URL: "https://weismarkets.com/coupons",
			SiteSettings: config.SiteSettings{RapidModeCompatible: true}},
	)
	return New("127.0.0.1:0", catalog, store, logger.Nop()), store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSites(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/api/sites")
	require.Equal(t, http.StatusOK, rec.Code)

	var sites []siteView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sites))
	require.Len(t, sites, 2)
	assert.Equal(t, "Giant Food", sites[0].Name)
	assert.Equal(t, "weis", sites[1].Name)
	assert.True(t, sites[1].RapidModeCompatible)
}

func TestStatsAndSessions(t *testing.T) {
	ctx := context.Background()
	s, store := newTestServer(t)
	at := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	for i, site := range []string{"giant", "weis", "giant"} {
		require.NoError(t, store.RecordSession(ctx, &database.ClipSession{
			RunID: site + string(rune('a'+i)), SiteKey: site, Status: database.StatusCompleted,
			Clipped: i + 1, StartedAt: at, FinishedAt: at.Add(time.Minute),
		}))
	}
	require.NoError(t, store.SetLastSite(ctx, "giant"))

	h := s.Handler()

	rec := get(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Sites        []database.SiteTotal `json:"sites"`
		TotalClipped int                  `json:"total_clipped"`
		LastSite     string               `json:"last_site"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 6, stats.TotalClipped)
	assert.Equal(t, "giant", stats.LastSite)
	require.Len(t, stats.Sites, 2)
	assert.Equal(t, 4, stats.Sites[0].Clipped)

	rec = get(t, h, "/api/sessions?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []database.ClipSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 2)
	assert.Equal(t, 3, sessions[0].Clipped)

	rec = get(t, h, "/api/sessions")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 3)

	for _, bad := range []string{"0", "-1", "many"} {
		rec = get(t, h, "/api/sessions?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestSessionsEmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("сервер не остановился")
	}
}

func TestRunReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s, _ := newTestServer(t)
	s.addr = ln.Addr().String()

	err = s.Run(context.Background())
	require.Error(t, err)
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr))
}
