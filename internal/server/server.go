// Package server отдает статус клипера по HTTP: каталог сайтов,
// накопленную статистику и последние проходы.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"couponClipper/internal/config"
	"couponClipper/internal/database"
	"couponClipper/internal/logger"
)

const (
	defaultSessionsLimit = 20
	maxSessionsLimit     = 100
	shutdownTimeout      = 5 * time.Second
)

type Server struct {
	addr    string
	log     *logger.Zap
	catalog *config.Catalog
	store   database.StatsRepository
}

func New(addr string, catalog *config.Catalog, store database.StatsRepository, log *logger.Zap) *Server {
	return &Server{
		addr:    addr,
		log:     log,
		catalog: catalog,
		store:   store,
	}
}

type siteView struct {
	Key                 string `json:"key"`
	Name                string `json:"name"`
	URL                 string `json:"url"`
	RapidModeCompatible bool   `json:"rapid_mode_compatible"`
}

// Handler собирает роутер. Вынесен отдельно для httptest.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Простейший лог-мидлвар
	r.Use(func(c *gin.Context) {
		c.Next()
		s.log.Debug("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/sites", func(c *gin.Context) {
		sites := s.catalog.Sites()
		out := make([]siteView, 0, len(sites))
		for _, site := range sites {
			out = append(out, siteView{
				Key:                 site.Key,
				Name:                site.DisplayName(),
				URL:                 site.URL,
				RapidModeCompatible: site.SiteSettings.RapidModeCompatible,
			})
		}
		c.JSON(http.StatusOK, out)
	})

	api.GET("/stats", func(c *gin.Context) {
		ctx := c.Request.Context()
		totals, err := s.store.SiteTotals(ctx)
		if err != nil {
			s.log.Error("stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}
		last, err := s.store.LastSite(ctx)
		if err != nil {
			s.log.Error("last site", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}

		clipped := 0
		for _, t := range totals {
			clipped += t.Clipped
		}
		c.JSON(http.StatusOK, gin.H{
			"sites":         totals,
			"total_clipped": clipped,
			"last_site":     last,
		})
	})

	api.GET("/sessions", func(c *gin.Context) {
		limit := defaultSessionsLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad limit"})
				return
			}
			limit = min(n, maxSessionsLimit)
		}

		sessions, err := s.store.ListSessions(c.Request.Context(), limit)
		if err != nil {
			s.log.Error("sessions", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}
		if sessions == nil {
			sessions = []database.ClipSession{}
		}
		c.JSON(http.StatusOK, sessions)
	})

	return r
}

// Run слушает addr до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Сервер запущен", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP сервера: %w", err)
	}
	s.log.Info("Сервер остановлен")
	return nil
}
