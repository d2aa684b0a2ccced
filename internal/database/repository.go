package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsRepository - хранилище статистики, общее для Postgres и файла.
type StatsRepository interface {
	// RecordSession сохраняет проход и обновляет итоги по сайту.
	RecordSession(ctx context.Context, s *ClipSession) error
	ListSessions(ctx context.Context, limit int) ([]ClipSession, error)
	SiteTotals(ctx context.Context) ([]SiteTotal, error)
	LastSite(ctx context.Context) (string, error)
	SetLastSite(ctx context.Context, key string) error
}

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RecordSession(ctx context.Context, s *ClipSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}

		total := SiteTotal{
			SiteKey:   s.SiteKey,
			Clipped:   s.Clipped,
			Sessions:  1,
			LastRunAt: s.FinishedAt,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "site_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"clipped":     gorm.Expr("site_totals.clipped + ?", s.Clipped),
				"sessions":    gorm.Expr("site_totals.sessions + 1"),
				"last_run_at": s.FinishedAt,
			}),
		}).Create(&total).Error
	})
}

// ListSessions отдает последние проходы, новые первыми. limit <= 0 - все.
func (r *PostgresRepository) ListSessions(ctx context.Context, limit int) ([]ClipSession, error) {
	var sessions []ClipSession
	if err := r.sessionsQuery(ctx, limit).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) sessionsQuery(ctx context.Context, limit int) *gorm.DB {
	q := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

func (r *PostgresRepository) SiteTotals(ctx context.Context) ([]SiteTotal, error) {
	var totals []SiteTotal
	if err := r.db.WithContext(ctx).Order("site_key").Find(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *PostgresRepository) LastSite(ctx context.Context) (string, error) {
	var state AppState
	err := r.db.WithContext(ctx).First(&state, "key = ?", lastSiteKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state.Value, nil
}

func (r *PostgresRepository) SetLastSite(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&AppState{Key: lastSiteKey, Value: key}).Error
}

// LogLLMRequest сохраняет запрос к LLM.
func (r *PostgresRepository) LogLLMRequest(ctx context.Context, siteKey, role, promptText, responseText, model string, tokensUsed int) error {
	return r.db.WithContext(ctx).Create(&LlmLog{
		SiteKey:      siteKey,
		Role:         role,
		PromptText:   promptText,
		ResponseText: responseText,
		Model:        model,
		TokensUsed:   tokensUsed,
	}).Error
}
