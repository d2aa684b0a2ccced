// Package migrations применяет SQL-миграции из каталога migrations/.
package migrations

import (
	"errors"
	"fmt"

	"couponClipper/internal/config"
	"couponClipper/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Run поднимает схему до последней версии. Без Postgres ничего не делает.
func Run(cfg *config.Cfg, log *logger.Zap) error {
	if !cfg.Database.Enabled() {
		log.Debug("БД не настроена, миграции пропущены")
		return nil
	}

	m, err := migrate.New(cfg.Migrations.Path, cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("не удалось создать мигратор: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Warn("Не удалось получить версию миграций", zap.Error(err))
		return nil
	}
	log.Info("Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
