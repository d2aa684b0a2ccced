// Package database хранит статистику клиппинга: в PostgreSQL через GORM
// или, если база не настроена, в yaml-файле рядом с программой.
package database

import "time"

// Статусы прохода по сайту
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// ClipSession - один проход по сайту.
type ClipSession struct {
	ID             uint      `gorm:"primaryKey" yaml:"-" json:"id"`
	RunID          string    `gorm:"type:varchar(36);uniqueIndex;not null" yaml:"run_id" json:"run_id"`
	SiteKey        string    `gorm:"type:varchar(64);index;not null" yaml:"site" json:"site"`
	Status         string    `gorm:"type:varchar(16);not null" yaml:"status" json:"status"`
	Speed          string    `gorm:"type:varchar(16)" yaml:"speed,omitempty" json:"speed,omitempty"`
	Total          int       `yaml:"total" json:"total"`                     // Найдено кнопок
	Clipped        int       `yaml:"clipped" json:"clipped"`                 // Отмечено за проход
	AlreadyClipped int       `yaml:"already_clipped" json:"already_clipped"` // Были отмечены раньше
	Failed         int       `yaml:"failed" json:"failed"`
	RateLimitHits  int       `yaml:"rate_limit_hits" json:"rate_limit_hits"`
	Error          string    `gorm:"type:text" yaml:"error,omitempty" json:"error,omitempty"`
	StartedAt      time.Time `yaml:"started_at" json:"started_at"`
	FinishedAt     time.Time `yaml:"finished_at" json:"finished_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" yaml:"-" json:"-"`
}

// SiteTotal - накопленные счетчики по сайту.
type SiteTotal struct {
	SiteKey   string    `gorm:"primaryKey;type:varchar(64)" yaml:"site" json:"site"`
	Clipped   int       `gorm:"not null;default:0" yaml:"clipped" json:"clipped"`
	Sessions  int       `gorm:"not null;default:0" yaml:"sessions" json:"sessions"`
	LastRunAt time.Time `yaml:"last_run_at" json:"last_run_at"`
}

// AppState - простое key-value хранилище (последний сайт и т.п.).
type AppState struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// LlmLog - запрос к LLM при поиске селектора или попапа.
type LlmLog struct {
	ID           uint   `gorm:"primaryKey"`
	SiteKey      string `gorm:"type:varchar(64);index"`
	Role         string `gorm:"type:varchar(16);not null"`
	PromptText   string `gorm:"type:text;not null"`
	ResponseText string `gorm:"type:text"`
	Model        string `gorm:"type:varchar(64)"`
	TokensUsed   int
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

const lastSiteKey = "last_site"
