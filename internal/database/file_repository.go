package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// MaxFileSessions - сколько последних проходов хранит файл.
const MaxFileSessions = 100

type fileState struct {
	LastSite string        `yaml:"last_site,omitempty"`
	Totals   []SiteTotal   `yaml:"totals,omitempty"`
	Sessions []ClipSession `yaml:"sessions,omitempty"`
}

// FileRepository хранит статистику в yaml-файле. Используется без Postgres.
type FileRepository struct {
	mu    sync.Mutex
	path  string
	state fileState
}

func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &r.state); err != nil {
		return nil, fmt.Errorf("поврежден файл состояния %s: %w", path, err)
	}
	return r, nil
}

func (r *FileRepository) RecordSession(_ context.Context, s *ClipSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Sessions = append(r.state.Sessions, *s)
	if n := len(r.state.Sessions); n > MaxFileSessions {
		r.state.Sessions = r.state.Sessions[n-MaxFileSessions:]
	}

	found := false
	for i := range r.state.Totals {
		t := &r.state.Totals[i]
		if t.SiteKey == s.SiteKey {
			t.Clipped += s.Clipped
			t.Sessions++
			t.LastRunAt = s.FinishedAt
			found = true
			break
		}
	}
	if !found {
		r.state.Totals = append(r.state.Totals, SiteTotal{
			SiteKey:   s.SiteKey,
			Clipped:   s.Clipped,
			Sessions:  1,
			LastRunAt: s.FinishedAt,
		})
	}

	return r.saveLocked()
}

// ListSessions возвращает проходы от новых к старым.
func (r *FileRepository) ListSessions(_ context.Context, limit int) ([]ClipSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.state.Sessions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ClipSession, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.state.Sessions[i])
	}
	return out, nil
}

func (r *FileRepository) SiteTotals(_ context.Context) ([]SiteTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := append([]SiteTotal(nil), r.state.Totals...)
	sort.Slice(out, func(i, j int) bool { return out[i].SiteKey < out[j].SiteKey })
	return out, nil
}

func (r *FileRepository) LastSite(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.LastSite, nil
}

func (r *FileRepository) SetLastSite(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.LastSite = key
	return r.saveLocked()
}

// saveLocked пишет во временный файл и переименовывает, чтобы не оставить
// полузаписанный yaml при падении.
func (r *FileRepository) saveLocked() error {
	data, err := yaml.Marshal(&r.state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".clipper-state-*")
	if err != nil {
		return fmt.Errorf("не удалось сохранить состояние: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
