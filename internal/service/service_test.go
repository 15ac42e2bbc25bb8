package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arturkryukov/scanstore/internal/domain/model"
	"github.com/arturkryukov/scanstore/internal/repository"
	"github.com/arturkryukov/scanstore/internal/storage/filestore"
)

// --- In-memory фейки репозиториев для сервисных тестов ---

// fakeSettingsRepo — in-memory реализация SettingsRepository.
type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings model.Settings
	indexed  []model.IndexingMode
}

func newFakeSettings(sourceFolder string, days, minutes int) *fakeSettingsRepo {
	return &fakeSettingsRepo{
		settings: model.Settings{
			SourceFolder:     sourceFolder,
			RetentionDays:    days,
			RetentionMinutes: minutes,
		},
	}
}

func (f *fakeSettingsRepo) Get(_ context.Context) (*model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettingsRepo) Update(_ context.Context, s *model.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.SourceFolder = s.SourceFolder
	f.settings.RetentionDays = s.RetentionDays
	f.settings.RetentionMinutes = s.RetentionMinutes
	return nil
}

func (f *fakeSettingsRepo) SetIndexingInfo(_ context.Context, mode model.IndexingMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.settings.LastIndexingAt = &now
	f.settings.LastIndexingMode = &mode
	f.indexed = append(f.indexed, mode)
	return nil
}

// fakeLogRepo — in-memory реализация FileLogRepository.
// Реализует и LogTxRunner (транзакция сводится к прямому вызову fn).
type fakeLogRepo struct {
	mu      sync.Mutex
	entries []model.LogEntry
	failAll bool
}

func (f *fakeLogRepo) Append(_ context.Context, e *model.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("журнал недоступен")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeLogRepo) DeleteByFilename(_ context.Context, filename string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, fmt.Errorf("журнал недоступен")
	}
	kept := f.entries[:0]
	deleted := 0
	for _, e := range f.entries {
		if e.Filename == filename {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

func (f *fakeLogRepo) Query(_ context.Context, filters repository.LogFilters) ([]model.LogEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LogEntry
	for _, e := range f.entries {
		if filters.Action != nil && e.Action != *filters.Action {
			continue
		}
		if filters.Filename != "" && !strings.Contains(strings.ToLower(e.Filename), strings.ToLower(filters.Filename)) {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeLogRepo) GetByID(_ context.Context, id string) (*model.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			cp := e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLogRepo) Stats(_ context.Context) (*repository.LogStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repository.LogStats{ActionCounts: make(map[model.FileAction]int)}
	stats.TotalLogs = len(f.entries)
	for _, e := range f.entries {
		stats.ActionCounts[e.Action]++
	}
	return stats, nil
}

func (f *fakeLogRepo) RunInLogTx(ctx context.Context, fn func(logs repository.FileLogRepository) error) error {
	return fn(f)
}

// byAction возвращает записи журнала с заданным действием.
func (f *fakeLogRepo) byAction(a model.FileAction) []model.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LogEntry
	for _, e := range f.entries {
		if e.Action == a {
			out = append(out, e)
		}
	}
	return out
}

// --- Общие помощники ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFilestore(t *testing.T) *filestore.FileStore {
	t.Helper()
	fs, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("не удалось создать FileStore: %v", err)
	}
	return fs
}

func writeSourceFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("не удалось записать файл %s: %v", name, err)
	}
}

// --- Тесты MaintenanceGuard ---

func TestMaintenanceGuard(t *testing.T) {
	g := NewMaintenanceGuard()

	if !g.TryBegin("indexing") {
		t.Fatal("первый захват должен удаться")
	}
	if g.TryBegin("retention") {
		t.Error("второй захват при занятом guard должен вернуть false")
	}
	task, busy := g.Current()
	if !busy || task != "indexing" {
		t.Errorf("ожидалась задача indexing, получена %q (busy=%v)", task, busy)
	}

	g.End()
	if !g.TryBegin("retention") {
		t.Error("после End guard должен быть свободен")
	}
	g.End()
}
