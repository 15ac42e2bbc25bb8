package repository

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arturkryukov/scanstore/internal/config"
	"github.com/arturkryukov/scanstore/internal/database"
	"github.com/arturkryukov/scanstore/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool с автоматической очисткой.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("scanstore_test"),
		postgres.WithUsername("scanstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("SC_DB_HOST", host)
	os.Setenv("SC_DB_PORT", port.Port())
	os.Setenv("SC_DB_NAME", "scanstore_test")
	os.Setenv("SC_DB_USER", "scanstore")
	os.Setenv("SC_DB_PASSWORD", "test-password")
	os.Setenv("SC_DB_SSL_MODE", "disable")
	os.Setenv("SC_LOCAL_ROOT", t.TempDir())
	os.Setenv("SC_JWT_JWKS_URL", "http://localhost:8080/certs")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// --- Тесты FileLogRepository ---

func TestFileLogAppendAndQuery(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileLogRepository(pool)

	entries := []model.LogEntry{
		{Filename: "ivanov_report.pdf", SourcePath: "/mnt/scans/ivanov_report.pdf", LocalPath: "/data/scans/ivanov_report.pdf", Action: model.ActionCopied},
		{Filename: "petrov_doc.docx", SourcePath: "/mnt/scans/petrov_doc.docx", LocalPath: "/data/scans/petrov_doc.docx", Action: model.ActionMoved},
		{Filename: "ivanov_report.pdf", LocalPath: "/data/scans/ivanov_report.pdf", Action: model.ActionDeletedManual, ActorUsername: "ivanov"},
	}
	for i := range entries {
		if err := repo.Append(ctx, &entries[i]); err != nil {
			t.Fatalf("Ошибка записи в журнал: %v", err)
		}
		if entries[i].ID == "" {
			t.Error("ID должен генерироваться при записи")
		}
		if entries[i].CreatedAt.IsZero() {
			t.Error("CreatedAt должен заполняться из БД")
		}
	}

	// Без фильтров: все записи, новые первыми
	got, total, err := repo.Query(ctx, LogFilters{})
	if err != nil {
		t.Fatalf("Ошибка выборки журнала: %v", err)
	}
	if total != 3 {
		t.Errorf("ожидалось 3 записи, получено %d", total)
	}
	if len(got) != 3 {
		t.Fatalf("ожидалось 3 записи на странице, получено %d", len(got))
	}

	// Фильтр по действию
	action := model.ActionCopied
	got, total, err = repo.Query(ctx, LogFilters{Action: &action})
	if err != nil {
		t.Fatalf("Ошибка выборки по действию: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Action != model.ActionCopied {
		t.Errorf("ожидалась 1 запись COPIED, получено %d", total)
	}

	// Регистронезависимый поиск по имени
	_, total, err = repo.Query(ctx, LogFilters{Filename: "IVANOV"})
	if err != nil {
		t.Fatalf("Ошибка выборки по имени: %v", err)
	}
	if total != 2 {
		t.Errorf("ожидалось 2 записи по подстроке ivanov, получено %d", total)
	}
}

func TestFileLogPagination(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileLogRepository(pool)

	for i := 0; i < 5; i++ {
		e := model.LogEntry{Filename: "sidorov_scan.png", LocalPath: "/data/scans/sidorov_scan.png", Action: model.ActionCopied}
		if err := repo.Append(ctx, &e); err != nil {
			t.Fatalf("Ошибка записи: %v", err)
		}
	}

	got, total, err := repo.Query(ctx, LogFilters{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Ошибка выборки страницы: %v", err)
	}
	if total != 5 {
		t.Errorf("ожидалось всего 5 записей, получено %d", total)
	}
	if len(got) != 2 {
		t.Errorf("ожидалось 2 записи на странице, получено %d", len(got))
	}

	// Limit выше максимума обрезается
	got, _, err = repo.Query(ctx, LogFilters{Limit: 500})
	if err != nil {
		t.Fatalf("Ошибка выборки: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("ожидалось 5 записей, получено %d", len(got))
	}
}

func TestFileLogDeleteByFilename(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileLogRepository(pool)

	for _, name := range []string{"a_x.pdf", "a_x.pdf", "b_y.pdf"} {
		e := model.LogEntry{Filename: name, LocalPath: "/data/scans/" + name, Action: model.ActionCopied}
		if err := repo.Append(ctx, &e); err != nil {
			t.Fatalf("Ошибка записи: %v", err)
		}
	}

	deleted, err := repo.DeleteByFilename(ctx, "a_x.pdf")
	if err != nil {
		t.Fatalf("Ошибка удаления записей: %v", err)
	}
	if deleted != 2 {
		t.Errorf("ожидалось 2 удалённые записи, получено %d", deleted)
	}

	_, total, err := repo.Query(ctx, LogFilters{})
	if err != nil {
		t.Fatalf("Ошибка выборки: %v", err)
	}
	if total != 1 {
		t.Errorf("ожидалась 1 оставшаяся запись, получено %d", total)
	}
}

func TestFileLogGetByID(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileLogRepository(pool)

	e := model.LogEntry{Filename: "ivanov_a.pdf", LocalPath: "/data/scans/ivanov_a.pdf", Action: model.ActionCopied}
	if err := repo.Append(ctx, &e); err != nil {
		t.Fatalf("Ошибка записи: %v", err)
	}

	got, err := repo.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("Ошибка получения по ID: %v", err)
	}
	if got.Filename != "ivanov_a.pdf" {
		t.Errorf("неверное имя файла: %q", got.Filename)
	}

	if _, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000"); err != ErrNotFound {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestFileLogStats(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileLogRepository(pool)

	actions := []model.FileAction{
		model.ActionCopied, model.ActionCopied,
		model.ActionMoved,
		model.ActionDeletedRetention,
	}
	for _, a := range actions {
		e := model.LogEntry{Filename: "u_f.pdf", LocalPath: "/data/scans/u_f.pdf", Action: a}
		if err := repo.Append(ctx, &e); err != nil {
			t.Fatalf("Ошибка записи: %v", err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Ошибка статистики: %v", err)
	}
	if stats.TotalLogs != 4 {
		t.Errorf("ожидалось 4 записи, получено %d", stats.TotalLogs)
	}
	if stats.ActionCounts[model.ActionCopied] != 2 {
		t.Errorf("ожидалось 2 COPIED, получено %d", stats.ActionCounts[model.ActionCopied])
	}
	if stats.Last24Hours != 4 {
		t.Errorf("все записи свежие, ожидалось 4 за сутки, получено %d", stats.Last24Hours)
	}
}

// --- Тесты SettingsRepository ---

func TestSettingsGetCreatesDefaults(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSettingsRepository(pool)

	s, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения настроек: %v", err)
	}
	if s.SourceFolder != "" {
		t.Errorf("источник по умолчанию должен быть пуст, получен %q", s.SourceFolder)
	}
	if s.RetentionDays != model.DefaultRetentionDays {
		t.Errorf("ожидался срок хранения %d дней, получен %d", model.DefaultRetentionDays, s.RetentionDays)
	}
	if s.LastIndexingAt != nil {
		t.Error("время индексации не должно быть задано для новой установки")
	}

	// Повторный Get возвращает ту же строку
	if _, err := repo.Get(ctx); err != nil {
		t.Fatalf("Ошибка повторного получения: %v", err)
	}
}

func TestSettingsUpdate(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSettingsRepository(pool)

	s := &model.Settings{
		SourceFolder:     `\\127.12.23.23\Folder A\Scans`,
		RetentionDays:    14,
		RetentionMinutes: 30,
	}
	if err := repo.Update(ctx, s); err != nil {
		t.Fatalf("Ошибка сохранения настроек: %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения: %v", err)
	}
	if got.SourceFolder != s.SourceFolder {
		t.Errorf("неверный источник: %q", got.SourceFolder)
	}
	if got.RetentionDays != 14 || got.RetentionMinutes != 30 {
		t.Errorf("неверный срок хранения: %d дней %d минут", got.RetentionDays, got.RetentionMinutes)
	}
}

func TestSettingsSetIndexingInfo(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSettingsRepository(pool)

	// Строка должна существовать
	if _, err := repo.Get(ctx); err != nil {
		t.Fatalf("Ошибка инициализации настроек: %v", err)
	}

	if err := repo.SetIndexingInfo(ctx, model.ModeCopy); err != nil {
		t.Fatalf("Ошибка фиксации индексации: %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения: %v", err)
	}
	if got.LastIndexingAt == nil {
		t.Fatal("время индексации должно быть заполнено")
	}
	if got.LastIndexingMode == nil || *got.LastIndexingMode != model.ModeCopy {
		t.Errorf("ожидался режим COPY, получен %v", got.LastIndexingMode)
	}
}
