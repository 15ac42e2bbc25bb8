package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/scanstore/internal/domain/model"
)

// settingsRowID — единственная строка таблицы settings (singleton).
const settingsRowID = 1

// SettingsRepository — интерфейс таблицы settings.
// Таблица содержит ровно одну строку с id = 1.
type SettingsRepository interface {
	// Get возвращает настройки, создавая строку со значениями
	// по умолчанию при первом обращении.
	Get(ctx context.Context) (*model.Settings, error)
	// Update сохраняет источник и параметры хранения.
	Update(ctx context.Context, s *model.Settings) error
	// SetIndexingInfo фиксирует время и режим последней индексации.
	SetIndexingInfo(ctx context.Context, mode model.IndexingMode) error
}

type settingsRepo struct {
	db DBTX
}

// NewSettingsRepository создаёт репозиторий настроек.
func NewSettingsRepository(db DBTX) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	s, err := r.scanRow(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}

	// Первое обращение: создаём строку со значениями по умолчанию.
	// ON CONFLICT защищает от гонки двух параллельных Get.
	insert := `
		INSERT INTO settings (id, source_folder, retention_days, retention_minutes)
		VALUES ($1, '', $2, 0)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.Exec(ctx, insert, settingsRowID, model.DefaultRetentionDays); err != nil {
		return nil, fmt.Errorf("ошибка инициализации настроек: %w", err)
	}

	s, err = r.scanRow(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек после инициализации: %w", err)
	}
	return s, nil
}

func (r *settingsRepo) scanRow(ctx context.Context) (*model.Settings, error) {
	query := `
		SELECT source_folder, retention_days, retention_minutes,
			last_indexing_at, last_indexing_mode
		FROM settings
		WHERE id = $1`

	s := &model.Settings{}
	err := r.db.QueryRow(ctx, query, settingsRowID).Scan(
		&s.SourceFolder, &s.RetentionDays, &s.RetentionMinutes,
		&s.LastIndexingAt, &s.LastIndexingMode,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *settingsRepo) Update(ctx context.Context, s *model.Settings) error {
	query := `
		INSERT INTO settings (id, source_folder, retention_days, retention_minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET source_folder = EXCLUDED.source_folder,
			retention_days = EXCLUDED.retention_days,
			retention_minutes = EXCLUDED.retention_minutes,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		settingsRowID, s.SourceFolder, s.RetentionDays, s.RetentionMinutes,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	return nil
}

func (r *settingsRepo) SetIndexingInfo(ctx context.Context, mode model.IndexingMode) error {
	query := `
		UPDATE settings
		SET last_indexing_at = NOW(), last_indexing_mode = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, settingsRowID, mode)
	if err != nil {
		return fmt.Errorf("ошибка фиксации индексации: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
