package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/scanstore/internal/domain/model"
)

// MaxLogLimit — максимальный размер страницы журнала операций.
const MaxLogLimit = 100

// LogFilters — фильтры выборки журнала операций.
type LogFilters struct {
	// Страница (от 1)
	Page int
	// Размер страницы (1..MaxLogLimit)
	Limit int
	// Фильтр по типу действия (nil — все)
	Action *model.FileAction
	// Подстрока имени файла (регистронезависимый поиск)
	Filename string
}

// Normalize приводит пагинацию к допустимым границам.
func (f *LogFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > MaxLogLimit {
		f.Limit = MaxLogLimit
	}
}

// LogStats — агрегированная статистика журнала операций.
type LogStats struct {
	// Общее количество записей
	TotalLogs int `json:"totalLogs"`
	// Количество записей по типам действий
	ActionCounts map[model.FileAction]int `json:"actionCounts"`
	// Количество записей за последние 24 часа
	Last24Hours int `json:"last24Hours"`
}

// FileLogRepository — интерфейс таблицы file_log (журнал операций).
type FileLogRepository interface {
	// Append добавляет запись в журнал. ID генерируется, если пуст.
	Append(ctx context.Context, e *model.LogEntry) error
	// DeleteByFilename удаляет все записи журнала для имени файла.
	// Возвращает количество удалённых записей.
	DeleteByFilename(ctx context.Context, filename string) (int, error)
	// Query возвращает страницу журнала (новые первыми) и общее
	// количество записей, подходящих под фильтры.
	Query(ctx context.Context, filters LogFilters) ([]model.LogEntry, int, error)
	// GetByID возвращает запись журнала по UUID.
	GetByID(ctx context.Context, id string) (*model.LogEntry, error)
	// Stats возвращает агрегированную статистику журнала.
	Stats(ctx context.Context) (*LogStats, error)
}

type fileLogRepo struct {
	db DBTX
}

// NewFileLogRepository создаёт репозиторий журнала операций.
func NewFileLogRepository(db DBTX) FileLogRepository {
	return &fileLogRepo{db: db}
}

func (r *fileLogRepo) Append(ctx context.Context, e *model.LogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	query := `
		INSERT INTO file_log (id, filename, source_path, local_path, action, actor_username)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.Filename, e.SourcePath, e.LocalPath, e.Action, e.ActorUsername,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал операций: %w", err)
	}
	return nil
}

func (r *fileLogRepo) DeleteByFilename(ctx context.Context, filename string) (int, error) {
	query := `DELETE FROM file_log WHERE filename = $1`

	tag, err := r.db.Exec(ctx, query, filename)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления записей журнала для %s: %w", filename, err)
	}
	return int(tag.RowsAffected()), nil
}

// buildLogWhere строит WHERE-условие и аргументы для фильтрации журнала.
func buildLogWhere(filters LogFilters) (string, []any) {
	var conditions []string
	var args []any
	argNum := 1

	if filters.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argNum))
		args = append(args, *filters.Action)
		argNum++
	}
	if filters.Filename != "" {
		conditions = append(conditions, fmt.Sprintf("filename ILIKE $%d", argNum))
		args = append(args, "%"+filters.Filename+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *fileLogRepo) Query(ctx context.Context, filters LogFilters) ([]model.LogEntry, int, error) {
	filters.Normalize()

	where, args := buildLogWhere(filters)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM file_log %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта записей журнала: %w", err)
	}

	argNum := len(args) + 1
	query := fmt.Sprintf(`
		SELECT id, filename, source_path, local_path, action, actor_username, created_at
		FROM file_log
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argNum, argNum+1)

	offset := (filters.Page - 1) * filters.Limit
	args = append(args, filters.Limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выборки журнала операций: %w", err)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(
			&e.ID, &e.Filename, &e.SourcePath, &e.LocalPath,
			&e.Action, &e.ActorUsername, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *fileLogRepo) GetByID(ctx context.Context, id string) (*model.LogEntry, error) {
	query := `
		SELECT id, filename, source_path, local_path, action, actor_username, created_at
		FROM file_log
		WHERE id = $1`

	e := &model.LogEntry{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Filename, &e.SourcePath, &e.LocalPath,
		&e.Action, &e.ActorUsername, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи журнала: %w", err)
	}
	return e, nil
}

func (r *fileLogRepo) Stats(ctx context.Context) (*LogStats, error) {
	stats := &LogStats{
		ActionCounts: make(map[model.FileAction]int),
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM file_log`).Scan(&stats.TotalLogs); err != nil {
		return nil, fmt.Errorf("ошибка подсчёта журнала: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT action, COUNT(*) FROM file_log GROUP BY action`)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации по действиям: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action model.FileAction
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата: %w", err)
		}
		stats.ActionCounts[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	since := time.Now().Add(-24 * time.Hour)
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM file_log WHERE created_at >= $1`, since,
	).Scan(&stats.Last24Hours)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта записей за сутки: %w", err)
	}

	return stats, nil
}
