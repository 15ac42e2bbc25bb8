// retention.go — сервис фоновой очистки устаревших файлов.
//
// Каждый тик (SC_SWEEP_INTERVAL, по умолчанию 15 минут) файлы
// управляемой директории старше настроенного срока хранения удаляются,
// каждое удаление фиксируется в журнале операций записью
// DELETED_RETENTION без актора.
//
// Запускается как горутина с периодическим тикером.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/scanstore/internal/domain/model"
	"github.com/arturkryukov/scanstore/internal/repository"
	"github.com/arturkryukov/scanstore/internal/storage/filestore"
)

// Prometheus метрики retention
var (
	retentionRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sc_retention_runs_total",
		Help: "Общее количество запусков retention-очистки",
	})

	retentionFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sc_retention_files_deleted_total",
		Help: "Общее количество файлов, удалённых retention-очисткой",
	})

	retentionBytesFreedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sc_retention_bytes_freed_total",
		Help: "Общий объём данных, освобождённый retention-очисткой, в байтах",
	})

	retentionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sc_retention_duration_seconds",
		Help:    "Длительность выполнения retention-очистки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// TotalScanned — количество просмотренных файлов
	TotalScanned int `json:"totalScanned"`
	// TotalDeleted — количество удалённых файлов
	TotalDeleted int `json:"totalDeleted"`
	// BytesFreed — освобождённый объём в байтах
	BytesFreed int64 `json:"bytesFreed"`
	// Errors — ошибки удаления отдельных файлов
	Errors []string `json:"errors,omitempty"`
	// Skipped — true, если очистка пропущена (обслуживание занято)
	Skipped bool `json:"skipped"`
	// Duration — длительность выполнения
	Duration time.Duration `json:"-"`
}

// RetentionStats — сводка retention для административного интерфейса.
type RetentionStats struct {
	// RetentionDays — настроенный срок хранения, дни
	RetentionDays int `json:"retentionDays"`
	// RetentionMinutes — дополнительные минуты к сроку хранения
	RetentionMinutes int `json:"retentionMinutes"`
	// SweepInterval — интервал между запусками очистки
	SweepInterval string `json:"sweepInterval"`
	// NextSweepAt — ожидаемое время следующего запуска
	NextSweepAt time.Time `json:"nextSweepAt"`
	// PendingDeletion — количество файлов, которые удалит следующий запуск
	PendingDeletion int `json:"pendingDeletion"`
}

// RetentionService — сервис фоновой очистки устаревших файлов.
type RetentionService struct {
	settings repository.SettingsRepository
	logs     repository.FileLogRepository
	store    *filestore.FileStore
	guard    *MaintenanceGuard
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc

	// mu защищает lastSweep: пишет горутина очистки, читает Stats.
	mu        sync.Mutex
	lastSweep time.Time
}

// NewRetentionService создаёт сервис retention-очистки.
func NewRetentionService(
	settings repository.SettingsRepository,
	logs repository.FileLogRepository,
	store *filestore.FileStore,
	guard *MaintenanceGuard,
	interval time.Duration,
	logger *slog.Logger,
) *RetentionService {
	return &RetentionService{
		settings: settings,
		logs:     logs,
		store:    store,
		guard:    guard,
		interval: interval,
		logger:   logger.With(slog.String("component", "retention")),
	}
}

// Start запускает фоновую горутину очистки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (rs *RetentionService) Start(ctx context.Context) {
	rsCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel

	go rs.run(rsCtx)

	rs.logger.Info("Retention-очистка запущена",
		slog.String("interval", rs.interval.String()),
	)
}

// Stop останавливает фоновый процесс очистки.
func (rs *RetentionService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
	}
	rs.logger.Info("Retention-очистка остановлена")
}

// run — основной цикл фоновой горутины.
func (rs *RetentionService) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	rs.RunOnce(ctx)

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл очистки.
// Если обслуживание занято (идёт индексация) — тик пропускается,
// возвращается результат с Skipped = true.
func (rs *RetentionService) RunOnce(ctx context.Context) *SweepResult {
	if !rs.guard.TryBegin("retention") {
		rs.logger.Debug("Retention-очистка пропущена: обслуживание занято")
		return &SweepResult{Skipped: true}
	}
	defer rs.guard.End()

	start := time.Now()
	rs.mu.Lock()
	rs.lastSweep = start
	rs.mu.Unlock()
	result := &SweepResult{}

	cfg, err := rs.settings.Get(ctx)
	if err != nil {
		rs.logger.Error("Retention: ошибка чтения настроек",
			slog.String("error", err.Error()),
		)
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	if cfg.SourceFolder == "" {
		// Управляемая директория ещё не определена
		return result
	}

	targetDir := cfg.TargetDir(rs.store.LocalRoot())
	cutoff := start.Add(-cfg.RetentionWindow())

	files, err := rs.store.ListFiles(targetDir)
	if err != nil {
		rs.logger.Error("Retention: ошибка чтения управляемой директории",
			slog.String("dir", targetDir),
			slog.String("error", err.Error()),
		)
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.TotalScanned = len(files)

	for _, f := range files {
		if !f.ModifiedAt.Before(cutoff) {
			continue
		}

		localPath := filepath.Join(targetDir, f.Name)
		if err := rs.store.DeleteFile(localPath); err != nil {
			rs.logger.Error("Retention: ошибка удаления файла",
				slog.String("filename", f.Name),
				slog.String("error", err.Error()),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}

		result.TotalDeleted++
		result.BytesFreed += f.Size

		if err := rs.logs.Append(ctx, &model.LogEntry{
			Filename:      f.Name,
			LocalPath:     localPath,
			Action:        model.ActionDeletedRetention,
			ActorUsername: model.SystemActor,
		}); err != nil {
			rs.logger.Warn("Retention: не удалось записать удаление в журнал",
				slog.String("filename", f.Name),
				slog.String("error", err.Error()),
			)
		}

		rs.logger.Debug("Retention: файл удалён",
			slog.String("filename", f.Name),
			slog.Int64("size", f.Size),
		)
	}

	result.Duration = time.Since(start)

	retentionRunsTotal.Inc()
	retentionFilesDeletedTotal.Add(float64(result.TotalDeleted))
	retentionBytesFreedTotal.Add(float64(result.BytesFreed))
	retentionDurationSeconds.Observe(result.Duration.Seconds())

	if result.TotalDeleted > 0 || len(result.Errors) > 0 {
		rs.logger.Info("Retention-очистка завершена",
			slog.Int("scanned", result.TotalScanned),
			slog.Int("deleted", result.TotalDeleted),
			slog.Int64("bytes_freed", result.BytesFreed),
			slog.Int("errors", len(result.Errors)),
			slog.Duration("duration", result.Duration),
		)
	}

	return result
}

// Stats возвращает сводку retention: настройки, время следующего
// запуска и количество файлов, подлежащих удалению.
func (rs *RetentionService) Stats(ctx context.Context) (*RetentionStats, error) {
	cfg, err := rs.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек: %w", err)
	}

	stats := &RetentionStats{
		RetentionDays:    cfg.RetentionDays,
		RetentionMinutes: cfg.RetentionMinutes,
		SweepInterval:    rs.interval.String(),
	}

	rs.mu.Lock()
	lastSweep := rs.lastSweep
	rs.mu.Unlock()

	if lastSweep.IsZero() {
		stats.NextSweepAt = time.Now().Add(rs.interval)
	} else {
		stats.NextSweepAt = lastSweep.Add(rs.interval)
	}

	if cfg.SourceFolder == "" {
		return stats, nil
	}

	targetDir := cfg.TargetDir(rs.store.LocalRoot())
	cutoff := time.Now().Add(-cfg.RetentionWindow())

	files, err := rs.store.ListFiles(targetDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения управляемой директории: %w", err)
	}
	for _, f := range files {
		if f.ModifiedAt.Before(cutoff) {
			stats.PendingDeletion++
		}
	}

	return stats, nil
}
