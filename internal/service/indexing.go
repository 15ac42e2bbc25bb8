// indexing.go — сервис индексации: перенос файлов из директории-источника
// в управляемую директорию локального хранилища.
//
// Правило повторной индексации: файл с тем же именем в управляемой
// директории заменяется, его прежняя история в журнале операций
// сбрасывается. Замена файла и запись новой строки журнала выполняются
// в одной транзакции.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/scanstore/internal/domain/model"
	"github.com/arturkryukov/scanstore/internal/repository"
	"github.com/arturkryukov/scanstore/internal/storage/filestore"
	"github.com/arturkryukov/scanstore/internal/storage/pathguard"
)

// Prometheus метрики индексации
var (
	indexingRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sc_indexing_runs_total",
		Help: "Общее количество запусков индексации",
	})

	indexingFilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sc_indexing_files_processed_total",
		Help: "Общее количество файлов, обработанных индексацией",
	}, []string{"mode"})

	indexingErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sc_indexing_errors_total",
		Help: "Общее количество ошибок обработки файлов при индексации",
	})

	indexingDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sc_indexing_duration_seconds",
		Help:    "Длительность выполнения индексации в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// LogTxRunner выполняет операции журнала в одной транзакции.
// Реализуется repository.TxRunner; в тестах — фейком.
type LogTxRunner interface {
	RunInLogTx(ctx context.Context, fn func(logs repository.FileLogRepository) error) error
}

// IndexingResult — результат одного запуска индексации.
type IndexingResult struct {
	// Mode — режим обработки (COPY/MOVE)
	Mode model.IndexingMode `json:"mode"`
	// TargetDir — управляемая директория, в которую шла индексация
	TargetDir string `json:"targetDir"`
	// TotalFound — количество файлов, найденных в источнике
	TotalFound int `json:"totalFound"`
	// TotalProcessed — количество успешно обработанных файлов
	TotalProcessed int `json:"totalProcessed"`
	// Replaced — сколько из обработанных заменили существующий файл
	Replaced int `json:"replaced"`
	// Skipped — количество пропущенных файлов; каждый пропуск
	// сопровождается записью в Errors
	Skipped int `json:"skipped"`
	// Errors — ошибки обработки отдельных файлов, по одной на пропуск
	Errors []string `json:"errors,omitempty"`
	// Duration — длительность выполнения
	Duration time.Duration `json:"-"`
}

// IndexingService — сервис индексации директории-источника.
type IndexingService struct {
	settings repository.SettingsRepository
	logTx    LogTxRunner
	store    *filestore.FileStore
	guard    *MaintenanceGuard
	logger   *slog.Logger
}

// NewIndexingService создаёт сервис индексации.
func NewIndexingService(
	settings repository.SettingsRepository,
	logTx LogTxRunner,
	store *filestore.FileStore,
	guard *MaintenanceGuard,
	logger *slog.Logger,
) *IndexingService {
	return &IndexingService{
		settings: settings,
		logTx:    logTx,
		store:    store,
		guard:    guard,
		logger:   logger.With(slog.String("component", "indexing")),
	}
}

// Run выполняет один запуск индексации в заданном режиме.
// actor — username инициатора (для журнала операций).
//
// Ошибки обработки отдельных файлов не прерывают запуск: они
// агрегируются в IndexingResult.Errors. Возвращаемая ошибка означает,
// что запуск не состоялся вовсе (источник не настроен, обслуживание
// занято, источник недоступен).
func (s *IndexingService) Run(ctx context.Context, mode model.IndexingMode, actor string) (*IndexingResult, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("недопустимый режим индексации: %q", mode)
	}

	if !s.guard.TryBegin("indexing") {
		return nil, ErrMaintenanceBusy
	}
	defer s.guard.End()

	start := time.Now()

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек: %w", err)
	}
	if cfg.SourceFolder == "" {
		return nil, ErrNotConfigured
	}
	if _, err := os.Stat(cfg.SourceFolder); err != nil {
		return nil, fmt.Errorf("%w: источник %s недоступен: %v", ErrNotConfigured, cfg.SourceFolder, err)
	}

	targetDir := cfg.TargetDir(s.store.LocalRoot())
	if err := s.store.EnsureDir(targetDir); err != nil {
		return nil, err
	}

	files, err := s.store.ListFiles(cfg.SourceFolder)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения источника: %w", err)
	}

	result := &IndexingResult{
		Mode:       mode,
		TargetDir:  targetDir,
		TotalFound: len(files),
	}

	s.logger.Info("Индексация начата",
		slog.String("mode", string(mode)),
		slog.String("source", cfg.SourceFolder),
		slog.String("target", targetDir),
		slog.Int("files", len(files)),
	)

	for _, f := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "индексация прервана: "+ctx.Err().Error())
			break
		}
		s.processFile(ctx, cfg.SourceFolder, targetDir, f.Name, mode, actor, result)
	}

	if err := s.settings.SetIndexingInfo(ctx, mode); err != nil {
		s.logger.Warn("Не удалось зафиксировать время индексации",
			slog.String("error", err.Error()),
		)
	}

	result.Duration = time.Since(start)

	indexingRunsTotal.Inc()
	indexingFilesProcessedTotal.WithLabelValues(string(mode)).Add(float64(result.TotalProcessed))
	indexingErrorsTotal.Add(float64(len(result.Errors)))
	indexingDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("Индексация завершена",
		slog.Int("processed", result.TotalProcessed),
		slog.Int("replaced", result.Replaced),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// processFile обрабатывает один файл источника: замена существующего,
// копирование/перемещение, запись в журнал.
func (s *IndexingService) processFile(
	ctx context.Context,
	sourceDir, targetDir, name string,
	mode model.IndexingMode,
	actor string,
	result *IndexingResult,
) {
	if !pathguard.IsValidFilename(name) {
		s.logger.Debug("Файл пропущен: недопустимое имя",
			slog.String("filename", name),
		)
		result.Skipped++
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: недопустимое имя файла", name))
		return
	}

	srcPath := filepath.Join(sourceDir, name)
	targetPath := filepath.Join(targetDir, name)

	// Замена: существующий файл с тем же именем удаляется,
	// его история в журнале сбрасывается вместе с записью новой строки.
	replaced := s.store.Exists(targetPath)
	if replaced {
		if err := s.store.DeleteFile(targetPath); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: не удалось заменить существующий файл: %v", name, err))
			return
		}
	}

	var opErr error
	action := model.ActionCopied
	if mode == model.ModeMove {
		action = model.ActionMoved
		opErr = s.store.MoveFile(srcPath, targetPath)
	} else {
		opErr = s.store.CopyFile(srcPath, targetPath)
	}
	if opErr != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, opErr))
		return
	}

	// Файловая операция выполнена; отказ журнала не откатывает её,
	// а только логируется.
	err := s.logTx.RunInLogTx(ctx, func(logs repository.FileLogRepository) error {
		if replaced {
			if _, err := logs.DeleteByFilename(ctx, name); err != nil {
				return err
			}
		}
		return logs.Append(ctx, &model.LogEntry{
			Filename:      name,
			SourcePath:    srcPath,
			LocalPath:     targetPath,
			Action:        action,
			ActorUsername: actor,
		})
	})
	if err != nil {
		s.logger.Warn("Не удалось записать операцию в журнал",
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
	}

	result.TotalProcessed++
	if replaced {
		result.Replaced++
	}

	s.logger.Debug("Файл обработан",
		slog.String("filename", name),
		slog.String("action", string(action)),
		slog.Bool("replaced", replaced),
	)
}
