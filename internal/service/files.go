// files.go — сервис доступа к файлам управляемой директории.
//
// Единственная точка принятия решений о доступе: список, выдача
// и удаление файлов проходят через проверку model.CanAccess.
// Владелец файла выводится из имени (segment до первого "_").
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arturkryukov/scanstore/internal/domain/model"
	"github.com/arturkryukov/scanstore/internal/repository"
	"github.com/arturkryukov/scanstore/internal/storage/filestore"
	"github.com/arturkryukov/scanstore/internal/storage/pathguard"
)

// extContentTypes — типы содержимого по расширению файла.
// Для неизвестных расширений тип определяется по содержимому.
var extContentTypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"txt":  "text/plain; charset=utf-8",
	"csv":  "text/csv; charset=utf-8",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"zip":  "application/zip",
}

// inlineSafeTypes — типы, которые можно отдавать inline в браузер.
var inlineSafeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/bmp":       true,
	"image/tiff":      true,
	"text/plain":      true,
}

// mimeCacheSize — размер LRU-кэша определённых по содержимому типов.
const mimeCacheSize = 512

// FileInfo — сведения о файле для отдачи клиенту.
type FileInfo struct {
	// Name — имя файла
	Name string
	// Path — абсолютный путь на диске
	Path string
	// Size — размер в байтах
	Size int64
	// ModifiedAt — время последнего изменения
	ModifiedAt time.Time
	// ContentType — тип содержимого
	ContentType string
	// Inline — можно ли отдавать без принудительного attachment
	Inline bool
}

// FileService — сервис доступа к файлам.
type FileService struct {
	settings repository.SettingsRepository
	logs     repository.FileLogRepository
	store    *filestore.FileStore
	logger   *slog.Logger

	// mimeCache — кэш типов, определённых по содержимому;
	// ключ: имя файла + время изменения
	mimeCache *lru.Cache[string, string]
}

// NewFileService создаёт сервис доступа к файлам.
func NewFileService(
	settings repository.SettingsRepository,
	logs repository.FileLogRepository,
	store *filestore.FileStore,
	logger *slog.Logger,
) (*FileService, error) {
	cache, err := lru.New[string, string](mimeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания MIME-кэша: %w", err)
	}
	return &FileService{
		settings:  settings,
		logs:      logs,
		store:     store,
		logger:    logger.With(slog.String("component", "files")),
		mimeCache: cache,
	}, nil
}

// targetDir возвращает управляемую директорию по текущим настройкам.
func (s *FileService) targetDir(ctx context.Context) (string, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения настроек: %w", err)
	}
	if cfg.SourceFolder == "" {
		return "", ErrNotConfigured
	}
	return cfg.TargetDir(s.store.LocalRoot()), nil
}

// List возвращает файлы, видимые пользователю: ADMIN видит все,
// USER — только свои (файлы без владельца пользователю не видны).
// ownerFilter дополнительно сужает список по владельцу.
// Ненастроенный источник — пустой список.
func (s *FileService) List(ctx context.Context, role model.Role, username, ownerFilter string) ([]model.ManagedFile, error) {
	dir, err := s.targetDir(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil, nil
		}
		return nil, err
	}

	files, err := s.store.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	visible := make([]model.ManagedFile, 0, len(files))
	for _, f := range files {
		if !model.CanAccess(role, username, f.Owner) {
			continue
		}
		if ownerFilter != "" && f.Owner != ownerFilter {
			continue
		}
		visible = append(visible, f)
	}
	return visible, nil
}

// resolve проверяет имя и возвращает безопасный абсолютный путь
// внутри управляемой директории.
func (s *FileService) resolve(ctx context.Context, filename string) (string, error) {
	if !pathguard.IsValidFilename(filename) {
		return "", fmt.Errorf("%w: недопустимое имя файла %q", pathguard.ErrPathTraversal, filename)
	}

	dir, err := s.targetDir(ctx)
	if err != nil {
		return "", err
	}

	path, err := pathguard.ResolveSafe(dir, filename)
	if err != nil {
		return "", err
	}
	return path, nil
}

// Open открывает файл для отдачи клиенту с проверкой прав.
// Вызывающий код обязан закрыть файл.
func (s *FileService) Open(ctx context.Context, filename string, role model.Role, username string) (*os.File, *FileInfo, error) {
	path, err := s.resolve(ctx, filename)
	if err != nil {
		return nil, nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("ошибка доступа к файлу %s: %w", filename, err)
	}

	owner := model.ExtractOwner(filename)
	if !model.CanAccess(role, username, owner) {
		return nil, nil, ErrAccessDenied
	}

	f, err := s.store.Open(path)
	if err != nil {
		return nil, nil, err
	}

	contentType := s.contentType(path, filename, stat.ModTime())

	return f, &FileInfo{
		Name:        filename,
		Path:        path,
		Size:        stat.Size(),
		ModifiedAt:  stat.ModTime(),
		ContentType: contentType,
		Inline:      isInlineSafe(contentType),
	}, nil
}

// Delete удаляет файл с проверкой прав и фиксирует удаление
// в журнале операций записью DELETED_MANUAL.
func (s *FileService) Delete(ctx context.Context, filename string, role model.Role, username string) error {
	path, err := s.resolve(ctx, filename)
	if err != nil {
		return err
	}

	if !s.store.Exists(path) {
		return ErrNotFound
	}

	owner := model.ExtractOwner(filename)
	if !model.CanAccess(role, username, owner) {
		return ErrAccessDenied
	}

	if err := s.store.DeleteFile(path); err != nil {
		return err
	}

	if err := s.logs.Append(ctx, &model.LogEntry{
		Filename:      filename,
		LocalPath:     path,
		Action:        model.ActionDeletedManual,
		ActorUsername: username,
	}); err != nil {
		s.logger.Warn("Не удалось записать удаление в журнал",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Файл удалён пользователем",
		slog.String("filename", filename),
		slog.String("username", username),
	)

	return nil
}

// DeleteAll удаляет все файлы, видимые пользователю.
// Ошибки удаления отдельных файлов агрегируются и не прерывают обход.
func (s *FileService) DeleteAll(ctx context.Context, role model.Role, username string) (int, []string, error) {
	files, err := s.List(ctx, role, username, "")
	if err != nil {
		return 0, nil, err
	}

	deleted := 0
	var errs []string
	for _, f := range files {
		if err := s.Delete(ctx, f.Name, role, username); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		deleted++
	}

	s.logger.Info("Массовое удаление завершено",
		slog.String("username", username),
		slog.Int("deleted", deleted),
		slog.Int("errors", len(errs)),
	)

	return deleted, errs, nil
}

// contentType определяет тип содержимого: сначала по расширению,
// для неизвестных расширений — по содержимому через mimetype
// (результат кэшируется по имени и времени изменения).
func (s *FileService) contentType(path, filename string, modTime time.Time) string {
	if ct, ok := extContentTypes[model.FileExt(filename)]; ok {
		return ct
	}

	key := fmt.Sprintf("%s|%d", filename, modTime.UnixNano())
	if ct, ok := s.mimeCache.Get(key); ok {
		return ct
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		s.logger.Debug("Не удалось определить тип содержимого",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		return "application/octet-stream"
	}

	ct := detected.String()
	s.mimeCache.Add(key, ct)
	return ct
}

// isInlineSafe проверяет, допустима ли отдача inline для типа.
// Параметры типа (charset и т.п.) не учитываются.
func isInlineSafe(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	return inlineSafeTypes[strings.TrimSpace(base)]
}
