package model

import (
	"path/filepath"
	"strings"
	"time"
)

// IndexingMode — режим обработки файлов при индексации.
type IndexingMode string

const (
	// ModeCopy — файл копируется, источник сохраняется.
	ModeCopy IndexingMode = "COPY"
	// ModeMove — файл перемещается, источник удаляется после успеха.
	ModeMove IndexingMode = "MOVE"
)

// Valid проверяет, что режим принадлежит множеству известных.
func (m IndexingMode) Valid() bool {
	return m == ModeCopy || m == ModeMove
}

// DefaultRetentionDays — срок хранения по умолчанию для новой установки.
const DefaultRetentionDays = 7

// Settings — единственная активная конфигурация retention и индексации.
// Хранится одной строкой (id = 1); мутируется только через
// административный интерфейс настроек.
type Settings struct {
	// SourceFolder — путь к внешней директории-источнику (часто UNC share);
	// может быть не задан
	SourceFolder string `json:"sourceFolder"`
	// RetentionDays — срок хранения в днях; >= 0
	RetentionDays int `json:"retentionDays"`
	// RetentionMinutes — дополнительные минуты к сроку хранения,
	// для тестирования суб-суточных окон; >= 0
	RetentionMinutes int `json:"retentionMinutes"`
	// LastIndexingAt — время последнего запуска индексации
	LastIndexingAt *time.Time `json:"lastIndexingAt,omitempty"`
	// LastIndexingMode — режим последнего запуска индексации
	LastIndexingMode *IndexingMode `json:"lastIndexingMode,omitempty"`
}

// RetentionWindow возвращает окно хранения как Duration.
// Нулевое окно (0 дней, 0 минут) — валидная конфигурация:
// следующая очистка удалит всё, что изменено строго раньше "сейчас".
func (s *Settings) RetentionWindow() time.Duration {
	return time.Duration(s.RetentionDays)*24*time.Hour +
		time.Duration(s.RetentionMinutes)*time.Minute
}

// TargetDir возвращает управляемую директорию для заданного источника:
// <localRoot>/<последний сегмент source_folder>. Поддерживает
// Windows-пути и UNC share в значении source_folder.
func (s *Settings) TargetDir(localRoot string) string {
	return filepath.Join(localRoot, folderBasename(s.SourceFolder))
}

// folderBasename возвращает последний непустой сегмент пути,
// нормализуя обратные слэши. Для пустого пути возвращает "unknown".
func folderBasename(folder string) string {
	normalized := strings.ReplaceAll(folder, "\\", "/")
	segments := strings.Split(normalized, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return "unknown"
}
