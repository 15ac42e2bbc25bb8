package model

import "time"

// FileAction — тип операции над файлом в журнале.
type FileAction string

const (
	// ActionCopied — файл скопирован из источника при индексации.
	ActionCopied FileAction = "COPIED"
	// ActionMoved — файл перемещён из источника при индексации.
	ActionMoved FileAction = "MOVED"
	// ActionDeletedRetention — файл удалён retention-очисткой.
	ActionDeletedRetention FileAction = "DELETED_RETENTION"
	// ActionDeletedManual — файл удалён пользователем вручную.
	ActionDeletedManual FileAction = "DELETED_MANUAL"
)

// Valid проверяет, что действие принадлежит множеству известных.
func (a FileAction) Valid() bool {
	switch a {
	case ActionCopied, ActionMoved, ActionDeletedRetention, ActionDeletedManual:
		return true
	}
	return false
}

// LogEntry — запись журнала операций (append-only).
// Создаётся ровно один раз в момент мутации файловой системы,
// никогда не обновляется и не удаляется штатными операциями
// (исключение: сброс истории файла при повторной индексации
// с тем же именем).
type LogEntry struct {
	// ID — уникальный идентификатор записи (UUID)
	ID string `json:"id"`
	// Filename — имя файла на момент операции
	Filename string `json:"filename"`
	// SourcePath — путь источника для операций индексации; "" для удалений
	SourcePath string `json:"sourcePath,omitempty"`
	// LocalPath — абсолютный путь в управляемом хранилище на момент операции
	LocalPath string `json:"localPath"`
	// Action — тип операции
	Action FileAction `json:"action"`
	// ActorUsername — кто выполнил операцию; "" = система (retention)
	ActorUsername string `json:"actorUsername,omitempty"`
	// CreatedAt — время записи, неизменяемое
	CreatedAt time.Time `json:"createdAt"`
}

// SystemActor — условное имя актора для автоматических операций
// (retention-очистка, индексация без инициатора).
const SystemActor = ""
