// Пакет model — доменные модели Scanstore: управляемые файлы,
// журнал операций, настройки retention и роли пользователей.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

// ManagedFile — файл в управляемой директории.
// Не персистентная сущность: собирается заново из файловой системы
// при каждом обращении. Владелец вычисляется из имени файла (ExtractOwner).
type ManagedFile struct {
	// Name — имя файла внутри управляемой директории (без пути)
	Name string `json:"name"`
	// Size — размер в байтах
	Size int64 `json:"size"`
	// Ext — расширение в нижнем регистре, без точки
	Ext string `json:"ext"`
	// ModifiedAt — время последнего изменения (из метаданных ФС)
	ModifiedAt time.Time `json:"modifiedAt"`
	// Owner — владелец, вычисленный из имени файла; "" = не назначен
	Owner string `json:"owner,omitempty"`
}

// ExtractOwner вычисляет владельца файла по соглашению об именовании
// <owner>_<код>.<ext>: первый сегмент до подчёркивания — владелец.
// Если сегментов меньше двух, файл считается неназначенным и
// возвращается пустая строка (виден только администраторам).
//
// Чистая функция: одно и то же имя всегда даёт одного владельца,
// без обращений к БД или состоянию.
func ExtractOwner(filename string) string {
	parts := strings.Split(filename, "_")
	if len(parts) >= 2 {
		return parts[0]
	}
	return ""
}

// FileExt возвращает расширение имени файла в нижнем регистре без точки.
func FileExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.TrimPrefix(ext, ".")
}
