// Пакет pathguard — единственный барьер против path traversal и
// инъекций в HTTP-заголовки. Все компоненты, работающие с именами
// файлов, обязаны проходить через этот пакет; локальных
// переизобретений этих проверок быть не должно.
package pathguard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal — кандидат-путь выходит за пределы корневой директории.
var ErrPathTraversal = errors.New("path traversal: путь выходит за пределы корневой директории")

// ResolveSafe разрешает candidate относительно root и возвращает
// абсолютный путь. Возвращает ErrPathTraversal, если результат
// не равен root и не находится строго внутри root.
// Отклоняет ..-эскейпы, абсолютные кандидаты вне root и
// трюки со смешанными разделителями.
func ResolveSafe(root, candidate string) (string, error) {
	normalizedRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("нормализация корня %s: %w", root, err)
	}

	// Обратные слэши в кандидате нормализуем до прямых, чтобы
	// "..\\..\\etc" не обходил проверку на unix-системах.
	cleaned := strings.ReplaceAll(candidate, "\\", "/")

	var resolved string
	if filepath.IsAbs(cleaned) {
		resolved = filepath.Clean(cleaned)
	} else {
		resolved = filepath.Join(normalizedRoot, cleaned)
	}

	if resolved != normalizedRoot && !strings.HasPrefix(resolved, normalizedRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q вне %q", ErrPathTraversal, candidate, root)
	}

	return resolved, nil
}

// SanitizeFilename приводит имя к виду, безопасному для
// Content-Disposition и имён в ответах API. Используется ТОЛЬКО
// для вывода — авторитетное имя на диске через эту функцию
// не проходит (для него есть IsValidFilename).
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteByte('_')
		case r <= 0x1f || r == 0x7f:
			// управляющие символы выбрасываем
		case strings.ContainsRune(`<>:"|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// IsValidFilename — авторитетная проверка имени, принимаемого на вход
// (индексация и смежные потоки). Допускаются только латинские буквы,
// цифры, пробел, точка, дефис, подчёркивание и круглые скобки;
// длина 1–255. Скобки нужны, чтобы имена вида "report (1).pdf",
// созданные разрешением коллизий, оставались валидным входом
// для последующих list/stream/delete.
func IsValidFilename(name string) bool {
	if len(name) == 0 || len(name) > 255 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == ' ' || r == '.' || r == '-' || r == '_':
		case r == '(' || r == ')':
		default:
			return false
		}
	}
	return true
}
