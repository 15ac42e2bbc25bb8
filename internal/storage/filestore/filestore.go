// Пакет filestore — операции с физическими файлами управляемого
// хранилища: перечисление, копирование, перемещение, удаление
// и разрешение коллизий имён.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arturkryukov/scanstore/internal/domain/model"
)

// FileStore — доступ к файлам на диске. Все пути — абсолютные;
// управляемая директория вычисляется вызывающей стороной из настроек.
type FileStore struct {
	// localRoot — корень локального хранилища (SC_LOCAL_ROOT)
	localRoot string
}

// New создаёт FileStore и гарантирует существование корня хранилища.
func New(localRoot string) (*FileStore, error) {
	if err := os.MkdirAll(localRoot, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать корень хранилища %s: %w", localRoot, err)
	}
	return &FileStore{localRoot: localRoot}, nil
}

// LocalRoot возвращает корень локального хранилища.
func (fs *FileStore) LocalRoot() string {
	return fs.localRoot
}

// EnsureDir создаёт директорию (рекурсивно), если её нет.
func (fs *FileStore) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}
	return nil
}

// ListFiles перечисляет файлы верхнего уровня директории dir
// (без рекурсии) и возвращает их отсортированными по времени
// изменения, новые первыми. Поддиректории, скрытые файлы (".*")
// и временные файлы ("*.tmp") молча пропускаются — фильтр действует
// и на директорию-источник при индексации, и на управляемую
// директорию, поэтому такие записи не попадают в счётчики.
// Несуществующая директория — пустой список, не ошибка.
func (fs *FileStore) ListFiles(dir string) ([]model.ManagedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", dir, err)
	}

	var files []model.ManagedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		// Пропускаем служебные и временные файлы
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
			continue
		}

		info, statErr := entry.Info()
		if statErr != nil {
			// Файл исчез между ReadDir и Stat — пропускаем
			continue
		}

		files = append(files, model.ManagedFile{
			Name:       name,
			Size:       info.Size(),
			Ext:        model.FileExt(name),
			ModifiedAt: info.ModTime(),
			Owner:      model.ExtractOwner(name),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})

	return files, nil
}

// UniqueTargetPath возвращает свободный путь для filename в dir.
// Если dir/filename не занят — возвращает его как есть, иначе
// добавляет " (1)", " (2)", … перед расширением до первого
// свободного имени. Предположение одного писателя: атомарность
// относительно внешних конкурентных записей не гарантируется.
func (fs *FileStore) UniqueTargetPath(dir, filename string) string {
	candidate := filepath.Join(dir, filename)
	if !exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	for k := 1; ; k++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, k, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

// CopyFile копирует файл src в dst.
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("ошибка открытия источника %s: %w", src, err)
	}
	defer in.Close()

	tmpPath := dst + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// MoveFile перемещает файл src в dst через os.Rename.
// При ошибке cross-device (источник на сетевом share) выполняет
// fallback: копирование + удаление источника.
func (fs *FileStore) MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return fmt.Errorf("ошибка перемещения %s: %w", src, err)
	}

	// EXDEV или иной отказ rename между устройствами
	if copyErr := fs.CopyFile(src, dst); copyErr != nil {
		return copyErr
	}
	if rmErr := os.Remove(src); rmErr != nil {
		return fmt.Errorf("ошибка удаления источника %s после копирования: %w", src, rmErr)
	}
	return nil
}

// DeleteFile удаляет файл с диска.
// Возвращает nil, если файл уже не существует.
func (fs *FileStore) DeleteFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", path, err)
	}
	return nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}
	return f, nil
}

// Exists проверяет существование файла.
func (fs *FileStore) Exists(path string) bool {
	return exists(path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
