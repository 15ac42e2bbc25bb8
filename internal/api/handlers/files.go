// files.go — обработчики /api/v1/files endpoints.
// Список, потоковая отдача, скачивание и удаление файлов
// управляемой директории с проверкой владения.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/scanstore/internal/api/errors"
	"github.com/arturkryukov/scanstore/internal/api/middleware"
	"github.com/arturkryukov/scanstore/internal/domain/model"
	"github.com/arturkryukov/scanstore/internal/service"
	"github.com/arturkryukov/scanstore/internal/storage/pathguard"
)

// ListFiles — GET /api/v1/files?owner=...
// Возвращает файлы, видимые текущему пользователю.
// USER видит только свои файлы; ADMIN — все, с опциональным фильтром owner.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	ownerFilter := r.URL.Query().Get("owner")

	files, err := h.files.List(r.Context(), role, username, ownerFilter)
	if err != nil {
		h.logger.Error("Ошибка получения списка файлов", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка файлов")
		return
	}

	if files == nil {
		files = []model.ManagedFile{}
	}

	writeJSON(w, http.StatusOK, listFilesResponse{
		Items: files,
		Total: len(files),
	})
}

// StreamFile — GET /api/v1/files/{name}/stream.
// Отдаёт файл inline, если тип содержимого безопасен для отображения
// в браузере, иначе attachment.
func (h *APIHandler) StreamFile(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, false)
}

// DownloadFile — GET /api/v1/files/{name}/download.
// Всегда отдаёт файл как attachment.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, true)
}

// serveFile — общая отдача файла для stream и download.
// forceAttachment — принудительный Content-Disposition: attachment.
func (h *APIHandler) serveFile(w http.ResponseWriter, r *http.Request, forceAttachment bool) {
	filename := chi.URLParam(r, "name")
	username := middleware.UsernameFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	file, info, err := h.files.Open(r.Context(), filename, role, username)
	if err != nil {
		h.writeFileError(w, filename, err, "Ошибка открытия файла")
		return
	}
	defer file.Close()

	disposition := "attachment"
	if !forceAttachment && info.Inline {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("%s; filename=\"%s\"", disposition, pathguard.SanitizeFilename(info.Name)))

	// ServeContent обрабатывает Range, If-Modified-Since и Content-Length
	http.ServeContent(w, r, info.Name, info.ModifiedAt, file)
}

// DeleteFile — DELETE /api/v1/files/{name}.
// Удаляет файл с проверкой владения; пишет DELETED_MANUAL в журнал.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "name")
	username := middleware.UsernameFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	if err := h.files.Delete(r.Context(), filename, role, username); err != nil {
		h.writeFileError(w, filename, err, "Ошибка удаления файла")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllFiles — DELETE /api/v1/files.
// Удаляет все файлы, видимые текущему пользователю.
// Частичные ошибки не прерывают операцию и возвращаются списком.
func (h *APIHandler) DeleteAllFiles(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	deleted, errs, err := h.files.DeleteAll(r.Context(), role, username)
	if err != nil {
		h.writeFileError(w, "", err, "Ошибка массового удаления файлов")
		return
	}

	writeJSON(w, http.StatusOK, deleteAllResponse{
		Deleted: deleted,
		Errors:  errs,
	})
}

// writeFileError отображает ошибки файлового сервиса в HTTP-ответы.
func (h *APIHandler) writeFileError(w http.ResponseWriter, filename string, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		apierrors.SourceNotConfigured(w, "Директория-источник не настроена")
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Файл не найден")
	case errors.Is(err, service.ErrAccessDenied):
		apierrors.Forbidden(w, "Недостаточно прав для доступа к файлу")
	case errors.Is(err, pathguard.ErrPathTraversal):
		apierrors.PathTraversal(w, "Недопустимое имя файла")
	default:
		h.logger.Error(logMsg, "filename", filename, "error", err)
		apierrors.InternalError(w, logMsg)
	}
}

// listFilesResponse — ответ списка файлов.
type listFilesResponse struct {
	Items []model.ManagedFile `json:"items"`
	Total int                 `json:"total"`
}

// deleteAllResponse — результат массового удаления.
type deleteAllResponse struct {
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}
