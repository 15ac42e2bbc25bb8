// logs.go — обработчики /api/v1/logs endpoints.
// Журнал файловых операций: фильтрация, пагинация, статистика.
// Доступ: только ADMIN.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/arturkryukov/scanstore/internal/api/errors"
	"github.com/arturkryukov/scanstore/internal/domain/model"
	"github.com/arturkryukov/scanstore/internal/repository"
)

// logListResponse — страница журнала операций.
type logListResponse struct {
	Items []model.LogEntry `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// QueryLogs — GET /api/v1/logs?page&limit&action&filename.
// Возвращает страницу журнала, новые записи первыми.
func (h *APIHandler) QueryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := repository.LogFilters{
		Filename: q.Get("filename"),
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			apierrors.ValidationError(w, "Параметр page должен быть числом")
			return
		}
		filters.Page = page
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			apierrors.ValidationError(w, "Параметр limit должен быть числом")
			return
		}
		filters.Limit = limit
	}

	if v := q.Get("action"); v != "" {
		action := model.FileAction(v)
		if !action.Valid() {
			apierrors.ValidationError(w, "Неизвестный тип операции: "+v)
			return
		}
		filters.Action = &action
	}

	filters.Normalize()

	items, total, err := h.logs.Query(r.Context(), filters)
	if err != nil {
		h.logger.Error("Ошибка чтения журнала операций", "error", err)
		apierrors.InternalError(w, "Ошибка чтения журнала операций")
		return
	}

	if items == nil {
		items = []model.LogEntry{}
	}

	writeJSON(w, http.StatusOK, logListResponse{
		Items: items,
		Total: total,
		Page:  filters.Page,
		Limit: filters.Limit,
	})
}

// LogStats — GET /api/v1/logs/stats.
// Агрегированная статистика журнала: всего записей, по типам операций,
// за последние 24 часа.
func (h *APIHandler) LogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logs.Stats(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения статистики журнала", "error", err)
		apierrors.InternalError(w, "Ошибка получения статистики журнала")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetLogEntry — GET /api/v1/logs/{id}.
// Возвращает одну запись журнала по UUID.
func (h *APIHandler) GetLogEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		apierrors.ValidationError(w, "Идентификатор записи должен быть UUID")
		return
	}

	entry, err := h.logs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Запись журнала не найдена")
			return
		}
		h.logger.Error("Ошибка получения записи журнала", "id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения записи журнала")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
