// retention.go — обработчики /api/v1/retention endpoints.
// Ручной запуск очистки и сводка retention. Доступ: только ADMIN.
package handlers

import (
	"net/http"

	apierrors "github.com/arturkryukov/scanstore/internal/api/errors"
)

// RunRetention — POST /api/v1/retention/run.
// Синхронно выполняет один проход очистки.
func (h *APIHandler) RunRetention(w http.ResponseWriter, r *http.Request) {
	result := h.retention.RunOnce(r.Context())
	if result.Skipped {
		apierrors.MaintenanceInProgress(w, "Индексация или очистка уже выполняется")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RetentionStats — GET /api/v1/retention/stats.
// Текущие настройки retention и прогноз следующего запуска.
func (h *APIHandler) RetentionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.retention.Stats(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения статистики retention", "error", err)
		apierrors.InternalError(w, "Ошибка получения статистики retention")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
