// indexing.go — обработчик POST /api/v1/indexing/run.
// Запуск индексации директории-источника. Доступ: только ADMIN
// (контролируется middleware.RequireAdmin на уровне роутера).
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/arturkryukov/scanstore/internal/api/errors"
	"github.com/arturkryukov/scanstore/internal/api/middleware"
	"github.com/arturkryukov/scanstore/internal/domain/model"
	"github.com/arturkryukov/scanstore/internal/service"
)

// indexingRunRequest — тело запроса запуска индексации.
type indexingRunRequest struct {
	Mode string `json:"mode"`
}

// RunIndexing — POST /api/v1/indexing/run.
// Синхронно выполняет индексацию и возвращает результат.
// Ошибки отдельных файлов не прерывают проход и возвращаются
// внутри IndexingResult со статусом 200.
func (h *APIHandler) RunIndexing(w http.ResponseWriter, r *http.Request) {
	var req indexingRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	mode := model.IndexingMode(req.Mode)
	if !mode.Valid() {
		apierrors.ValidationError(w, "Режим индексации должен быть COPY или MOVE")
		return
	}

	actor := middleware.UsernameFromContext(r.Context())

	result, err := h.indexing.Run(r.Context(), mode, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotConfigured):
			apierrors.SourceNotConfigured(w, "Директория-источник не настроена или недоступна")
		case errors.Is(err, service.ErrMaintenanceBusy):
			apierrors.MaintenanceInProgress(w, "Индексация или очистка уже выполняется")
		default:
			h.logger.Error("Ошибка индексации", "mode", mode, "error", err)
			apierrors.InternalError(w, "Ошибка выполнения индексации")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
