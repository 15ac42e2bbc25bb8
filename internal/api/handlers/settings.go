// settings.go — обработчики /api/v1/settings endpoints.
// Просмотр и изменение единственной строки настроек. Доступ: только ADMIN.
package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	apierrors "github.com/arturkryukov/scanstore/internal/api/errors"
	"github.com/arturkryukov/scanstore/internal/domain/model"
)

// maxRetentionDays — верхняя граница срока хранения.
const maxRetentionDays = 365

// settingsUpdateRequest — тело запроса изменения настроек.
type settingsUpdateRequest struct {
	SourceFolder     string `json:"sourceFolder"`
	RetentionDays    int    `json:"retentionDays"`
	RetentionMinutes int    `json:"retentionMinutes"`
}

// GetSettings — GET /api/v1/settings.
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения настроек", "error", err)
		apierrors.InternalError(w, "Ошибка получения настроек")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings — PUT /api/v1/settings.
// Проверяет границы retention и доступность директории-источника.
// Нулевое окно хранения (0 дней, 0 минут) допустимо, но логируется
// как предупреждение: следующая очистка удалит все файлы.
func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if req.RetentionDays < 0 || req.RetentionDays > maxRetentionDays {
		apierrors.ValidationError(w, "Срок хранения должен быть от 0 до 365 дней")
		return
	}
	if req.RetentionMinutes < 0 {
		apierrors.ValidationError(w, "Дополнительные минуты хранения не могут быть отрицательными")
		return
	}

	if req.SourceFolder != "" {
		info, err := os.Stat(req.SourceFolder)
		if err != nil {
			apierrors.ValidationError(w, "Директория-источник недоступна: "+err.Error())
			return
		}
		if !info.IsDir() {
			apierrors.ValidationError(w, "Путь источника не является директорией")
			return
		}
	}

	if req.RetentionDays == 0 && req.RetentionMinutes == 0 {
		h.logger.Warn("Настроено нулевое окно хранения: следующая очистка удалит все файлы")
	}

	settings := &model.Settings{
		SourceFolder:     req.SourceFolder,
		RetentionDays:    req.RetentionDays,
		RetentionMinutes: req.RetentionMinutes,
	}

	if err := h.settings.Update(r.Context(), settings); err != nil {
		h.logger.Error("Ошибка сохранения настроек", "error", err)
		apierrors.InternalError(w, "Ошибка сохранения настроек")
		return
	}

	// Перечитываем строку, чтобы вернуть актуальные поля последней индексации
	updated, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("Ошибка чтения настроек после сохранения", "error", err)
		apierrors.InternalError(w, "Ошибка чтения настроек после сохранения")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
