// handler.go — APIHandler объединяет доменные обработчики
// и делегирует вызовы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/arturkryukov/scanstore/internal/repository"
	"github.com/arturkryukov/scanstore/internal/service"
)

// APIHandler — основной обработчик API Scanstore.
type APIHandler struct {
	health    *HealthHandler
	files     *service.FileService
	indexing  *service.IndexingService
	retention *service.RetentionService
	logs      repository.FileLogRepository
	settings  repository.SettingsRepository
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	files *service.FileService,
	indexing *service.IndexingService,
	retention *service.RetentionService,
	logs repository.FileLogRepository,
	settings repository.SettingsRepository,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		files:     files,
		indexing:  indexing,
		retention: retention,
		logs:      logs,
		settings:  settings,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
