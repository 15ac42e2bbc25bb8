// metrics.go — Prometheus HTTP метрики сервиса.
// Регистрирует метрики: sc_http_requests_total, sc_http_request_duration_seconds.
// Бизнес-метрики индексации и очистки регистрируются в сервисном слое.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sc_http_requests_total",
			Help: "Общее количество HTTP-запросов к сервису",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sc_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к сервису в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем имена файлов и UUID на плейсхолдеры,
			// чтобы не раздувать кардинальность)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет переменные сегменты пути на плейсхолдеры.
// /api/v1/files/ivanov_report.pdf/stream → /api/v1/files/{name}/stream
// /api/v1/logs/a1b2c3d4-... → /api/v1/logs/{id}
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/files", "/api/v1/settings",
		"/api/v1/indexing/run",
		"/api/v1/retention/run", "/api/v1/retention/stats",
		"/api/v1/logs", "/api/v1/logs/stats":
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/files/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/stream") {
			return "/api/v1/files/{name}/stream"
		}
		if strings.HasSuffix(rest, "/download") {
			return "/api/v1/files/{name}/download"
		}
		if !strings.Contains(rest, "/") {
			return "/api/v1/files/{name}"
		}
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/logs/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/logs/{id}"
	}

	return path
}
