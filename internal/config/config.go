// Пакет config — загрузка и валидация конфигурации Scanstore
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Scanstore.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище ---

	// Корень локального хранилища файлов
	LocalRoot string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- JWT ---

	// URL JWKS endpoint провайдера аутентификации
	JWTJWKSURL string
	// Ожидаемый issuer токенов (пустой — без проверки issuer)
	JWTIssuer string

	// --- Фоновые процессы ---

	// Интервал фоновой очистки устаревших файлов
	SweepInterval time.Duration
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("SC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SC_LOG_LEVEL: %w", err)
	}

	// SC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Хранилище ---

	// SC_LOCAL_ROOT — обязательный, абсолютный путь
	cfg.LocalRoot, err = getEnvRequired("SC_LOCAL_ROOT")
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.LocalRoot) {
		return nil, fmt.Errorf("SC_LOCAL_ROOT: путь %q должен быть абсолютным", cfg.LocalRoot)
	}

	// --- PostgreSQL ---

	// SC_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SC_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SC_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SC_DB_PORT: %w", err)
	}

	// SC_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SC_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SC_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SC_DB_USER")
	if err != nil {
		return nil, err
	}

	// SC_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SC_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SC_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	// SC_JWT_JWKS_URL — обязательный
	cfg.JWTJWKSURL, err = getEnvRequired("SC_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// SC_JWT_ISSUER — опциональная проверка issuer
	cfg.JWTIssuer = getEnvDefault("SC_JWT_ISSUER", "")

	// --- Фоновые процессы ---

	// SC_SWEEP_INTERVAL — интервал очистки устаревших файлов (по умолчанию 15m)
	cfg.SweepInterval, err = getEnvDuration("SC_SWEEP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SC_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval < time.Minute {
		return nil, fmt.Errorf("SC_SWEEP_INTERVAL: значение %s меньше минимального 1m", cfg.SweepInterval)
	}

	// SC_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// SC_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("SC_DEPHEALTH_GROUP", "scanstore")

	// --- Graceful shutdown ---

	// SC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для topologymetrics и других потребителей URL-формата).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
