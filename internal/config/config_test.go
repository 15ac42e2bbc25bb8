package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllSCEnvVars очищает все переменные окружения SC_* для чистого теста.
func clearAllSCEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"SC_PORT", "SC_LOG_LEVEL", "SC_LOG_FORMAT", "SC_LOCAL_ROOT",
		"SC_DB_HOST", "SC_DB_PORT", "SC_DB_NAME", "SC_DB_USER",
		"SC_DB_PASSWORD", "SC_DB_SSL_MODE",
		"SC_JWT_JWKS_URL", "SC_JWT_ISSUER",
		"SC_SWEEP_INTERVAL", "SC_DEPHEALTH_CHECK_INTERVAL",
		"SC_SHUTDOWN_TIMEOUT",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"SC_LOCAL_ROOT":   "/var/lib/scanstore",
		"SC_DB_HOST":      "localhost",
		"SC_DB_NAME":      "scanstore",
		"SC_DB_USER":      "scanstore",
		"SC_DB_PASSWORD":  "secret",
		"SC_JWT_JWKS_URL": "http://localhost:8080/realms/test/protocol/openid-connect/certs",
	}
}

func TestLoadDefaults(t *testing.T) {
	defer clearAllSCEnvVars(t)()
	defer setEnvVars(t, requiredEnvVars())()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("ожидался порт 8080, получен %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("ожидался уровень info, получен %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("ожидался формат json, получен %q", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("ожидался порт БД 5432, получен %d", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("ожидался sslmode disable, получен %q", cfg.DBSSLMode)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("ожидался интервал очистки 15m, получен %s", cfg.SweepInterval)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ожидался таймаут shutdown 5s, получен %s", cfg.ShutdownTimeout)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	defer clearAllSCEnvVars(t)()

	vars := requiredEnvVars()
	delete(vars, "SC_LOCAL_ROOT")
	defer setEnvVars(t, vars)()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка при отсутствии SC_LOCAL_ROOT")
	}
}

func TestLoadRelativeLocalRoot(t *testing.T) {
	defer clearAllSCEnvVars(t)()

	vars := requiredEnvVars()
	vars["SC_LOCAL_ROOT"] = "relative/path"
	defer setEnvVars(t, vars)()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для относительного SC_LOCAL_ROOT")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	defer clearAllSCEnvVars(t)()

	vars := requiredEnvVars()
	vars["SC_PORT"] = "99999"
	defer setEnvVars(t, vars)()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для порта вне диапазона")
	}
}

func TestLoadInvalidLogLevel(t *testing.T) {
	defer clearAllSCEnvVars(t)()

	vars := requiredEnvVars()
	vars["SC_LOG_LEVEL"] = "verbose"
	defer setEnvVars(t, vars)()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для неизвестного уровня логирования")
	}
}

func TestLoadSweepIntervalTooSmall(t *testing.T) {
	defer clearAllSCEnvVars(t)()

	vars := requiredEnvVars()
	vars["SC_SWEEP_INTERVAL"] = "10s"
	defer setEnvVars(t, vars)()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для интервала очистки меньше минуты")
	}
}

func TestDatabaseDSN(t *testing.T) {
	defer clearAllSCEnvVars(t)()
	defer setEnvVars(t, requiredEnvVars())()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	want := "host=localhost port=5432 dbname=scanstore user=scanstore password=secret sslmode=disable"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("неверный DSN:\nполучен:  %s\nожидался: %s", got, want)
	}
}

func TestLoadOverrides(t *testing.T) {
	defer clearAllSCEnvVars(t)()

	vars := requiredEnvVars()
	vars["SC_PORT"] = "9090"
	vars["SC_LOG_FORMAT"] = "text"
	vars["SC_SWEEP_INTERVAL"] = "30m"
	defer setEnvVars(t, vars)()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("ожидался порт 9090, получен %d", cfg.Port)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("ожидался формат text, получен %q", cfg.LogFormat)
	}
	if cfg.SweepInterval != 30*time.Minute {
		t.Errorf("ожидался интервал 30m, получен %s", cfg.SweepInterval)
	}
}
