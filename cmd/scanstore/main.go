// Точка входа Scanstore — сервис приёма и хранения сканированных документов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт файловое хранилище, сервисный слой и API handlers, запускает
// фоновую retention-очистку, topologymetrics и HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/arturkryukov/scanstore/internal/api/handlers"
	"github.com/arturkryukov/scanstore/internal/api/middleware"
	"github.com/arturkryukov/scanstore/internal/config"
	"github.com/arturkryukov/scanstore/internal/database"
	"github.com/arturkryukov/scanstore/internal/repository"
	"github.com/arturkryukov/scanstore/internal/server"
	"github.com/arturkryukov/scanstore/internal/service"
	"github.com/arturkryukov/scanstore/internal/storage/filestore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Scanstore запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("local_root", cfg.LocalRoot),
	)

	if os.Getenv("SC_DEPHEALTH_GROUP") == "" {
		logger.Warn("SC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Файловое хранилище
	store, err := filestore.New(cfg.LocalRoot)
	if err != nil {
		logger.Error("Ошибка инициализации файлового хранилища",
			slog.String("local_root", cfg.LocalRoot),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// 6. Repositories
	settingsRepo := repository.NewSettingsRepository(pool)
	logRepo := repository.NewFileLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Services
	guard := service.NewMaintenanceGuard()

	indexingSvc := service.NewIndexingService(settingsRepo, txRunner, store, guard, logger)
	retentionSvc := service.NewRetentionService(settingsRepo, logRepo, store, guard, cfg.SweepInterval, logger)

	filesSvc, err := service.NewFileService(settingsRepo, logRepo, store, logger)
	if err != nil {
		logger.Error("Ошибка создания файлового сервиса", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Readiness checkers (PostgreSQL + хранилище)
	pgChecker := database.NewReadinessChecker(pool)
	storageChecker := handlers.NewStorageChecker(cfg.LocalRoot)
	healthHandler := handlers.NewHealthHandler(pgChecker, storageChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		filesSvc,
		indexingSvc,
		retentionSvc,
		logRepo,
		settingsRepo,
		logger,
	)

	// 10. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:         cfg.JWTJWKSURL,
		Issuer:          cfg.JWTIssuer,
		ClientTimeout:   10 * time.Second,
		RefreshInterval: 5 * time.Minute,
		JWTLeeway:       30 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 11. Фоновая retention-очистка
	retentionSvc.Start(ctx)
	defer retentionSvc.Stop()
	logger.Info("Retention-очистка запущена",
		slog.String("interval", cfg.SweepInterval.String()),
	)

	// 11.1 topologymetrics — мониторинг зависимостей (PostgreSQL + JWKS)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"scanstore",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
