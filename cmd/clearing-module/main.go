// Точка входа Clearing Module — модуль клиринга лицензий системы Licstore.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует клиент реестра Osselot и кэши, создаёт сервисный слой и
// API handlers, запускает topologymetrics, HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/licstore/clearing-module/internal/api/handlers"
	"github.com/bigkaa/licstore/clearing-module/internal/api/middleware"
	"github.com/bigkaa/licstore/clearing-module/internal/config"
	"github.com/bigkaa/licstore/clearing-module/internal/database"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
	"github.com/bigkaa/licstore/clearing-module/internal/osselot"
	"github.com/bigkaa/licstore/clearing-module/internal/repository"
	"github.com/bigkaa/licstore/clearing-module/internal/server"
	"github.com/bigkaa/licstore/clearing-module/internal/service"
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
	logger.Info("Clearing Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("CM_DEPHEALTH_GROUP") == "" {
		logger.Warn("CM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
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
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент реестра Osselot и кэши
	var lookupHelper *osselot.LookupHelper
	var cacheCleaner handlers.CacheCleaner
	osselotHealthURL := ""
	if cfg.OsselotEnabled {
		osClient := osselot.NewClient(
			cfg.OsselotAPIURL,
			cfg.OsselotIndexURL,
			cfg.OsselotTimeout,
			cfg.OsselotConnectTimeout,
			logger,
		)

		fileCache, cacheErr := osselot.NewFileCache(cfg.OsselotCacheDir)
		if cacheErr != nil {
			logger.Error("Ошибка создания файлового кэша Osselot",
				slog.String("dir", cfg.OsselotCacheDir),
				slog.String("error", cacheErr.Error()),
			)
			os.Exit(1)
		}

		lookupHelper = osselot.NewLookupHelper(
			osClient, osClient, fileCache,
			cfg.OsselotVersionsCacheSize,
			cfg.OsselotVersionsCacheTTL,
			logger,
		)
		cacheCleaner = lookupHelper
		osselotHealthURL = cfg.OsselotAPIURL

		logger.Info("Клиент Osselot создан",
			slog.String("api_url", cfg.OsselotAPIURL),
			slog.String("cache_dir", cfg.OsselotCacheDir),
		)
	} else {
		logger.Info("Поиск в реестре Osselot выключен")
	}

	// 6. Repositories
	userRepo := repository.NewUserRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	uploadRepo := repository.NewUploadRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	// 7. Services
	userAdminSvc := service.NewUserAdminService(userRepo, logger)
	agentCatalogSvc := service.NewAgentCatalogService(agentRepo, logger)

	var lookup service.VersionLookup
	if lookupHelper != nil {
		lookup = lookupHelper
	}
	reuseSvc := service.NewReuseService(
		uploadRepo, folderRepo,
		lookup, cfg.OsselotEnabled,
		logger,
	)

	// 8. Readiness checkers (PostgreSQL + Keycloak)
	pgChecker := database.NewReadinessChecker(pool)
	kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.IdPCACertPath, 5*time.Second)
	if err != nil {
		logger.Error("Ошибка создания Keycloak readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, kcChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		userAdminSvc,
		reuseSvc,
		agentCatalogSvc,
		cacheCleaner,
		logger,
	)

	// 10. JWT middleware
	groups := perm.GroupMapping{
		AdminGroups:         cfg.PermAdminGroups,
		ClearingAdminGroups: cfg.PermClearingAdminGroups,
		WriteGroups:         cfg.PermWriteGroups,
		ReadGroups:          cfg.PermReadGroups,
	}
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.IdPCACertPath,
		cfg.JWTIssuer,
		groups,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak + Osselot)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"clearing-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		osselotHealthURL,
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
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
			defer dephealthSvc.Stop()
		}
	}

	// 12. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
