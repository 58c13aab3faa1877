// Точка входа Contract Module — контрактный модуль платформы 4uFleet.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт репозитории и сервисный слой (генерация PDF, подписание,
// уведомления), запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/api/handlers"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/api/middleware"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/config"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/database"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/mailer"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/pdf"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/server"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/service"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/storage/artifacts"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/template"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/token"
)

// tenantCacheSize — ёмкость LRU-кэша настроек tenant-ов.
const tenantCacheSize = 256

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Contract Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("env", cfg.Env),
	)

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

	// 5. Хранилище артефактов
	store, err := artifacts.New(cfg.DataDir, cfg.LegacyDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища артефактов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Repositories
	tenantRepo, err := repository.NewCachedTenantRepository(
		repository.NewTenantRepository(pool), tenantCacheSize)
	if err != nil {
		logger.Error("Ошибка создания кэша tenant-ов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	reservationRepo := repository.NewReservationRepository(pool)
	contractRepo := repository.NewContractRepository(pool)

	// 7. Уведомления о подписании (signed-copy email, fire-and-forget)
	notifier := service.NewNotifier(mailer.NewSMTPMailer(), cfg.NotifyQueueSize, logger)
	notifier.Start(ctx)
	defer notifier.Stop()

	// 8. Services
	baseDocSvc := service.NewBaseDocService(
		template.New(),
		pdf.NewWkhtmltopdfConverter(cfg.WkhtmltopdfPath),
		store, contractRepo, cfg.StaticDir,
		logger,
	)
	signSvc := service.NewSignService(store, pdf.NewOverlay(), contractRepo, notifier, logger)
	lifecycleSvc := service.NewLifecycleService(store, contractRepo, logger)

	// 9. Токены доступа к контракту
	guard := token.New(cfg.SecretKey)
	env := token.ProductionEnvironment()
	if cfg.IsDevelopment() {
		env = token.DevelopmentEnvironment()
		logger.Warn("Development-окружение: разрешён прозрачный выпуск токена для GET-операций")
	}

	// 10. Admin JWT middleware (опционально)
	var adminAuth *middleware.AdminAuth
	if cfg.JWKSUrl != "" {
		adminAuth, err = middleware.NewAdminAuth(cfg.JWKSUrl, cfg.JWTLeeway, logger)
		if err != nil {
			logger.Error("Ошибка создания admin JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Admin API включён", slog.String("jwks_url", cfg.JWKSUrl))
	} else {
		logger.Info("CM_JWKS_URL не задан, admin API отключён")
	}

	// 11. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.DephealthName,
		pgDB,
		cfg.DatabaseDSN(),
		cfg.JWKSUrl,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Handlers
	h := server.Handlers{
		Health:   handlers.NewHealthHandler(database.NewReadinessChecker(pool)),
		Contract: handlers.NewContractHandler(baseDocSvc, signSvc, reservationRepo, guard, env, store, logger),
		Template: handlers.NewTemplateHandler(template.New(), tenantRepo, lifecycleSvc, logger),
	}

	// 13. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, h, tenantRepo, adminAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
