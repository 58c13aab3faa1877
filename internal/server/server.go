// Пакет server — HTTP-сервер Contract Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/api/handlers"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/api/middleware"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/config"
)

// Handlers — обработчики, монтируемые сервером.
type Handlers struct {
	Health   *handlers.HealthHandler
	Contract *handlers.ContractHandler
	Template *handlers.TemplateHandler
}

// Server — HTTP-сервер Contract Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
//
// Маршруты:
//   - /health/*, /metrics — служебные, без аутентификации;
//   - /static/* — статика tenant-ов (логотипы для предпросмотра);
//   - /{tenant_slug}/contract/{reservation_id}/* — контрактные маршруты
//     за TenantResolver (авторизация токеном внутри обработчиков);
//   - /api/v1/* — административное API за adminAuth (nil — API отключён).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	h Handlers,
	tenantLoader middleware.TenantLoader,
	adminAuth *middleware.AdminAuth,
) *Server {
	router := chi.NewRouter()
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)

	router.Handle("/static/*", http.StripPrefix("/static/",
		http.FileServer(http.Dir(cfg.StaticDir))))

	router.Route("/{tenant_slug}/contract/{reservation_id}", func(r chi.Router) {
		r.Use(middleware.TenantResolver(tenantLoader, logger))
		r.Get("/view", h.Contract.ViewContract)
		r.Get("/sign", h.Contract.SignPage)
		r.Post("/apply-signature", h.Contract.ApplySignature)
		r.Get("/download", h.Contract.DownloadContract)
	})

	if adminAuth != nil {
		router.Route("/api/v1", func(r chi.Router) {
			r.Use(adminAuth.Middleware())
			r.Post("/tenants/{tenant_slug}/contract-template/validate", h.Template.ValidateTemplate)
			r.Post("/tenants/{tenant_slug}/contract-template/preview", h.Template.PreviewTemplate)
			r.Put("/tenants/{tenant_slug}/contract-template", h.Template.UpdateTemplate)
			r.Delete("/contracts/{reservation_id}", h.Template.DeleteContract)
		})
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
