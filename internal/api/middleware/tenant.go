// tenant.go — middleware разрешения tenant-а из пути запроса.
// Все контрактные маршруты смонтированы под /{tenant_slug};
// middleware загружает настройки tenant-а (через LRU-кэш репозитория)
// и помещает их в контекст запроса.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/caio-c-godoy/4ufleet/contract-module/internal/api/errors"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyTenant — tenant текущего запроса в контексте.
const ContextKeyTenant contextKey = "tenant"

// TenantLoader — загрузка tenant-а по slug-у.
// Реализуется repository.CachedTenantRepository.
type TenantLoader interface {
	GetBySlug(ctx context.Context, slug string) (*model.Tenant, error)
}

// TenantResolver возвращает middleware, разрешающий tenant-а
// из сегмента пути {tenant_slug}. Неизвестный slug — 404.
func TenantResolver(loader TenantLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "tenant_resolver"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := chi.URLParam(r, "tenant_slug")
			if slug == "" {
				apierrors.NotFound(w, "Tenant не указан")
				return
			}

			tenant, err := loader.GetBySlug(r.Context(), slug)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					apierrors.NotFound(w, "Tenant не найден")
					return
				}
				log.Error("Ошибка загрузки tenant-а",
					slog.String("slug", slug),
					slog.Any("error", err),
				)
				apierrors.InternalError(w, "Ошибка загрузки tenant-а")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyTenant, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext извлекает tenant-а из контекста запроса.
// Возвращает nil, если middleware не отработал.
func TenantFromContext(ctx context.Context) *model.Tenant {
	tenant, _ := ctx.Value(ContextKeyTenant).(*model.Tenant)
	return tenant
}
