// templates.go — административные обработчики: валидация, предпросмотр
// и сохранение контрактного шаблона tenant-а, удаление контракта.
//
// Маршруты под /api/v1 защищаются admin JWT middleware (RS256, JWKS);
// сами обработчики об аутентификации не знают.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/caio-c-godoy/4ufleet/contract-module/internal/api/errors"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/api/middleware"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/template"
)

// maxTemplateBody — предел размера тела запросов с шаблоном.
const maxTemplateBody = 1 << 20

// TemplateStore — сохранение контрактного шаблона tenant-а.
// Реализуется repository.CachedTenantRepository (запись инвалидирует кэш).
type TemplateStore interface {
	UpdateContractTemplate(ctx context.Context, slug, templateHTML string) error
}

// ContractDeleter — удаление контракта с артефактами.
// Реализуется service.LifecycleService.
type ContractDeleter interface {
	DeleteContract(ctx context.Context, tenantSlug string, reservationID int64) error
}

// TemplateHandler — обработчики административного API.
type TemplateHandler struct {
	renderer *template.Renderer
	tenants  TemplateStore
	deleter  ContractDeleter
	logger   *slog.Logger
}

// NewTemplateHandler создаёт обработчик административного API.
func NewTemplateHandler(renderer *template.Renderer, tenants TemplateStore, deleter ContractDeleter, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		renderer: renderer,
		tenants:  tenants,
		deleter:  deleter,
		logger:   logger.With(slog.String("component", "template_handler")),
	}
}

// templateRequest — тело запросов валидации/предпросмотра/сохранения.
type templateRequest struct {
	Template string `json:"template"`
}

// validateResponse — результат валидации шаблона.
// Неизвестные переменные — рекомендация для редактора, не ошибка.
type validateResponse struct {
	UnknownVariables []string `json:"unknown_variables"`
}

// ValidateTemplate — POST /api/v1/tenants/{tenant_slug}/contract-template/validate.
// Синтаксическая ошибка шаблона — 400; неизвестные имена переменных
// возвращаются списком и ничего не блокируют.
func (h *TemplateHandler) ValidateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r.Body, maxTemplateBody, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	unknown, err := h.renderer.Validate(req.Template)
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Синтаксическая ошибка шаблона: %v", err))
		return
	}
	if unknown == nil {
		unknown = []string{}
	}

	writeJSON(w, http.StatusOK, validateResponse{UnknownVariables: unknown})
}

// PreviewTemplate — POST /api/v1/tenants/{tenant_slug}/contract-template/preview.
// Рендерит кандидат-шаблон на образцовом контексте и возвращает HTML
// с base href на статику tenant-а (логотип и прочие относительные ссылки).
func (h *TemplateHandler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tenant_slug")

	var req templateRequest
	if err := decodeJSON(r.Body, maxTemplateBody, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	html, err := h.renderer.Preview(req.Template, fmt.Sprintf("/static/%s/", url.PathEscape(slug)))
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка рендеринга шаблона: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// UpdateTemplate — PUT /api/v1/tenants/{tenant_slug}/contract-template.
// Сохраняет шаблон после синтаксической проверки; список неизвестных
// переменных возвращается как рекомендация вместе с подтверждением.
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tenant_slug")

	var req templateRequest
	if err := decodeJSON(r.Body, maxTemplateBody, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	unknown, err := h.renderer.Validate(req.Template)
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Синтаксическая ошибка шаблона: %v", err))
		return
	}
	if unknown == nil {
		unknown = []string{}
	}

	if err := h.tenants.UpdateContractTemplate(r.Context(), slug, req.Template); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Tenant не найден")
			return
		}
		h.logger.Error("Ошибка сохранения шаблона",
			slog.String("tenant", slug),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка сохранения шаблона")
		return
	}

	h.logger.Info("Контрактный шаблон обновлён",
		slog.String("tenant", slug),
		slog.String("admin", middleware.AdminSubjectFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, validateResponse{UnknownVariables: unknown})
}

// DeleteContract — DELETE /api/v1/contracts/{reservation_id}?tenant_slug=.
// Вызывается подсистемой резерваций при каскадном удалении; операция
// идемпотентна (отсутствие записи или артефактов — не ошибка).
func (h *TemplateHandler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	slug := r.URL.Query().Get("tenant_slug")
	if slug == "" {
		apierrors.ValidationError(w, "Отсутствует обязательный параметр tenant_slug")
		return
	}

	if err := h.deleter.DeleteContract(r.Context(), slug, reservationID); err != nil {
		h.logger.Error("Ошибка удаления контракта",
			slog.Int64("reservation_id", reservationID),
			slog.String("tenant", slug),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка удаления контракта")
		return
	}

	h.logger.Info("Контракт удалён через API",
		slog.Int64("reservation_id", reservationID),
		slog.String("tenant", slug),
		slog.String("admin", middleware.AdminSubjectFromContext(r.Context())),
	)
	w.WriteHeader(http.StatusNoContent)
}
