// contracts.go — контрактные обработчики: просмотр, страница подписания,
// приём подписи, скачивание подписанного PDF.
//
// Все маршруты смонтированы под /{tenant_slug}/contract/{reservation_id}
// за TenantResolver. Токен доступа проверяется до обращения к данным:
// запрос без действующего токена не узнаёт, существует ли резервация.
package handlers

import (
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apierrors "github.com/caio-c-godoy/4ufleet/contract-module/internal/api/errors"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/api/middleware"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/service"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/storage/artifacts"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/token"
)

//go:embed signpage.html
var signPageFS embed.FS

// signPageTemplate — встроенная страница подписания (canvas-рисование).
var signPageTemplate = htmltemplate.Must(htmltemplate.ParseFS(signPageFS, "signpage.html"))

// maxSignatureBody — предел размера тела apply-signature (data-URL PNG).
const maxSignatureBody = 8 << 20

// BaseDocumentEnsurer — гарантия существования базового PDF.
// Реализуется service.BaseDocService.
type BaseDocumentEnsurer interface {
	EnsureBaseDocument(ctx context.Context, tenant *model.Tenant, res *model.Reservation) (string, error)
}

// SignatureApplier — наложение подписи. Реализуется service.SignService.
type SignatureApplier interface {
	ApplySignature(ctx context.Context, tenant *model.Tenant, res *model.Reservation, imageDataURL string, meta service.RequestMeta) (string, error)
}

// ReservationLoader — чтение резервации в границах tenant-а.
// Реализуется repository.ReservationRepository.
type ReservationLoader interface {
	GetByID(ctx context.Context, tenantID, reservationID int64) (*model.Reservation, error)
}

// ContractHandler — обработчики контрактных маршрутов.
type ContractHandler struct {
	basedoc      BaseDocumentEnsurer
	signer       SignatureApplier
	reservations ReservationLoader
	guard        *token.Guard
	env          token.Environment
	store        *artifacts.Store
	logger       *slog.Logger
}

// NewContractHandler создаёт обработчик контрактных маршрутов.
func NewContractHandler(
	basedoc BaseDocumentEnsurer,
	signer SignatureApplier,
	reservations ReservationLoader,
	guard *token.Guard,
	env token.Environment,
	store *artifacts.Store,
	logger *slog.Logger,
) *ContractHandler {
	return &ContractHandler{
		basedoc:      basedoc,
		signer:       signer,
		reservations: reservations,
		guard:        guard,
		env:          env,
		store:        store,
		logger:       logger.With(slog.String("component", "contract_handler")),
	}
}

// authorizeGET выполняет проверку токена GET-операции (с возможным
// прозрачным выпуском в development) и возвращает действующий токен.
// Выпущенный токен привязывается cookie для последующего POST.
func (h *ContractHandler) authorizeGET(w http.ResponseWriter, r *http.Request, tenant *model.Tenant, reservationID int64) (string, bool) {
	presented := tokenFromRequest(r)
	tok, err := h.guard.VerifyOrMint(h.env, presented, reservationID, tenant.ID, tenant.Slug)
	if err != nil {
		apierrors.Forbidden(w)
		return "", false
	}
	if tok != presented {
		setTokenCookie(w, tenant.Slug, reservationID, tok)
	}
	return tok, true
}

// loadReservation читает резервацию текущего tenant-а. Отсутствие — 404.
func (h *ContractHandler) loadReservation(w http.ResponseWriter, r *http.Request, tenant *model.Tenant, reservationID int64) (*model.Reservation, bool) {
	res, err := h.reservations.GetByID(r.Context(), tenant.ID, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Резервация не найдена")
			return nil, false
		}
		h.logger.Error("Ошибка чтения резервации",
			slog.Int64("reservation_id", reservationID),
			slog.Any("error", err),
		)
		apierrors.InternalError(w, "Ошибка чтения резервации")
		return nil, false
	}
	return res, true
}

// noCache запрещает кэширование ответа: актуальный артефакт может
// смениться с базового на подписанный между двумя запросами.
func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
}

// ViewContract — GET /{tenant_slug}/contract/{reservation_id}/view.
// Отдаёт актуальный PDF: подписанный (канонический или legacy),
// иначе базовый, генерируя его при отсутствии.
func (h *ContractHandler) ViewContract(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if _, ok := h.authorizeGET(w, r, tenant, reservationID); !ok {
		return
	}
	res, ok := h.loadReservation(w, r, tenant, reservationID)
	if !ok {
		return
	}

	path, signed := h.store.ResolveSigned(tenant.Slug, reservationID)
	if !signed {
		path, err = h.basedoc.EnsureBaseDocument(r.Context(), tenant, res)
		if err != nil {
			h.logger.Error("Ошибка генерации базового PDF",
				slog.Int64("reservation_id", reservationID),
				slog.Any("error", err),
			)
			apierrors.RenderFailure(w, "Не удалось сформировать контракт")
			return
		}
	}

	noCache(w)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", fmt.Sprintf("contrato_reserva_%d.pdf", reservationID)))
	http.ServeFile(w, r, path)
}

// signPageData — данные встроенной страницы подписания.
type signPageData struct {
	TenantName    string
	ReservationID int64
	Token         string
	ViewURL       string
	PostURL       string
}

// SignPage — GET /{tenant_slug}/contract/{reservation_id}/sign.
// Гарантирует базовый PDF и отдаёт страницу подписания; токен
// привязывается cookie и передаётся в форму для POST.
func (h *ContractHandler) SignPage(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	tok, ok := h.authorizeGET(w, r, tenant, reservationID)
	if !ok {
		return
	}
	res, ok := h.loadReservation(w, r, tenant, reservationID)
	if !ok {
		return
	}

	if _, err := h.basedoc.EnsureBaseDocument(r.Context(), tenant, res); err != nil {
		h.logger.Error("Ошибка генерации базового PDF",
			slog.Int64("reservation_id", reservationID),
			slog.Any("error", err),
		)
		apierrors.RenderFailure(w, "Не удалось сформировать контракт")
		return
	}

	setTokenCookie(w, tenant.Slug, reservationID, tok)

	data := signPageData{
		TenantName:    tenant.Name,
		ReservationID: reservationID,
		Token:         tok,
		// ts — cache-busting: встроенный просмотр не должен показать
		// устаревший артефакт после повторного подписания.
		ViewURL: fmt.Sprintf("/%s/contract/%d/view?t=%s&ts=%d",
			url.PathEscape(tenant.Slug), reservationID, url.QueryEscape(tok), time.Now().Unix()),
		PostURL: fmt.Sprintf("/%s/contract/%d/apply-signature",
			url.PathEscape(tenant.Slug), reservationID),
	}

	noCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := signPageTemplate.Execute(w, data); err != nil {
		h.logger.Error("Ошибка рендеринга страницы подписания", slog.Any("error", err))
	}
}

// applySignatureRequest — тело POST apply-signature.
type applySignatureRequest struct {
	// Image — data-URL PNG с canvas
	Image string `json:"image"`
	// Token — токен доступа (дублирует cookie для не-браузерных клиентов)
	Token string `json:"t"`
}

// applySignatureResponse — ответ apply-signature.
type applySignatureResponse struct {
	OK          bool   `json:"ok"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ApplySignature — POST /{tenant_slug}/contract/{reservation_id}/apply-signature.
// Мутирующая операция: токен проверяется строго независимо от окружения.
func (h *ContractHandler) ApplySignature(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, applySignatureResponse{Error: err.Error()})
		return
	}

	var req applySignatureRequest
	if err := decodeJSON(r.Body, maxSignatureBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, applySignatureResponse{Error: "Некорректное тело запроса"})
		return
	}

	tok := req.Token
	if tok == "" {
		tok = tokenFromRequest(r)
	}
	if err := h.guard.Verify(tok, reservationID, tenant.ID, tenant.Slug); err != nil {
		writeJSON(w, http.StatusForbidden, applySignatureResponse{Error: "Доступ запрещён"})
		return
	}

	res, err := h.reservations.GetByID(r.Context(), tenant.ID, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, applySignatureResponse{Error: "Резервация не найдена"})
			return
		}
		h.logger.Error("Ошибка чтения резервации", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, applySignatureResponse{Error: "Ошибка чтения резервации"})
		return
	}

	_, err = h.signer.ApplySignature(r.Context(), tenant, res, req.Image, service.RequestMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case errors.Is(err, service.ErrBadImage):
		writeJSON(w, http.StatusBadRequest, applySignatureResponse{Error: "Некорректное изображение подписи"})
		return
	case errors.Is(err, service.ErrDocumentNotFound):
		writeJSON(w, http.StatusNotFound, applySignatureResponse{Error: "Документ контракта не найден"})
		return
	case err != nil:
		h.logger.Error("Ошибка наложения подписи",
			slog.Int64("reservation_id", reservationID),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, applySignatureResponse{Error: "Ошибка наложения подписи"})
		return
	}

	writeJSON(w, http.StatusOK, applySignatureResponse{
		OK: true,
		RedirectURL: fmt.Sprintf("/%s/contract/%d/view?t=%s",
			url.PathEscape(tenant.Slug), reservationID, url.QueryEscape(tok)),
	})
}

// DownloadContract — GET /{tenant_slug}/contract/{reservation_id}/download.
// Отдаёт подписанный PDF как attachment; неподписанный контракт — 404.
func (h *ContractHandler) DownloadContract(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if _, ok := h.authorizeGET(w, r, tenant, reservationID); !ok {
		return
	}

	path, ok := h.store.ResolveSigned(tenant.Slug, reservationID)
	if !ok {
		apierrors.NotFound(w, "Контракт ещё не подписан")
		return
	}

	noCache(w)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("contrato_reserva_%d_SIGNED.pdf", reservationID)))
	http.ServeFile(w, r, path)
}
