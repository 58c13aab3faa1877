// adminauth.go — JWT middleware административного API (редактор шаблонов,
// удаление контрактов). Подпись валидируется через JWKS IdP (RS256);
// контрактные маршруты клиентов этим middleware не защищаются —
// у них собственные токены доступа.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/caio-c-godoy/4ufleet/contract-module/internal/api/errors"
)

// ContextKeyAdminSubject — sub административного JWT в контексте.
const ContextKeyAdminSubject contextKey = "admin_subject"

// adminClaims — claims административного JWT.
type adminClaims struct {
	jwt.RegisteredClaims
	// PreferredUsername — имя пользователя.
	PreferredUsername string `json:"preferred_username"`
	// Email — электронная почта.
	Email string `json:"email"`
}

// AdminAuth — middleware аутентификации административных запросов.
type AdminAuth struct {
	jwks      keyfunc.Keyfunc
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// NewAdminAuth создаёт middleware с JWKS по jwksURL.
// Storage обновляет ключи в фоне; старт не блокируется,
// если IdP ещё недоступен.
func NewAdminAuth(jwksURL string, jwtLeeway time.Duration, logger *slog.Logger) (*AdminAuth, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &AdminAuth{
		jwks:      k,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "admin_auth")),
	}, nil
}

// NewAdminAuthWithKeyfunc создаёт middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewAdminAuthWithKeyfunc(kf keyfunc.Keyfunc, jwtLeeway time.Duration, logger *slog.Logger) *AdminAuth {
	return &AdminAuth{
		jwks:      kf,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "admin_auth")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Извлекает Bearer token, валидирует подпись (RS256) и срок действия,
// помещает sub в контекст запроса.
func (a *AdminAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			claims := &adminClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, a.jwks.KeyfuncCtx(r.Context()),
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(a.jwtLeeway),
			)
			if err != nil || !token.Valid {
				a.logger.Debug("JWT валидация не пройдена",
					slog.Any("error", err),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdminSubject, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminSubjectFromContext извлекает sub административного JWT из контекста.
func AdminSubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeyAdminSubject).(string)
	return subject
}
