// Пакет token — выпуск и проверка токенов доступа к контракту.
// Токен — HS256 JWT над {rid, ten, iat}, подписанный ключом,
// выведенным из секрета приложения и slug-а tenant-а: токен,
// выпущенный для tenant-а A, никогда не проходит проверку у tenant-а B,
// даже при совпадении номеров резерваций.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrForbidden — единственная ошибка проверки токена.
// Отсутствие токена, неверная подпись и несовпадение полей дают
// одну и ту же ошибку: вызывающая сторона не должна различать,
// какая именно проверка не прошла.
var ErrForbidden = errors.New("доступ к контракту запрещён")

// saltPrefix — назначение ключа; входит в вывод per-tenant ключа подписи.
const saltPrefix = "contract-link:"

// Environment — явная возможность dev-bypass, передаваемая в Guard.
// Production-развёртывание конструирует Guard без возможности
// прозрачного выпуска; ветка bypass тогда недостижима.
type Environment struct {
	transparentMint bool
}

// ProductionEnvironment — строгая проверка токена всегда.
func ProductionEnvironment() Environment {
	return Environment{}
}

// DevelopmentEnvironment — разрешён прозрачный выпуск токена для
// GET-операций при его отсутствии. Единственный источник риска
// replay в дизайне; вне development не активируется.
func DevelopmentEnvironment() Environment {
	return Environment{transparentMint: true}
}

// AllowsTransparentMint сообщает, разрешён ли прозрачный выпуск.
func (e Environment) AllowsTransparentMint() bool {
	return e.transparentMint
}

// Guard — выпуск и проверка токенов доступа к контракту.
type Guard struct {
	secret string
}

// New создаёт Guard с секретом приложения.
func New(secret string) *Guard {
	return &Guard{secret: secret}
}

// contractClaims — полезная нагрузка токена доступа.
type contractClaims struct {
	// ReservationID — резервация, к которой выдан доступ
	ReservationID int64 `json:"rid"`
	// TenantID — tenant, в границах которого токен действителен
	TenantID int64 `json:"ten"`
	jwt.RegisteredClaims
}

// tenantKey выводит ключ подписи для tenant-а из секрета и slug-а.
func (g *Guard) tenantKey(tenantSlug string) []byte {
	return []byte(g.secret + saltPrefix + tenantSlug)
}

// Issue выпускает токен доступа к контракту резервации.
// Токен не хранится: он без состояния и выпускается по требованию.
func (g *Guard) Issue(reservationID, tenantID int64, tenantSlug string) (string, error) {
	claims := contractClaims{
		ReservationID: reservationID,
		TenantID:      tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.tenantKey(tenantSlug))
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// Verify проверяет токен против контекста текущего запроса.
// Закрыта по умолчанию: любой сбой (пустой токен, подпись, поля) —
// единообразная ErrForbidden.
func (g *Guard) Verify(tokenStr string, reservationID, tenantID int64, tenantSlug string) error {
	if tokenStr == "" {
		return ErrForbidden
	}

	claims := &contractClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return g.tenantKey(tenantSlug), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !tok.Valid {
		return ErrForbidden
	}

	if claims.ReservationID != reservationID || claims.TenantID != tenantID {
		return ErrForbidden
	}
	return nil
}

// VerifyOrMint — проверка для GET-операций (просмотр, страница подписания).
// При пустом токене в окружении с разрешённым прозрачным выпуском
// токен выпускается и возвращается для повторного использования
// (мост между загрузкой страницы и последующим POST).
// Возвращает действующий токен; для мутирующих операций используйте
// строгий Verify.
func (g *Guard) VerifyOrMint(env Environment, tokenStr string, reservationID, tenantID int64, tenantSlug string) (string, error) {
	if tokenStr == "" && env.AllowsTransparentMint() {
		return g.Issue(reservationID, tenantID, tenantSlug)
	}
	if err := g.Verify(tokenStr, reservationID, tenantID, tenantSlug); err != nil {
		return "", err
	}
	return tokenStr, nil
}
