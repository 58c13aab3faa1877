// handler.go — общие вспомогательные функции обработчиков Contract Module.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// tokenCookieName — cookie, связывающая токен доступа между загрузкой
// страницы подписания и последующим POST apply-signature.
const tokenCookieName = "contract_token"

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON декодирует JSON-тело с ограничением размера.
func decodeJSON(body io.Reader, limit int64, dst any) error {
	return json.NewDecoder(io.LimitReader(body, limit)).Decode(dst)
}

// reservationIDFromRequest извлекает {reservation_id} из пути.
// Некорректное значение — ошибка валидации.
func reservationIDFromRequest(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "reservation_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный идентификатор резервации: %q", raw)
	}
	return id, nil
}

// tokenFromRequest извлекает токен доступа к контракту:
// query-параметр t, затем cookie (мост страница → POST).
func tokenFromRequest(r *http.Request) string {
	if t := r.URL.Query().Get("t"); t != "" {
		return t
	}
	if c, err := r.Cookie(tokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// setTokenCookie привязывает токен к контрактным маршрутам резервации.
// HttpOnly: токен не должен быть доступен скриптам страницы за пределами
// формы подписания (туда он передаётся через шаблон).
func setTokenCookie(w http.ResponseWriter, tenantSlug string, reservationID int64, tok string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    tok,
		Path:     fmt.Sprintf("/%s/contract/%d", tenantSlug, reservationID),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
