package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/template"
)

// fakeTemplateStore — сохранение шаблонов в памяти.
type fakeTemplateStore struct {
	saved   map[string]string
	missing bool
}

func (f *fakeTemplateStore) UpdateContractTemplate(_ context.Context, slug, templateHTML string) error {
	if f.missing {
		return repository.ErrNotFound
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[slug] = templateHTML
	return nil
}

// fakeDeleter — запись вызовов удаления.
type fakeDeleter struct {
	slugs []string
	ids   []int64
	err   error
}

func (f *fakeDeleter) DeleteContract(_ context.Context, tenantSlug string, reservationID int64) error {
	if f.err != nil {
		return f.err
	}
	f.slugs = append(f.slugs, tenantSlug)
	f.ids = append(f.ids, reservationID)
	return nil
}

// adminEnv — собранный административный обработчик с маршрутами.
type adminEnv struct {
	router  http.Handler
	tenants *fakeTemplateStore
	deleter *fakeDeleter
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()

	tenants := &fakeTemplateStore{}
	deleter := &fakeDeleter{}
	h := NewTemplateHandler(template.New(), tenants, deleter, quietLogger())

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tenants/{tenant_slug}/contract-template/validate", h.ValidateTemplate)
		r.Post("/tenants/{tenant_slug}/contract-template/preview", h.PreviewTemplate)
		r.Put("/tenants/{tenant_slug}/contract-template", h.UpdateTemplate)
		r.Delete("/contracts/{reservation_id}", h.DeleteContract)
	})

	return &adminEnv{router: r, tenants: tenants, deleter: deleter}
}

func (e *adminEnv) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func templateBody(t *testing.T, src string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]string{"template": src})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func decodeValidate(t *testing.T, body []byte) validateResponse {
	t.Helper()
	var resp validateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("некорректный JSON ответа: %v (%s)", err, body)
	}
	return resp
}

func TestValidateTemplate_Clean(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/tenants/acme/contract-template/validate",
		templateBody(t, "<p>{{.cliente_nome}} — {{money .valor_total}}</p>"))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeValidate(t, rec.Body.Bytes())
	if len(resp.UnknownVariables) != 0 {
		t.Errorf("для чистого шаблона ожидался пустой список, получено %v", resp.UnknownVariables)
	}
}

func TestValidateTemplate_ReportsUnknown(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/tenants/acme/contract-template/validate",
		templateBody(t, "{{.hacker_var}} {{.cliente_nome}} {{.outro}}"))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200 (рекомендация, не ошибка), получен %d", rec.Code)
	}

	resp := decodeValidate(t, rec.Body.Bytes())
	if !reflect.DeepEqual(resp.UnknownVariables, []string{"hacker_var", "outro"}) {
		t.Errorf("ожидались hacker_var и outro, получено %v", resp.UnknownVariables)
	}
}

func TestValidateTemplate_SyntaxError(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/tenants/acme/contract-template/validate",
		templateBody(t, "{{.незакрытый"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("синтаксическая ошибка: ожидался 400, получен %d", rec.Code)
	}
}

func TestPreviewTemplate(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/tenants/acme/contract-template/preview",
		templateBody(t, "<h1>{{.tenant_name}}</h1><p>{{.cliente_nome}}</p>"))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if !strings.Contains(body, `<base href="/static/acme/">`) {
		t.Errorf("предпросмотр должен содержать base href статики tenant-а: %s", body)
	}
	if !strings.Contains(body, "João da Silva") {
		t.Errorf("предпросмотр должен рендериться на образцовом контексте: %s", body)
	}
}

func TestUpdateTemplate_SavesAndReportsUnknown(t *testing.T) {
	e := newAdminEnv(t)

	src := "<p>{{.cliente_nome}} {{.rascunho}}</p>"
	rec := e.do(http.MethodPut, "/api/v1/tenants/acme/contract-template", templateBody(t, src))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	if got := e.tenants.saved["acme"]; got != src {
		t.Errorf("шаблон не сохранён: %q", got)
	}

	resp := decodeValidate(t, rec.Body.Bytes())
	if !reflect.DeepEqual(resp.UnknownVariables, []string{"rascunho"}) {
		t.Errorf("ожидалась рекомендация о rascunho, получено %v", resp.UnknownVariables)
	}
}

func TestUpdateTemplate_SyntaxErrorNotSaved(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodPut, "/api/v1/tenants/acme/contract-template",
		templateBody(t, "{{if .cliente_nome}}"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", rec.Code)
	}
	if len(e.tenants.saved) != 0 {
		t.Error("шаблон с синтаксической ошибкой не должен сохраняться")
	}
}

func TestUpdateTemplate_TenantNotFound(t *testing.T) {
	e := newAdminEnv(t)
	e.tenants.missing = true

	rec := e.do(http.MethodPut, "/api/v1/tenants/ghost/contract-template",
		templateBody(t, "<p>{{.cliente_nome}}</p>"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ожидался 404, получен %d", rec.Code)
	}
}

func TestDeleteContract(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodDelete, "/api/v1/contracts/42?tenant_slug=acme", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("ожидался 204, получен %d: %s", rec.Code, rec.Body.String())
	}
	if len(e.deleter.ids) != 1 || e.deleter.ids[0] != 42 || e.deleter.slugs[0] != "acme" {
		t.Errorf("удаление вызвано с неверными аргументами: %v %v", e.deleter.slugs, e.deleter.ids)
	}
}

func TestDeleteContract_MissingTenantSlug(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodDelete, "/api/v1/contracts/42", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400 без tenant_slug, получен %d", rec.Code)
	}
	if len(e.deleter.ids) != 0 {
		t.Error("удаление не должно вызываться без tenant_slug")
	}
}

func TestDeleteContract_BadReservationID(t *testing.T) {
	e := newAdminEnv(t)

	rec := e.do(http.MethodDelete, "/api/v1/contracts/abc?tenant_slug=acme", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидался 400, получен %d", rec.Code)
	}
}
