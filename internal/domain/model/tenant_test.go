package model

import (
	"testing"
	"time"
)

func nowUTC() time.Time { return time.Now().UTC() }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("некорректное время %q: %v", s, err)
	}
	return ts
}

func float64p(v float64) *float64 { return &v }
func intp(v int) *int             { return &v }
func boolp(v bool) *bool          { return &v }

// TestSignConfig_Defaults проверяет значения по умолчанию при пустом tenant.
func TestSignConfig_Defaults(t *testing.T) {
	tenant := &Tenant{Slug: "acme"}
	conf := tenant.SignConfig()

	if conf.XRel != 0.62 || conf.YRel != 0.13 {
		t.Errorf("якорь по умолчанию: ожидалось (0.62, 0.13), получено (%v, %v)", conf.XRel, conf.YRel)
	}
	if conf.W != 200 || conf.H != 80 {
		t.Errorf("размер подписи по умолчанию: ожидалось 200x80, получено %dx%d", conf.W, conf.H)
	}
	if conf.RubW != 120 || conf.RubH != 48 || conf.RubMargin != 20 {
		t.Errorf("рубрика по умолчанию: ожидалось 120x48/20, получено %dx%d/%d", conf.RubW, conf.RubH, conf.RubMargin)
	}
	if conf.RubricaOnLast {
		t.Error("rubrica_on_last по умолчанию должен быть false")
	}
	if !conf.AuditStamp {
		t.Error("audit_stamp по умолчанию должен быть true")
	}
}

// TestSignConfig_NilTenant проверяет дефолты для nil tenant.
func TestSignConfig_NilTenant(t *testing.T) {
	var tenant *Tenant
	conf := tenant.SignConfig()
	if conf != DefaultSignConfig() {
		t.Error("nil tenant должен давать конфигурацию по умолчанию")
	}
}

// TestSignConfig_Overrides проверяет подстановку заполненных колонок.
func TestSignConfig_Overrides(t *testing.T) {
	tenant := &Tenant{
		Slug:          "acme",
		SignXRel:      float64p(0.5),
		SignYRel:      float64p(0.2),
		SignWPt:       intp(180),
		SignHPt:       intp(60),
		RubWPt:        intp(100),
		RubHPt:        intp(40),
		RubMarginPt:   intp(10),
		RubricaOnLast: boolp(true),
		AuditStamp:    boolp(false),
	}
	conf := tenant.SignConfig()

	if conf.XRel != 0.5 || conf.YRel != 0.2 {
		t.Errorf("якорь: ожидалось (0.5, 0.2), получено (%v, %v)", conf.XRel, conf.YRel)
	}
	if conf.W != 180 || conf.H != 60 {
		t.Errorf("размер: ожидалось 180x60, получено %dx%d", conf.W, conf.H)
	}
	if !conf.RubricaOnLast {
		t.Error("rubrica_on_last должен быть переопределён в true")
	}
	if conf.AuditStamp {
		t.Error("audit_stamp должен быть переопределён в false")
	}
}

// TestSignConfig_IgnoresNonPositiveSizes проверяет, что нулевые размеры игнорируются.
func TestSignConfig_IgnoresNonPositiveSizes(t *testing.T) {
	tenant := &Tenant{SignWPt: intp(0), RubHPt: intp(-5)}
	conf := tenant.SignConfig()
	if conf.W != 200 || conf.RubH != 48 {
		t.Errorf("нулевые/отрицательные размеры должны заменяться дефолтами: %dx%d", conf.W, conf.RubH)
	}
}

// TestContract_Signed проверяет инвариант signed_at ↔ drawn.
func TestContract_Signed(t *testing.T) {
	c := &Contract{SignatureType: SignatureGenerated}
	if c.Signed() {
		t.Error("generated контракт не должен считаться подписанным")
	}

	now := nowUTC()
	c = &Contract{SignatureType: SignatureDrawn, SignedAt: &now}
	if !c.Signed() {
		t.Error("drawn контракт с signed_at должен считаться подписанным")
	}
}

// TestNewAuditRecord проверяет формат ISO-8601 с суффиксом Z.
func TestNewAuditRecord(t *testing.T) {
	at := mustTime(t, "2026-01-02T15:04:05Z")
	rec := NewAuditRecord(42, at, "10.0.0.1", "Mozilla/5.0")

	if rec.ReservationID != 42 {
		t.Errorf("reservation_id: ожидалось 42, получено %d", rec.ReservationID)
	}
	if rec.SignedAtUTC != "2026-01-02T15:04:05Z" {
		t.Errorf("signed_at_utc: неверный формат %q", rec.SignedAtUTC)
	}
	if rec.IP != "10.0.0.1" || rec.UserAgent != "Mozilla/5.0" {
		t.Error("ip/user_agent должны сохраняться как есть")
	}
}
