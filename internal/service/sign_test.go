package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/pdf"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/storage/artifacts"
)

// --- Подменные зависимости ---

// fakeContracts — подменный репозиторий контрактов.
type fakeContracts struct {
	upserts    int
	markedPath string
	markedHash string
	markedAt   time.Time
	deleted    []int64
	markErr    error
}

func (f *fakeContracts) GetByReservationID(context.Context, int64) (*model.Contract, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeContracts) UpsertGenerated(_ context.Context, reservationID int64, filePath, hash string) (*model.Contract, error) {
	f.upserts++
	return &model.Contract{ReservationID: reservationID, FilePath: filePath, SignatureHash: hash,
		SignatureType: model.SignatureGenerated}, nil
}

func (f *fakeContracts) MarkSigned(_ context.Context, _ int64, filePath, signatureHash string, signedAt time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedPath = filePath
	f.markedHash = signatureHash
	f.markedAt = signedAt
	return nil
}

func (f *fakeContracts) DeleteByReservationID(_ context.Context, reservationID int64) error {
	f.deleted = append(f.deleted, reservationID)
	return nil
}

// fakeOverlay — подменный движок наложения.
type fakeOverlay struct {
	err   error
	calls int
	geom  model.SignConfig
}

func (f *fakeOverlay) ApplySignature(basePDF, _ []byte, geom model.SignConfig, _ pdf.StampInfo) ([]byte, error) {
	f.calls++
	f.geom = geom
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("signed:"), basePDF...), nil
}

// fakeMailer — подменный отправитель писем.
type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendSignedContract(_ context.Context, _ *model.Tenant, toEmail, _ string, _ int64, _ []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, toEmail)
	return nil
}

// --- Вспомогательные конструкторы ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *artifacts.Store {
	t.Helper()
	st, err := artifacts.New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	return st
}

func testTenant() *model.Tenant {
	return &model.Tenant{ID: 7, Name: "Acme Rent", Slug: "acme"}
}

func testReservation() *model.Reservation {
	return &model.Reservation{
		ID:            42,
		TenantID:      7,
		CustomerName:  "Maria Oliveira",
		CustomerEmail: "maria@example.com",
	}
}

func pngDataURL(raw []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}

// writeBase записывает базовый PDF резервации в хранилище.
func writeBase(t *testing.T, st *artifacts.Store, tenantSlug string, reservationID int64, content []byte) {
	t.Helper()
	if err := st.WriteFile(st.Paths(tenantSlug, reservationID).Base, content); err != nil {
		t.Fatalf("ошибка записи базового PDF: %v", err)
	}
}

// --- Тесты ---

// TestDecodeSignatureDataURL проверяет разбор data-URL подписи.
func TestDecodeSignatureDataURL(t *testing.T) {
	raw := []byte("псевдо-png")

	got, err := DecodeSignatureDataURL(pngDataURL(raw))
	if err != nil {
		t.Fatalf("ошибка декодирования корректного data-URL: %v", err)
	}
	if string(got) != string(raw) {
		t.Error("декодированные байты не совпадают")
	}

	bad := []string{
		"",
		"не data-URL",
		"data:text/plain;base64,aGk=",
		"data:image/png;base64,???",
		"data:image/png;base64,",
		"data:image/png,без-base64",
	}
	for _, in := range bad {
		if _, err := DecodeSignatureDataURL(in); !errors.Is(err, ErrBadImage) {
			t.Errorf("вход %q: ожидалась ErrBadImage, получено %v", in, err)
		}
	}
}

// TestApplySignature_Success проверяет полный цикл подписания:
// артефакты, запись аудита, обновление контракта.
func TestApplySignature_Success(t *testing.T) {
	st := testStore(t)
	contracts := &fakeContracts{}
	overlay := &fakeOverlay{}
	svc := NewSignService(st, overlay, contracts, nil, testLogger())

	writeBase(t, st, "acme", 42, []byte("%PDF-base"))
	raw := []byte("растр подписи")

	signedPath, err := svc.ApplySignature(context.Background(), testTenant(), testReservation(),
		pngDataURL(raw), RequestMeta{IP: "203.0.113.7", UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("ошибка подписания: %v", err)
	}

	paths := st.Paths("acme", 42)
	if signedPath != paths.Signed {
		t.Errorf("ожидался путь %s, получен %s", paths.Signed, signedPath)
	}

	// Подписанный PDF — результат наложения на базовый
	signed, err := os.ReadFile(paths.Signed)
	if err != nil {
		t.Fatalf("подписанный PDF не записан: %v", err)
	}
	if string(signed) != "signed:%PDF-base" {
		t.Errorf("неожиданное содержимое подписанного PDF: %q", signed)
	}

	// Сырой растр сохранён для аудита
	savedRaw, err := os.ReadFile(paths.SignaturePNG)
	if err != nil {
		t.Fatalf("растр подписи не сохранён: %v", err)
	}
	if string(savedRaw) != string(raw) {
		t.Error("сохранённый растр не совпадает с отправленным")
	}

	// Запись аудита
	auditData, err := os.ReadFile(paths.Audit)
	if err != nil {
		t.Fatalf("запись аудита не создана: %v", err)
	}
	var audit model.AuditRecord
	if err := json.Unmarshal(auditData, &audit); err != nil {
		t.Fatalf("ошибка разбора записи аудита: %v", err)
	}
	if audit.ReservationID != 42 || audit.IP != "203.0.113.7" || audit.UserAgent != "test-agent" {
		t.Errorf("неожиданная запись аудита: %+v", audit)
	}

	// Контракт обновлён: путь и хэш сырого растра
	if contracts.markedPath != paths.Signed {
		t.Errorf("контракт должен указывать на подписанный PDF, получено %s", contracts.markedPath)
	}
	if contracts.markedHash != artifacts.HashBytes(raw) {
		t.Error("хэш контракта должен быть хэшем сырого растра")
	}
	if contracts.markedAt.IsZero() {
		t.Error("время подписания не установлено")
	}

	// Базовый PDF не тронут
	base, _ := os.ReadFile(paths.Base)
	if string(base) != "%PDF-base" {
		t.Error("базовый PDF не должен изменяться при подписании")
	}
}

// TestApplySignature_NoBaseDocument проверяет отказ без базового PDF.
func TestApplySignature_NoBaseDocument(t *testing.T) {
	st := testStore(t)
	svc := NewSignService(st, &fakeOverlay{}, &fakeContracts{}, nil, testLogger())

	_, err := svc.ApplySignature(context.Background(), testTenant(), testReservation(),
		pngDataURL([]byte("x")), RequestMeta{})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("ожидалась ErrDocumentNotFound, получено %v", err)
	}
}

// TestApplySignature_BadImage проверяет отказ на некорректном data-URL.
func TestApplySignature_BadImage(t *testing.T) {
	st := testStore(t)
	svc := NewSignService(st, &fakeOverlay{}, &fakeContracts{}, nil, testLogger())

	_, err := svc.ApplySignature(context.Background(), testTenant(), testReservation(),
		"не изображение", RequestMeta{})
	if !errors.Is(err, ErrBadImage) {
		t.Errorf("ожидалась ErrBadImage, получено %v", err)
	}
}

// TestApplySignature_OverlayFailure проверяет, что сбой наложения
// не оставляет подписанного артефакта.
func TestApplySignature_OverlayFailure(t *testing.T) {
	st := testStore(t)
	overlay := &fakeOverlay{err: errors.New("сбой наложения")}
	svc := NewSignService(st, overlay, &fakeContracts{}, nil, testLogger())

	writeBase(t, st, "acme", 42, []byte("%PDF-base"))

	if _, err := svc.ApplySignature(context.Background(), testTenant(), testReservation(),
		pngDataURL([]byte("x")), RequestMeta{}); err == nil {
		t.Fatal("ожидалась ошибка наложения")
	}

	if st.Exists(st.Paths("acme", 42).Signed) {
		t.Error("подписанный артефакт не должен существовать после сбоя")
	}
}

// TestApplySignature_GeometryFromTenant проверяет, что движок получает
// геометрию tenant-а, а не значения по умолчанию.
func TestApplySignature_GeometryFromTenant(t *testing.T) {
	st := testStore(t)
	overlay := &fakeOverlay{}
	svc := NewSignService(st, overlay, &fakeContracts{}, nil, testLogger())

	writeBase(t, st, "acme", 42, []byte("%PDF-base"))

	tenant := testTenant()
	w := 300
	tenant.SignWPt = &w

	if _, err := svc.ApplySignature(context.Background(), tenant, testReservation(),
		pngDataURL([]byte("x")), RequestMeta{}); err != nil {
		t.Fatalf("ошибка подписания: %v", err)
	}
	if overlay.geom.W != 300 {
		t.Errorf("ожидалась ширина 300 из настроек tenant-а, получено %d", overlay.geom.W)
	}
}

// TestApplySignature_Resign проверяет повторное подписание:
// подписанный артефакт перезаписывается по тому же пути.
func TestApplySignature_Resign(t *testing.T) {
	st := testStore(t)
	contracts := &fakeContracts{}
	svc := NewSignService(st, &fakeOverlay{}, contracts, nil, testLogger())

	writeBase(t, st, "acme", 42, []byte("%PDF-base"))

	for i := 0; i < 2; i++ {
		if _, err := svc.ApplySignature(context.Background(), testTenant(), testReservation(),
			pngDataURL([]byte{byte('a' + i)}), RequestMeta{}); err != nil {
			t.Fatalf("ошибка подписания №%d: %v", i+1, err)
		}
	}

	if contracts.markedHash != artifacts.HashBytes([]byte("b")) {
		t.Error("после повторного подписания хэш должен соответствовать последнему растру")
	}
}

// TestApplySignature_LegacyBase проверяет подписание документа,
// существующего только в legacy-каталоге: базовый PDF читается оттуда,
// запись контракта создаётся при подписании.
func TestApplySignature_LegacyBase(t *testing.T) {
	legacyDir := t.TempDir()
	st, err := artifacts.New(t.TempDir(), legacyDir)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(legacyDir, "contrato_42.pdf"), []byte("%PDF-legacy"), 0o640); err != nil {
		t.Fatalf("ошибка записи legacy PDF: %v", err)
	}

	contracts := &fakeContracts{}
	svc := NewSignService(st, &fakeOverlay{}, contracts, nil, testLogger())

	signedPath, err := svc.ApplySignature(context.Background(), testTenant(), testReservation(),
		pngDataURL([]byte("x")), RequestMeta{IP: "203.0.113.7"})
	if err != nil {
		t.Fatalf("подписание legacy-документа должно проходить: %v", err)
	}

	paths := st.Paths("acme", 42)
	if signedPath != paths.Signed {
		t.Errorf("подписанный PDF должен писаться по каноническому пути, получено %s", signedPath)
	}

	signed, err := os.ReadFile(paths.Signed)
	if err != nil {
		t.Fatalf("подписанный PDF не записан: %v", err)
	}
	if string(signed) != "signed:%PDF-legacy" {
		t.Errorf("подпись должна накладываться на legacy-базу, получено %q", signed)
	}
	if contracts.markedPath != paths.Signed {
		t.Error("запись контракта должна быть создана при подписании legacy-документа")
	}
}

// TestApplySignature_PublishesEvent проверяет публикацию события
// и доставку письма через мост уведомлений.
func TestApplySignature_PublishesEvent(t *testing.T) {
	st := testStore(t)
	fm := &fakeMailer{}
	notifier := NewNotifier(fm, 8, testLogger())
	notifier.Start(context.Background())

	svc := NewSignService(st, &fakeOverlay{}, &fakeContracts{}, notifier, testLogger())
	writeBase(t, st, "acme", 42, []byte("%PDF-base"))

	if _, err := svc.ApplySignature(context.Background(), testTenant(), testReservation(),
		pngDataURL([]byte("x")), RequestMeta{}); err != nil {
		t.Fatalf("ошибка подписания: %v", err)
	}

	notifier.Stop()

	if len(fm.sent) != 1 || fm.sent[0] != "maria@example.com" {
		t.Errorf("ожидалось письмо клиенту, отправлено: %v", fm.sent)
	}
}
