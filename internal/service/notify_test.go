package service

import (
	"context"
	"testing"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/mailer"
)

// signedEvent собирает событие подписания с подготовленным артефактом.
func signedEvent(t *testing.T, email string) SignedEvent {
	t.Helper()

	st := testStore(t)
	paths := st.Paths("acme", 42)
	if err := st.WriteFile(paths.Signed, []byte("%PDF-signed")); err != nil {
		t.Fatalf("ошибка записи подписанного PDF: %v", err)
	}

	res := testReservation()
	res.CustomerEmail = email
	return SignedEvent{Tenant: testTenant(), Reservation: res, SignedPath: paths.Signed}
}

// TestNotifier_Delivers проверяет доставку события.
func TestNotifier_Delivers(t *testing.T) {
	fm := &fakeMailer{}
	n := NewNotifier(fm, 4, testLogger())
	n.Start(context.Background())

	if !n.Publish(signedEvent(t, "cliente@example.com")) {
		t.Fatal("публикация в пустую очередь должна успевать")
	}
	n.Stop()

	if len(fm.sent) != 1 || fm.sent[0] != "cliente@example.com" {
		t.Errorf("ожидалась одна доставка клиенту, получено %v", fm.sent)
	}
}

// TestNotifier_SkipsWithoutEmail проверяет пропуск события
// без адреса клиента.
func TestNotifier_SkipsWithoutEmail(t *testing.T) {
	fm := &fakeMailer{}
	n := NewNotifier(fm, 4, testLogger())
	n.Start(context.Background())

	n.Publish(signedEvent(t, ""))
	n.Stop()

	if len(fm.sent) != 0 {
		t.Errorf("без email письма быть не должно, получено %v", fm.sent)
	}
}

// TestNotifier_MailNotConfigured проверяет, что ненастроенная почта
// tenant-а — пропуск, а не сбой.
func TestNotifier_MailNotConfigured(t *testing.T) {
	fm := &fakeMailer{err: mailer.ErrMailNotConfigured}
	n := NewNotifier(fm, 4, testLogger())
	n.Start(context.Background())

	n.Publish(signedEvent(t, "cliente@example.com"))
	n.Stop()
}

// TestNotifier_MissingArtifact проверяет, что отсутствие файла
// подписанного PDF не валит воркер.
func TestNotifier_MissingArtifact(t *testing.T) {
	fm := &fakeMailer{}
	n := NewNotifier(fm, 4, testLogger())
	n.Start(context.Background())

	res := testReservation()
	n.Publish(SignedEvent{
		Tenant:      &model.Tenant{Slug: "acme"},
		Reservation: res,
		SignedPath:  "/нет/такого/файла.pdf",
	})
	n.Stop()

	if len(fm.sent) != 0 {
		t.Error("письмо без артефакта отправляться не должно")
	}
}

// TestNotifier_QueueOverflow проверяет неблокирующую публикацию:
// переполненная очередь отбрасывает событие.
func TestNotifier_QueueOverflow(t *testing.T) {
	// Воркер не запущен — очередь никто не читает
	n := NewNotifier(&fakeMailer{}, 1, testLogger())

	ev := signedEvent(t, "cliente@example.com")
	if !n.Publish(ev) {
		t.Fatal("первое событие должно поместиться в очередь")
	}
	if n.Publish(ev) {
		t.Error("второе событие должно быть отброшено")
	}
}
