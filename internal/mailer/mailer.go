// Пакет mailer — отправка копии подписанного контракта клиенту.
// SMTP-настройки — per tenant; модуль не имеет глобального почтового
// сервера. Неотправленное письмо — не ошибка подписания: вызывающая
// сторона логирует и продолжает.
package mailer

import (
	"bytes"
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
)

// Mailer — отправка писем с вложением подписанного контракта.
type Mailer interface {
	// SendSignedContract отправляет подписанный PDF клиенту
	// от имени tenant-а.
	SendSignedContract(ctx context.Context, tenant *model.Tenant, toEmail, customerName string, reservationID int64, signedPDF []byte) error
}

// ErrMailNotConfigured — у tenant-а не заполнены SMTP-настройки.
var ErrMailNotConfigured = fmt.Errorf("почта tenant-а не настроена")

// SMTPMailer — реализация Mailer через SMTP tenant-а.
type SMTPMailer struct{}

// NewSMTPMailer создаёт SMTP-отправитель.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{}
}

// SendSignedContract собирает и отправляет письмо с вложением.
// Возвращает ErrMailNotConfigured, если у tenant-а нет SMTP-хоста
// или адреса отправителя.
func (m *SMTPMailer) SendSignedContract(ctx context.Context, tenant *model.Tenant, toEmail, customerName string, reservationID int64, signedPDF []byte) error {
	if tenant.MailHost == "" || tenant.MailFrom == "" {
		return ErrMailNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.From(tenant.MailFrom); err != nil {
		return fmt.Errorf("некорректный адрес отправителя: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("некорректный адрес получателя: %w", err)
	}

	msg.Subject(fmt.Sprintf("%s — contrato assinado (reserva %d)", tenant.Name, reservationID))
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Olá %s,\n\nsegue em anexo a cópia do seu contrato de locação assinado.\n\n%s\n",
		customerName, tenant.Name))

	attachName := fmt.Sprintf("contrato_reserva_%d_SIGNED.pdf", reservationID)
	if err := msg.AttachReader(attachName, bytes.NewReader(signedPDF)); err != nil {
		return fmt.Errorf("ошибка вложения контракта: %w", err)
	}

	opts := []mail.Option{
		mail.WithPort(tenant.MailPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if tenant.MailUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(tenant.MailUser),
			mail.WithPassword(tenant.MailPassword),
		)
	}

	client, err := mail.NewClient(tenant.MailHost, opts...)
	if err != nil {
		return fmt.Errorf("ошибка создания SMTP-клиента: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("ошибка отправки письма: %w", err)
	}
	return nil
}
