// Пакет model — доменные модели Contract Module.
// contract.go — контракт аренды и запись аудита подписания.
package model

import "time"

// SignatureType — тип подписи контракта.
type SignatureType string

const (
	// SignatureGenerated — базовый PDF сгенерирован, подпись не нанесена.
	SignatureGenerated SignatureType = "generated"
	// SignatureDrawn — нанесена нарисованная подпись клиента.
	SignatureDrawn SignatureType = "drawn"
)

// Contract — контракт, один-к-одному с резервацией.
// Инвариант: SignedAt != nil тогда и только тогда, когда SignatureType == drawn.
type Contract struct {
	// ID — первичный ключ
	ID int64
	// ReservationID — уникальный ключ резервации
	ReservationID int64
	// FilePath — путь к актуальному артефакту (базовый или подписанный PDF)
	FilePath string
	// SignatureType — generated или drawn
	SignatureType SignatureType
	// SignatureHash — SHA-256 содержимого управляющего артефакта
	SignatureHash string
	// SignedAt — время подписания (UTC), nil пока не подписан
	SignedAt *time.Time
	// CreatedAt, UpdatedAt — служебные метки времени
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Signed сообщает, подписан ли контракт.
func (c *Contract) Signed() bool {
	return c.SignatureType == SignatureDrawn && c.SignedAt != nil
}

// AuditRecord — запись аудита подписания, одна на событие подписания.
// Write-once: после создания никогда не изменяется (повторное подписание
// создаёт новую запись по тому же детерминированному пути).
type AuditRecord struct {
	ReservationID int64  `json:"reservation_id"`
	SignedAtUTC   string `json:"signed_at_utc"`
	IP            string `json:"ip"`
	UserAgent     string `json:"user_agent"`
}

// NewAuditRecord формирует запись аудита с временем в формате ISO-8601 (UTC).
func NewAuditRecord(reservationID int64, signedAt time.Time, ip, userAgent string) AuditRecord {
	return AuditRecord{
		ReservationID: reservationID,
		SignedAtUTC:   signedAt.UTC().Format("2006-01-02T15:04:05") + "Z",
		IP:            ip,
		UserAgent:     userAgent,
	}
}
