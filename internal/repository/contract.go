package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
)

// ContractRepository — доступ к таблице contracts.
// Инвариант таблицы: не более одной записи на резервацию
// (reservation_id уникален).
type ContractRepository interface {
	// GetByReservationID возвращает контракт резервации.
	GetByReservationID(ctx context.Context, reservationID int64) (*model.Contract, error)
	// UpsertGenerated создаёт запись контракта для базового PDF или
	// обновляет путь/хэш существующей, не трогая состояние подписи.
	UpsertGenerated(ctx context.Context, reservationID int64, filePath, hash string) (*model.Contract, error)
	// MarkSigned переводит контракт в состояние drawn: путь к
	// подписанному PDF, хэш сырого изображения, время подписания.
	// Отсутствующая запись создаётся: базовый документ мог быть
	// взят из legacy-каталога без регистрации в БД.
	MarkSigned(ctx context.Context, reservationID int64, filePath, signatureHash string, signedAt time.Time) error
	// DeleteByReservationID удаляет запись контракта.
	// Отсутствие записи — не ошибка (идемпотентное удаление).
	DeleteByReservationID(ctx context.Context, reservationID int64) error
}

// contractRepo — реализация ContractRepository.
type contractRepo struct {
	db DBTX
}

// NewContractRepository создаёт репозиторий контрактов.
func NewContractRepository(db DBTX) ContractRepository {
	return &contractRepo{db: db}
}

// scanContract сканирует строку результата в модель Contract.
func scanContract(row pgx.Row) (*model.Contract, error) {
	c := &model.Contract{}
	err := row.Scan(
		&c.ID, &c.ReservationID, &c.FilePath, &c.SignatureType,
		&c.SignatureHash, &c.SignedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

const contractColumns = `id, reservation_id, file_path, signature_type,
	signature_hash, signed_at, created_at, updated_at`

func (r *contractRepo) GetByReservationID(ctx context.Context, reservationID int64) (*model.Contract, error) {
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE reservation_id = $1`, contractColumns)
	c, err := scanContract(r.db.QueryRow(ctx, query, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения контракта: %w", err)
	}
	return c, nil
}

func (r *contractRepo) UpsertGenerated(ctx context.Context, reservationID int64, filePath, hash string) (*model.Contract, error) {
	// Повторная генерация не сбрасывает состояние подписи:
	// signature_type/signed_at существующей записи сохраняются.
	query := fmt.Sprintf(`
		INSERT INTO contracts (reservation_id, file_path, signature_type, signature_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reservation_id) DO UPDATE
			SET file_path = EXCLUDED.file_path,
			    signature_hash = EXCLUDED.signature_hash,
			    updated_at = now()
		RETURNING %s`, contractColumns)

	c, err := scanContract(r.db.QueryRow(ctx, query, reservationID, filePath, model.SignatureGenerated, hash))
	if err != nil {
		return nil, fmt.Errorf("ошибка upsert контракта: %w", err)
	}
	return c, nil
}

func (r *contractRepo) MarkSigned(ctx context.Context, reservationID int64, filePath, signatureHash string, signedAt time.Time) error {
	// Upsert, а не UPDATE: базовый документ из legacy-каталога
	// подписывается без предварительной записи в contracts.
	query := `
		INSERT INTO contracts (reservation_id, file_path, signature_type, signature_hash, signed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reservation_id) DO UPDATE
			SET file_path = EXCLUDED.file_path,
			    signature_type = EXCLUDED.signature_type,
			    signature_hash = EXCLUDED.signature_hash,
			    signed_at = EXCLUDED.signed_at,
			    updated_at = now()`

	if _, err := r.db.Exec(ctx, query,
		reservationID, filePath, model.SignatureDrawn, signatureHash, signedAt); err != nil {
		return fmt.Errorf("ошибка записи контракта при подписании: %w", err)
	}
	return nil
}

func (r *contractRepo) DeleteByReservationID(ctx context.Context, reservationID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM contracts WHERE reservation_id = $1`, reservationID); err != nil {
		return fmt.Errorf("ошибка удаления контракта: %w", err)
	}
	return nil
}
