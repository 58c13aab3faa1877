package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
)

// ReservationRepository — чтение резерваций. Сущность принадлежит
// подсистеме резерваций; этот модуль её не создаёт и не изменяет.
type ReservationRepository interface {
	// GetByID возвращает резервацию tenant-а вместе с данными
	// автомобиля. Резервация чужого tenant-а — ErrNotFound.
	GetByID(ctx context.Context, tenantID, reservationID int64) (*model.Reservation, error)
}

// reservationRepo — реализация ReservationRepository.
type reservationRepo struct {
	db DBTX
}

// NewReservationRepository создаёт репозиторий резерваций.
func NewReservationRepository(db DBTX) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) GetByID(ctx context.Context, tenantID, reservationID int64) (*model.Reservation, error) {
	query := `
		SELECT r.id, r.tenant_id,
		       r.customer_name, r.customer_doc, r.customer_country,
		       r.customer_email, r.flight_no,
		       r.pickup_at, r.dropoff_at,
		       v.brand, v.model, v.year, v.color,
		       r.total_price, r.currency, r.created_at
		FROM reservations r
		JOIN vehicles v ON v.id = r.vehicle_id
		WHERE r.id = $1 AND r.tenant_id = $2`

	res := &model.Reservation{}
	err := r.db.QueryRow(ctx, query, reservationID, tenantID).Scan(
		&res.ID, &res.TenantID,
		&res.CustomerName, &res.CustomerDoc, &res.CustomerCountry,
		&res.CustomerEmail, &res.FlightNo,
		&res.PickupAt, &res.DropoffAt,
		&res.VehicleBrand, &res.VehicleModel, &res.VehicleYear, &res.VehicleColor,
		&res.TotalPrice, &res.Currency, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения резервации: %w", err)
	}
	return res, nil
}
