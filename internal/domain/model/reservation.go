// reservation.go — резервация (read-only для этого модуля).
// Владелец сущности — подсистема резерваций; здесь читаются только поля,
// необходимые для контекста шаблона контракта.
package model

import "time"

// Reservation — резервация аренды автомобиля.
type Reservation struct {
	ID       int64
	TenantID int64

	// Клиент
	CustomerName    string
	CustomerDoc     string
	CustomerCountry string
	CustomerEmail   string
	FlightNo        string

	// Период аренды
	PickupAt  time.Time
	DropoffAt time.Time

	// Автомобиль (join с таблицей vehicles)
	VehicleBrand string
	VehicleModel string
	VehicleYear  string
	VehicleColor string

	// Стоимость
	TotalPrice float64
	Currency   string

	CreatedAt time.Time
}
