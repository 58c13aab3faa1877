// lifecycle.go — удаление контракта и его артефактов.
// Вызывается подсистемой управления резервациями при удалении
// резервации; операция идемпотентна.
package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/storage/artifacts"
)

// contractsDeleted — количество удалённых контрактов.
var contractsDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cm_contracts_deleted_total",
	Help: "Количество удалённых контрактов (запись + артефакты).",
})

// LifecycleService — жизненный цикл контракта.
type LifecycleService struct {
	store     *artifacts.Store
	contracts repository.ContractRepository
	logger    *slog.Logger
}

// NewLifecycleService создаёт сервис жизненного цикла.
func NewLifecycleService(store *artifacts.Store, contracts repository.ContractRepository, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{
		store:     store,
		contracts: contracts,
		logger:    logger.With(slog.String("component", "lifecycle_service")),
	}
}

// DeleteContract удаляет запись контракта и все четыре вида артефактов
// резервации. Отсутствие записи или файлов — не ошибка.
func (s *LifecycleService) DeleteContract(ctx context.Context, tenantSlug string, reservationID int64) error {
	if err := s.contracts.DeleteByReservationID(ctx, reservationID); err != nil {
		return err
	}
	if err := s.store.Cleanup(tenantSlug, reservationID); err != nil {
		return err
	}

	contractsDeleted.Inc()
	s.logger.Info("Контракт удалён",
		slog.Int64("reservation_id", reservationID),
		slog.String("tenant", tenantSlug),
	)
	return nil
}
