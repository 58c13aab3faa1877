// notify.go — мост уведомлений о подписании контракта.
// Публикация не блокирует ответ подписания: события кладутся
// в буферизованный канал, воркер отправляет клиенту письмо с копией
// подписанного контракта. Сбой доставки логируется и никогда
// не откатывает подписание.
package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/mailer"
)

// Метрики моста уведомлений.
var (
	// notificationsTotal — события подписания по исходу доставки.
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_notifications_total",
		Help: "События ContractSigned по исходу доставки уведомления.",
	}, []string{"status"})
	// notifyQueueDropped — события, отброшенные из-за переполнения очереди.
	notifyQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_notify_queue_dropped_total",
		Help: "События ContractSigned, отброшенные при переполнении очереди.",
	})
)

// SignedEvent — событие "контракт подписан".
type SignedEvent struct {
	Tenant      *model.Tenant
	Reservation *model.Reservation
	SignedPath  string
}

// Notifier — асинхронный мост уведомлений.
type Notifier struct {
	ch     chan SignedEvent
	mailer mailer.Mailer
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewNotifier создаёт мост с очередью ёмкостью queueSize событий.
func NewNotifier(m mailer.Mailer, queueSize int, logger *slog.Logger) *Notifier {
	return &Notifier{
		ch:     make(chan SignedEvent, queueSize),
		mailer: m,
		logger: logger.With(slog.String("component", "notifier")),
	}
}

// Start запускает воркер доставки. Воркер завершается после Stop
// (дочитав очередь) или при отмене ctx.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case ev, ok := <-n.ch:
				if !ok {
					return
				}
				n.deliver(ctx, ev)
			case <-ctx.Done():
				return
			}
		}
	}()
	n.logger.Info("Мост уведомлений запущен", slog.Int("queue_size", cap(n.ch)))
}

// Stop закрывает очередь и дожидается доставки оставшихся событий.
func (n *Notifier) Stop() {
	close(n.ch)
	n.wg.Wait()
	n.logger.Info("Мост уведомлений остановлен")
}

// Publish кладёт событие в очередь без блокировки.
// При переполнении событие отбрасывается с предупреждением:
// уведомление — best effort, подписание важнее.
func (n *Notifier) Publish(ev SignedEvent) bool {
	select {
	case n.ch <- ev:
		return true
	default:
		notifyQueueDropped.Inc()
		n.logger.Warn("Очередь уведомлений переполнена, событие отброшено",
			slog.Int64("reservation_id", ev.Reservation.ID),
		)
		return false
	}
}

// deliver отправляет письмо с подписанным контрактом.
// Отсутствие почтовых настроек tenant-а или адреса клиента —
// не сбой: событие помечается как пропущенное.
func (n *Notifier) deliver(ctx context.Context, ev SignedEvent) {
	log := n.logger.With(
		slog.Int64("reservation_id", ev.Reservation.ID),
		slog.String("tenant", ev.Tenant.Slug),
	)

	if ev.Reservation.CustomerEmail == "" {
		notificationsTotal.WithLabelValues("skipped").Inc()
		log.Debug("У клиента нет email, уведомление пропущено")
		return
	}

	signedPDF, err := os.ReadFile(ev.SignedPath)
	if err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		log.Warn("Не удалось прочитать подписанный PDF для письма", slog.Any("error", err))
		return
	}

	err = n.mailer.SendSignedContract(ctx, ev.Tenant,
		ev.Reservation.CustomerEmail, ev.Reservation.CustomerName,
		ev.Reservation.ID, signedPDF)
	switch {
	case err == nil:
		notificationsTotal.WithLabelValues("sent").Inc()
		log.Info("Копия подписанного контракта отправлена клиенту")
	case errors.Is(err, mailer.ErrMailNotConfigured):
		notificationsTotal.WithLabelValues("skipped").Inc()
		log.Debug("Почта tenant-а не настроена, уведомление пропущено")
	default:
		notificationsTotal.WithLabelValues("failed").Inc()
		log.Warn("Ошибка отправки уведомления", slog.Any("error", err))
	}
}
