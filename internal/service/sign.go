// sign.go — захват подписи и выпуск подписанного контракта.
// Шаги одной резервации сериализуются блокировкой по ключу: два
// одновременных подписания из разных вкладок не теряют обновлений.
// Базовый PDF никогда не изменяется — повторное подписание
// перезаписывает подписанный артефакт по тому же пути.
package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/pdf"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/storage/artifacts"
)

// Ошибки сервиса подписания.
var (
	// ErrDocumentNotFound — базовый PDF отсутствует; вызывающая
	// сторона должна была сперва вызвать EnsureBaseDocument.
	ErrDocumentNotFound = errors.New("базовый документ контракта не найден")
	// ErrBadImage — изображение подписи не декодируется (ошибка клиента).
	ErrBadImage = errors.New("некорректное изображение подписи")
)

// Метрики подписания.
var (
	// signaturesTotal — количество операций подписания по исходу.
	signaturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_signatures_total",
		Help: "Количество операций подписания контракта.",
	}, []string{"status"})
	// signatureDuration — длительность операции подписания.
	signatureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cm_signature_duration_seconds",
		Help:    "Длительность наложения подписи на контракт.",
		Buckets: prometheus.DefBuckets,
	})
)

// OverlayEngine — наложение подписи на PDF. Реализуется pdf.Overlay;
// в тестах подменяется.
type OverlayEngine interface {
	ApplySignature(basePDF, signaturePNG []byte, geom model.SignConfig, info pdf.StampInfo) ([]byte, error)
}

// RequestMeta — метаданные запроса подписания для записи аудита.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// SignService — применение подписи к контракту.
type SignService struct {
	store     *artifacts.Store
	overlay   OverlayEngine
	contracts repository.ContractRepository
	notifier  *Notifier
	locks     keyedMutex
	logger    *slog.Logger
}

// NewSignService создаёт сервис подписания. notifier может быть nil —
// тогда события подписания не публикуются.
func NewSignService(
	store *artifacts.Store,
	overlay OverlayEngine,
	contracts repository.ContractRepository,
	notifier *Notifier,
	logger *slog.Logger,
) *SignService {
	return &SignService{
		store:     store,
		overlay:   overlay,
		contracts: contracts,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "sign_service")),
	}
}

// DecodeSignatureDataURL извлекает байты PNG из data-URL вида
// "data:image/png;base64,...". Любая ошибка формата — ErrBadImage.
func DecodeSignatureDataURL(dataURL string) ([]byte, error) {
	const marker = ";base64,"

	if !strings.HasPrefix(dataURL, "data:image/") {
		return nil, ErrBadImage
	}
	idx := strings.Index(dataURL, marker)
	if idx < 0 {
		return nil, ErrBadImage
	}

	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len(marker):])
	if err != nil || len(raw) == 0 {
		return nil, ErrBadImage
	}
	return raw, nil
}

// ApplySignature накладывает подпись клиента на контракт резервации
// и возвращает путь к подписанному PDF.
//
// Последовательность: декодирование изображения → под блокировкой
// резервации: сохранение сырого растра (аудит) → загрузка базового
// PDF → наложение штампов → атомарная запись подписанного PDF →
// запись аудита → обновление записи контракта → асинхронное событие
// ContractSigned (сбой публикации не откатывает подписание).
func (s *SignService) ApplySignature(ctx context.Context, tenant *model.Tenant, res *model.Reservation, imageDataURL string, meta RequestMeta) (string, error) {
	rawPNG, err := DecodeSignatureDataURL(imageDataURL)
	if err != nil {
		signaturesTotal.WithLabelValues("bad_image").Inc()
		return "", err
	}

	unlock := s.locks.Lock(res.ID)
	defer unlock()

	start := time.Now()

	basePath, ok := s.store.ResolveBase(tenant.Slug, res.ID)
	if !ok {
		signaturesTotal.WithLabelValues("not_found").Inc()
		return "", ErrDocumentNotFound
	}

	paths := s.store.Paths(tenant.Slug, res.ID)

	// Сырой растр хранится только для аудита и больше не перечитывается.
	if err := s.store.WriteFile(paths.SignaturePNG, rawPNG); err != nil {
		signaturesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("сохранение изображения подписи: %w", err)
	}

	basePDF, err := os.ReadFile(basePath)
	if err != nil {
		signaturesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("чтение базового PDF: %w", err)
	}

	signedAt := time.Now().UTC()
	signedPDF, err := s.overlay.ApplySignature(basePDF, rawPNG, tenant.SignConfig(), pdf.StampInfo{
		SignedAt: signedAt,
		IP:       meta.IP,
	})
	if err != nil {
		signaturesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("наложение подписи: %w", err)
	}

	if err := s.store.WriteFile(paths.Signed, signedPDF); err != nil {
		signaturesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("запись подписанного PDF: %w", err)
	}

	audit, err := json.MarshalIndent(model.NewAuditRecord(res.ID, signedAt, meta.IP, meta.UserAgent), "", "  ")
	if err != nil {
		signaturesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("сериализация записи аудита: %w", err)
	}
	if err := s.store.WriteFile(paths.Audit, audit); err != nil {
		signaturesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("запись аудита: %w", err)
	}

	if err := s.contracts.MarkSigned(ctx, res.ID, paths.Signed, artifacts.HashBytes(rawPNG), signedAt); err != nil {
		signaturesTotal.WithLabelValues("error").Inc()
		return "", err
	}

	signaturesTotal.WithLabelValues("ok").Inc()
	signatureDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Контракт подписан",
		slog.Int64("reservation_id", res.ID),
		slog.String("tenant", tenant.Slug),
		slog.String("ip", meta.IP),
	)

	if s.notifier != nil {
		s.notifier.Publish(SignedEvent{
			Tenant:      tenant,
			Reservation: res,
			SignedPath:  paths.Signed,
		})
	}

	return paths.Signed, nil
}
