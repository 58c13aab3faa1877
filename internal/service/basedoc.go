// basedoc.go — генерация базового (неподписанного) PDF контракта.
// Идемпотентна: существующий артефакт по каноническому или legacy
// пути переиспользуется как есть, содержимое не перегенерируется.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/pdf"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/repository"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/storage/artifacts"
	"github.com/caio-c-godoy/4ufleet/contract-module/internal/template"
)

// Метрики генерации базовых документов.
var (
	// baseDocsGenerated — количество сгенерированных базовых PDF.
	baseDocsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_base_documents_generated_total",
		Help: "Количество сгенерированных базовых PDF контрактов.",
	})
	// baseDocsReused — количество переиспользованных артефактов.
	baseDocsReused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_base_documents_reused_total",
		Help: "Количество переиспользованных существующих базовых PDF.",
	})
	// baseDocDuration — длительность генерации базового PDF.
	baseDocDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cm_base_document_duration_seconds",
		Help:    "Длительность генерации базового PDF (рендеринг + конвертация).",
		Buckets: prometheus.DefBuckets,
	})
)

// BaseDocService — генерация базового PDF контракта.
type BaseDocService struct {
	renderer  *template.Renderer
	converter pdf.Converter
	store     *artifacts.Store
	contracts repository.ContractRepository
	staticDir string
	logger    *slog.Logger
}

// NewBaseDocService создаёт сервис генерации базовых документов.
// staticDir — корень статики tenant-ов; base href контрактного HTML
// указывает на поддиректорию tenant-а, относительные ссылки
// (логотип и т.п.) резолвятся при конвертации.
func NewBaseDocService(
	renderer *template.Renderer,
	converter pdf.Converter,
	store *artifacts.Store,
	contracts repository.ContractRepository,
	staticDir string,
	logger *slog.Logger,
) *BaseDocService {
	// file:// URL требует абсолютного пути: относительный CM_STATIC_DIR
	// дал бы base href вида file://static/..., где "static" — хост.
	if abs, err := filepath.Abs(staticDir); err == nil {
		staticDir = abs
	}
	return &BaseDocService{
		renderer:  renderer,
		converter: converter,
		store:     store,
		contracts: contracts,
		staticDir: staticDir,
		logger:    logger.With(slog.String("component", "basedoc_service")),
	}
}

// EnsureBaseDocument возвращает путь к базовому PDF резервации,
// генерируя его при отсутствии.
//
// Существующий артефакт (канонический или legacy путь) переиспользуется
// verbatim. Иначе: рендеринг HTML → конвертация в PDF → атомарная
// запись → хэш → upsert записи контракта (signature_type=generated).
// Ошибка рендеринга или конвертации фатальна для запроса; частичный
// файл не остаётся (запись через temp + rename).
func (s *BaseDocService) EnsureBaseDocument(ctx context.Context, tenant *model.Tenant, res *model.Reservation) (string, error) {
	if path, ok := s.store.ResolveBase(tenant.Slug, res.ID); ok {
		baseDocsReused.Inc()
		s.logger.Debug("Базовый PDF уже существует",
			slog.Int64("reservation_id", res.ID),
			slog.String("path", path),
		)
		return path, nil
	}

	start := time.Now()

	html, err := s.renderer.Render(tenant.ContractTemplateHTML, template.BuildContext(res, tenant, time.Now()))
	if err != nil {
		return "", fmt.Errorf("рендеринг контракта: %w", err)
	}
	html = fmt.Sprintf("<base href=%q>\n%s", s.tenantStaticBase(tenant.Slug), html)

	pdfBytes, err := s.converter.Convert(ctx, html)
	if err != nil {
		return "", fmt.Errorf("конвертация контракта в PDF: %w", err)
	}

	paths := s.store.Paths(tenant.Slug, res.ID)
	if err := s.store.WriteFile(paths.Base, pdfBytes); err != nil {
		return "", fmt.Errorf("запись базового PDF: %w", err)
	}

	hash := artifacts.HashBytes(pdfBytes)
	if _, err := s.contracts.UpsertGenerated(ctx, res.ID, paths.Base, hash); err != nil {
		return "", err
	}

	baseDocsGenerated.Inc()
	baseDocDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Базовый PDF сгенерирован",
		slog.Int64("reservation_id", res.ID),
		slog.String("tenant", tenant.Slug),
		slog.Int("size_bytes", len(pdfBytes)),
	)
	return paths.Base, nil
}

// tenantStaticBase — base href статики tenant-а для резолва
// относительных ссылок контрактного HTML.
func (s *BaseDocService) tenantStaticBase(tenantSlug string) string {
	return fmt.Sprintf("file://%s/%s/", s.staticDir, tenantSlug)
}
