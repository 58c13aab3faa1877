package repository

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
)

// TenantRepository — чтение настроек tenant-ов.
// Настройки принадлежат административной подсистеме; здесь они
// read-only, плюс обновление шаблона контракта из редактора.
type TenantRepository interface {
	// GetBySlug возвращает tenant-а по slug-у.
	GetBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	// UpdateContractTemplate сохраняет HTML-шаблон контракта tenant-а.
	UpdateContractTemplate(ctx context.Context, slug, templateHTML string) error
}

// tenantRepo — реализация TenantRepository.
type tenantRepo struct {
	db DBTX
}

// NewTenantRepository создаёт репозиторий tenant-ов.
func NewTenantRepository(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, name, slug, email, logo_path, contract_template_html,
	sign_x_rel, sign_y_rel, sign_w_pt, sign_h_pt,
	rub_w_pt, rub_h_pt, rub_margin_pt, rubrica_on_last, audit_stamp,
	mail_host, mail_port, mail_user, mail_password, mail_from`

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE slug = $1`, tenantColumns)

	t := &model.Tenant{}
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&t.ID, &t.Name, &t.Slug, &t.Email, &t.LogoPath, &t.ContractTemplateHTML,
		&t.SignXRel, &t.SignYRel, &t.SignWPt, &t.SignHPt,
		&t.RubWPt, &t.RubHPt, &t.RubMarginPt, &t.RubricaOnLast, &t.AuditStamp,
		&t.MailHost, &t.MailPort, &t.MailUser, &t.MailPassword, &t.MailFrom,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения tenant-а: %w", err)
	}
	return t, nil
}

func (r *tenantRepo) UpdateContractTemplate(ctx context.Context, slug, templateHTML string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tenants SET contract_template_html = $2, updated_at = now() WHERE slug = $1`,
		slug, templateHTML)
	if err != nil {
		return fmt.Errorf("ошибка обновления шаблона tenant-а: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CachedTenantRepository — LRU-кэш поверх TenantRepository.
// Настройки tenant-а читаются на каждый запрос контрактного API;
// кэш снимает эту нагрузку с БД. Запись шаблона инвалидирует кэш.
type CachedTenantRepository struct {
	inner TenantRepository
	cache *lru.Cache[string, *model.Tenant]
}

// NewCachedTenantRepository оборачивает репозиторий LRU-кэшем
// ёмкостью size записей.
func NewCachedTenantRepository(inner TenantRepository, size int) (*CachedTenantRepository, error) {
	cache, err := lru.New[string, *model.Tenant](size)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания LRU-кэша: %w", err)
	}
	return &CachedTenantRepository{inner: inner, cache: cache}, nil
}

// GetBySlug возвращает tenant-а из кэша или из БД.
// Отрицательные результаты не кэшируются.
func (r *CachedTenantRepository) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	if t, ok := r.cache.Get(slug); ok {
		return t, nil
	}

	t, err := r.inner.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	r.cache.Add(slug, t)
	return t, nil
}

// UpdateContractTemplate сохраняет шаблон и инвалидирует кэш slug-а.
func (r *CachedTenantRepository) UpdateContractTemplate(ctx context.Context, slug, templateHTML string) error {
	if err := r.inner.UpdateContractTemplate(ctx, slug, templateHTML); err != nil {
		return err
	}
	r.cache.Remove(slug)
	return nil
}

// Invalidate сбрасывает запись кэша slug-а (внешнее изменение настроек).
func (r *CachedTenantRepository) Invalidate(slug string) {
	r.cache.Remove(slug)
}
