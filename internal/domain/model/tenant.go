// tenant.go — арендодатель (tenant) и его настройки подписи.
// Настройки геометрии читаются как nullable-колонки; SignConfig
// подставляет документированные значения по умолчанию.
package model

// Tenant — арендодатель. Настройки контракта и почты — per tenant.
type Tenant struct {
	ID   int64
	Name string
	Slug string

	// Branding / контакты
	Email    string
	LogoPath string

	// HTML-шаблон контракта (пусто → встроенный шаблон по умолчанию)
	ContractTemplateHTML string

	// Геометрия подписи (nullable, см. SignConfig)
	SignXRel      *float64
	SignYRel      *float64
	SignWPt       *int
	SignHPt       *int
	RubWPt        *int
	RubHPt        *int
	RubMarginPt   *int
	RubricaOnLast *bool
	AuditStamp    *bool

	// Исходящая почта per tenant
	MailHost     string
	MailPort     int
	MailUser     string
	MailPassword string
	MailFrom     string
}

// SignConfig — разрешённая геометрия подписи в пунктах PDF.
type SignConfig struct {
	// XRel, YRel — якорь полной подписи как доли ширины/высоты страницы
	XRel float64
	YRel float64
	// W, H — размер полной подписи в пунктах
	W int
	H int
	// RubW, RubH — размер рубрики в пунктах
	RubW int
	RubH int
	// RubMargin — отступ рубрики от правого/нижнего края страницы
	RubMargin int
	// RubricaOnLast — рисовать ли рубрику и на последней странице
	RubricaOnLast bool
	// AuditStamp — печатать ли строку аудита на каждой странице
	AuditStamp bool
}

// DefaultSignConfig — значения по умолчанию из контракта конфигурации.
func DefaultSignConfig() SignConfig {
	return SignConfig{
		XRel:          0.62,
		YRel:          0.13,
		W:             200,
		H:             80,
		RubW:          120,
		RubH:          48,
		RubMargin:     20,
		RubricaOnLast: false,
		AuditStamp:    true,
	}
}

// SignConfig возвращает геометрию подписи tenant-а, подставляя
// значения по умолчанию вместо незаполненных колонок.
func (t *Tenant) SignConfig() SignConfig {
	conf := DefaultSignConfig()
	if t == nil {
		return conf
	}
	if t.SignXRel != nil {
		conf.XRel = *t.SignXRel
	}
	if t.SignYRel != nil {
		conf.YRel = *t.SignYRel
	}
	if t.SignWPt != nil && *t.SignWPt > 0 {
		conf.W = *t.SignWPt
	}
	if t.SignHPt != nil && *t.SignHPt > 0 {
		conf.H = *t.SignHPt
	}
	if t.RubWPt != nil && *t.RubWPt > 0 {
		conf.RubW = *t.RubWPt
	}
	if t.RubHPt != nil && *t.RubHPt > 0 {
		conf.RubH = *t.RubHPt
	}
	if t.RubMarginPt != nil && *t.RubMarginPt >= 0 {
		conf.RubMargin = *t.RubMarginPt
	}
	if t.RubricaOnLast != nil {
		conf.RubricaOnLast = *t.RubricaOnLast
	}
	if t.AuditStamp != nil {
		conf.AuditStamp = *t.AuditStamp
	}
	return conf
}
