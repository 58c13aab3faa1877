// Пакет template — песочница рендеринга HTML-шаблонов контракта.
// Шаблон tenant-а исполняется только против фиксированного allow-list
// переменных; обращения к произвольным методам и атрибутам невозможны,
// неизвестные имена рендерятся пустыми. Сопутствующая валидация
// обходит дерево разбора и сообщает имена вне allow-list — она
// консультативная и используется редактором шаблонов, не рендерингом.
package template

import (
	"fmt"
	htmltemplate "html/template"
	"sort"
	"strings"
	texttemplate "text/template"
	"text/template/parse"
	"time"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
)

// allowedVars — фиксированный allow-list переменных контекста контракта.
var allowedVars = map[string]bool{
	"cliente_nome": true,
	"cliente_doc":  true,
	"cliente_pais": true,
	"voo_numero":   true,
	"data_inicio":  true,
	"data_fim":     true,
	"hoje":         true,
	"carro_marca":  true,
	"carro_modelo": true,
	"carro_ano":    true,
	"carro_cor":    true,
	"tenant_name":  true,
	"valor_total":  true,
}

// dateLayout — формат дат в тексте контракта (день/месяц/год).
const dateLayout = "02/01/2006"

// Context — контекст рендеринга: переменные allow-list и валюта.
// Валюта не адресуется из шаблона напрямую — её потребляет только
// функция money.
type Context struct {
	Vars     map[string]any
	Currency string
}

// BuildContext собирает контекст рендеринга из резервации и tenant-а.
// Только поля allow-list попадают в шаблон.
func BuildContext(res *model.Reservation, tenant *model.Tenant, now time.Time) Context {
	return Context{
		Vars: map[string]any{
			"cliente_nome": res.CustomerName,
			"cliente_doc":  res.CustomerDoc,
			"cliente_pais": res.CustomerCountry,
			"voo_numero":   res.FlightNo,
			"data_inicio":  res.PickupAt.Format(dateLayout),
			"data_fim":     res.DropoffAt.Format(dateLayout),
			"hoje":         now.Format(dateLayout),
			"carro_marca":  res.VehicleBrand,
			"carro_modelo": res.VehicleModel,
			"carro_ano":    res.VehicleYear,
			"carro_cor":    res.VehicleColor,
			"tenant_name":  tenant.Name,
			"valor_total":  res.TotalPrice,
		},
		Currency: res.Currency,
	}
}

// SampleContext — фиксированный контекст предпросмотра для редактора шаблонов.
func SampleContext() Context {
	return Context{
		Vars: map[string]any{
			"cliente_nome": "João da Silva",
			"cliente_doc":  "123.456.789-00",
			"cliente_pais": "Brasil",
			"voo_numero":   "TP1234",
			"data_inicio":  "01/09/2026",
			"data_fim":     "08/09/2026",
			"hoje":         time.Now().Format(dateLayout),
			"carro_marca":  "Toyota",
			"carro_modelo": "Corolla",
			"carro_ano":    "2024",
			"carro_cor":    "Prata",
			"tenant_name":  "Demo Rent a Car",
			"valor_total":  1234.56,
		},
		Currency: "EUR",
	}
}

// Renderer — песочница рендеринга шаблонов контракта.
type Renderer struct{}

// New создаёт Renderer.
func New() *Renderer {
	return &Renderer{}
}

// funcMap возвращает функции шаблона. money замыкается на валюту
// контекста: шаблон пишет {{money .valor_total}}, не видя валюту.
func funcMap(currency string) htmltemplate.FuncMap {
	return htmltemplate.FuncMap{
		"money": func(v any) string {
			switch n := v.(type) {
			case float64:
				return FormatMoney(n, currency)
			case int:
				return FormatMoney(float64(n), currency)
			case int64:
				return FormatMoney(float64(n), currency)
			default:
				return fmt.Sprintf("%v", v)
			}
		},
	}
}

// FormatMoney форматирует сумму в бразильской записи:
// точка — разделитель тысяч, запятая — десятичный.
func FormatMoney(v float64, currency string) string {
	neg := v < 0
	if neg {
		v = -v
	}

	whole := fmt.Sprintf("%.2f", v)
	intPart := whole[:len(whole)-3]
	fracPart := whole[len(whole)-2:]

	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(ch)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	if currency == "" {
		return fmt.Sprintf("%s%s,%s", sign, b.String(), fracPart)
	}
	return fmt.Sprintf("%s %s%s,%s", currency, sign, b.String(), fracPart)
}

// Render исполняет шаблон против контекста. html/template даёт
// автоэкранирование значений; missingkey=zero — неизвестные имена
// рендерятся пустыми, без ошибки (семантика песочницы).
func (r *Renderer) Render(src string, ctx Context) (string, error) {
	if src == "" {
		src = DefaultTemplate()
	}

	tmpl, err := htmltemplate.New("contract").
		Funcs(funcMap(ctx.Currency)).
		Option("missingkey=zero").
		Parse(src)
	if err != nil {
		return "", fmt.Errorf("ошибка разбора шаблона: %w", err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, ctx.Vars); err != nil {
		return "", fmt.Errorf("ошибка исполнения шаблона: %w", err)
	}
	return out.String(), nil
}

// Preview рендерит кандидат-шаблон против фиксированного контекста
// и оборачивает результат <base href>, чтобы относительные ссылки
// статики резолвились в редакторе.
func (r *Renderer) Preview(src, baseHref string) (string, error) {
	html, err := r.Render(src, SampleContext())
	if err != nil {
		return "", err
	}
	if baseHref == "" {
		return html, nil
	}
	return fmt.Sprintf("<base href=%q>\n%s", baseHref, html), nil
}

// Validate разбирает кандидат-шаблон и возвращает отсортированный
// список имён переменных вне allow-list. Ошибка — только при
// синтаксически некорректном шаблоне. Консультативная операция:
// рендеринг неизвестные имена не отвергает.
func (r *Renderer) Validate(src string) ([]string, error) {
	// Разбор через text/template/parse: html/template не отдаёт
	// дерево до исполнения. Функции объявляются заглушками,
	// чтобы parse узнавал их имена.
	stub := texttemplate.FuncMap{"money": func(any) string { return "" }}
	trees, err := parse.Parse("contract", src, "{{", "}}", stub)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблона: %w", err)
	}

	unknown := map[string]bool{}
	for _, tree := range trees {
		walkNode(tree.Root, unknown)
	}

	names := make([]string, 0, len(unknown))
	for name := range unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// walkNode рекурсивно обходит дерево разбора и собирает имена полей
// вне allow-list. Интересен только первый идентификатор цепочки:
// доступ глубже первого уровня в контексте-карте невозможен.
func walkNode(node parse.Node, unknown map[string]bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkNode(child, unknown)
		}
	case *parse.ActionNode:
		walkPipe(n.Pipe, unknown)
	case *parse.IfNode:
		walkBranch(&n.BranchNode, unknown)
	case *parse.RangeNode:
		walkBranch(&n.BranchNode, unknown)
	case *parse.WithNode:
		walkBranch(&n.BranchNode, unknown)
	case *parse.TemplateNode:
		walkPipe(n.Pipe, unknown)
	}
}

// walkBranch обходит условную ветку (if/range/with).
func walkBranch(n *parse.BranchNode, unknown map[string]bool) {
	walkPipe(n.Pipe, unknown)
	walkNode(n.List, unknown)
	if n.ElseList != nil {
		walkNode(n.ElseList, unknown)
	}
}

// walkPipe обходит конвейер команд и их аргументы.
func walkPipe(pipe *parse.PipeNode, unknown map[string]bool) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.FieldNode:
				if len(a.Ident) > 0 && !allowedVars[a.Ident[0]] {
					unknown[a.Ident[0]] = true
				}
			case *parse.PipeNode:
				walkPipe(a, unknown)
			}
		}
	}
}
