// Пакет pdf — конвертация HTML→PDF и наложение подписи на страницы.
// convert.go — конвертация контрактного HTML в PDF через wkhtmltopdf.
// Интерфейс Converter позволяет подменять конвертер в тестах:
// бинарь wkhtmltopdf в тестовом окружении недоступен.
package pdf

import (
	"context"
	"fmt"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
)

// Converter — конвертация самодостаточного HTML в байты PDF.
// Относительные ссылки HTML должны быть разрешены заранее
// (тег <base href> вставляет вызывающая сторона).
type Converter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// WkhtmltopdfConverter — конвертер на основе бинаря wkhtmltopdf.
type WkhtmltopdfConverter struct{}

// NewWkhtmltopdfConverter создаёт конвертер. binPath — путь к бинарю;
// пустая строка — поиск в PATH.
func NewWkhtmltopdfConverter(binPath string) *WkhtmltopdfConverter {
	if binPath != "" {
		wkhtmltopdf.SetPath(binPath)
	}
	return &WkhtmltopdfConverter{}
}

// Convert конвертирует HTML в PDF. Ошибка конвертации фатальна для
// запроса: частичный результат не возвращается.
func (c *WkhtmltopdfConverter) Convert(ctx context.Context, html string) ([]byte, error) {
	gen, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации wkhtmltopdf: %w", err)
	}

	gen.Dpi.Set(96)
	gen.MarginTop.Set(10)
	gen.MarginBottom.Set(10)
	gen.MarginLeft.Set(10)
	gen.MarginRight.Set(10)

	page := wkhtmltopdf.NewPageReader(strings.NewReader(html))
	page.EnableLocalFileAccess.Set(true)
	gen.AddPage(page)

	if err := gen.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("ошибка конвертации HTML→PDF: %w", err)
	}
	return gen.Bytes(), nil
}
