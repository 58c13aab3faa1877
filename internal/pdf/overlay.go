// overlay.go — наложение подписи на страницы контракта.
// Алгоритмическое ядро модуля: растр подписи растягивается до
// сконфигурированных размеров (без сохранения пропорций — намеренное
// упрощение), затем страница за страницей на оригинальное содержимое
// накладываются штампы: рубрика, строка аудита и полная подпись.
// Оригинальное содержимое страницы остаётся видимым под штампами.
package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"github.com/caio-c-godoy/4ufleet/contract-module/internal/domain/model"
)

// Смещение строки аудита от левого/нижнего края страницы, пункты.
const (
	auditOffsetX = 24
	auditOffsetY = 14
	auditPoints  = 7
)

// StampInfo — данные штампа аудита: время подписания и IP клиента.
type StampInfo struct {
	SignedAt time.Time
	IP       string
}

// Overlay — движок наложения подписи на PDF.
type Overlay struct {
	conf *pdfmodel.Configuration
}

// NewOverlay создаёт движок с ослабленной валидацией PDF:
// wkhtmltopdf генерирует файлы, не проходящие строгую проверку.
func NewOverlay() *Overlay {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &Overlay{conf: conf}
}

// PageCount возвращает число страниц PDF.
func (o *Overlay) PageCount(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), o.conf)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта страниц: %w", err)
	}
	return n, nil
}

// ApplySignature накладывает подпись на все страницы базового PDF
// и возвращает байты подписанного документа. Базовый документ
// не изменяется. Геометрия в пунктах PDF, начало координат —
// левый нижний угол страницы.
//
// Для каждой страницы i из 1..N:
//   - рубрика в правом нижнем углу, кроме последней страницы,
//     если флаг RubricaOnLast не взведён;
//   - строка аудита в левом нижнем углу, если флаг AuditStamp взведён;
//   - на последней странице — полная подпись в точке
//     (width*XRel, height*YRel).
func (o *Overlay) ApplySignature(basePDF, signaturePNG []byte, geom model.SignConfig, info StampInfo) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(signaturePNG))
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования изображения подписи: %w", err)
	}

	// Две растеризации: полная подпись и рубрика. Размер в пикселях
	// равен размеру в пунктах: при scale:1 abs пиксель = пункт,
	// штамп получает точный сконфигурированный размер.
	fullPNG, err := encodePNG(stretchResize(src, geom.W, geom.H))
	if err != nil {
		return nil, fmt.Errorf("ошибка растеризации полной подписи: %w", err)
	}
	rubPNG, err := encodePNG(stretchResize(src, geom.RubW, geom.RubH))
	if err != nil {
		return nil, fmt.Errorf("ошибка растеризации рубрики: %w", err)
	}

	dims, err := api.PageDims(bytes.NewReader(basePDF), o.conf)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения размеров страниц: %w", err)
	}
	total := len(dims)
	if total == 0 {
		return nil, fmt.Errorf("документ не содержит страниц")
	}

	auditText := fmt.Sprintf("Signed %s UTC • IP %s",
		info.SignedAt.UTC().Format("2006-01-02 15:04"), info.IP)

	cur := basePDF
	for i := 1; i <= total; i++ {
		d := dims[i-1]
		last := i == total
		pageSel := []string{strconv.Itoa(i)}

		if !last || geom.RubricaOnLast {
			x := d.Width - float64(geom.RubW) - float64(geom.RubMargin)
			y := float64(geom.RubMargin)
			wm, err := api.ImageWatermarkForReader(bytes.NewReader(rubPNG),
				imageDesc(x, y), true, false, types.POINTS)
			if err != nil {
				return nil, fmt.Errorf("ошибка подготовки штампа рубрики: %w", err)
			}
			if cur, err = o.stampPage(cur, pageSel, wm); err != nil {
				return nil, fmt.Errorf("страница %d: рубрика: %w", i, err)
			}
		}

		if geom.AuditStamp {
			desc := fmt.Sprintf("font:Helvetica, points:%d, scale:1 abs, pos:bl, off:%d %d, rot:0, fillcol:#444444",
				auditPoints, auditOffsetX, auditOffsetY)
			wm, err := api.TextWatermark(auditText, desc, true, false, types.POINTS)
			if err != nil {
				return nil, fmt.Errorf("ошибка подготовки штампа аудита: %w", err)
			}
			if cur, err = o.stampPage(cur, pageSel, wm); err != nil {
				return nil, fmt.Errorf("страница %d: штамп аудита: %w", i, err)
			}
		}

		if last {
			x := d.Width * geom.XRel
			y := d.Height * geom.YRel
			wm, err := api.ImageWatermarkForReader(bytes.NewReader(fullPNG),
				imageDesc(x, y), true, false, types.POINTS)
			if err != nil {
				return nil, fmt.Errorf("ошибка подготовки штампа подписи: %w", err)
			}
			if cur, err = o.stampPage(cur, pageSel, wm); err != nil {
				return nil, fmt.Errorf("страница %d: полная подпись: %w", i, err)
			}
		}
	}

	return cur, nil
}

// stampPage применяет один штамп к выбранным страницам и возвращает
// новые байты документа.
func (o *Overlay) stampPage(pdf []byte, pages []string, wm *pdfmodel.Watermark) ([]byte, error) {
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(pdf), &out, pages, wm, o.conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// imageDesc — дескриптор штампа-изображения: якорь в левом нижнем
// углу страницы, смещение в пунктах, натуральный размер растра.
func imageDesc(x, y float64) string {
	return fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:1 abs, rot:0", x, y)
}

// stretchResize растягивает изображение ровно до w×h пикселей.
// Пропорции не сохраняются: поведение зафиксировано контрактом
// геометрии подписи.
func stretchResize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// encodePNG кодирует изображение в PNG.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
