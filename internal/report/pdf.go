package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"billminder/internal/format"
)

const (
	pdfMargin    = 10.0
	pdfRowHeight = 7.0
	pdfFooterGap = 15.0
	rowTintAlpha = 0.2
)

type pdfColumn struct {
	title string
	width float64
	align string
}

// Column widths add up to the printable width of an A4 landscape page.
var pdfColumns = []pdfColumn{
	{"Vencimento", 25, "C"},
	{"Descrição", 70, "L"},
	{"Categoria", 45, "L"},
	{"Status", 25, "C"},
	{"Valor", 32, "R"},
	{"Boleto", 25, "C"},
	{"Comprovante", 30, "C"},
	{"PIX", 25, "C"},
}

type rgb struct{ r, g, b int }

var (
	colorHeader  = rgb{30, 64, 175}
	colorText    = rgb{31, 41, 55}
	colorMuted   = rgb{107, 114, 128}
	colorPaid    = rgb{16, 185, 129}
	colorPending = rgb{245, 158, 11}
	colorBorder  = rgb{209, 213, 219}
)

// PDFRenderer draws an A4 landscape document with a summary box, a
// category legend and the bill table. The table header repeats on every page.
type PDFRenderer struct{}

// Render implements Renderer.
func (PDFRenderer) Render(_ context.Context, r *Report) (*File, error) {
	data, err := renderPDF(r)
	if err != nil {
		return nil, err
	}
	return &File{
		Data:        data,
		Filename:    baseName(r) + ".pdf",
		ContentType: "application/pdf",
	}, nil
}

type pdfDoc struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	pageH float64
}

func renderPDF(r *Report) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfFooterGap)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetModificationDate(r.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Relatório Mensal "+r.PeriodText(), true)
	pdf.SetCreator("billminder", true)
	pdf.AliasNbPages("")

	_, pageH := pdf.GetPageSize()
	d := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), pageH: pageH}

	generated := r.GeneratedText()
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfFooterGap + 3)
		pdf.SetFont("Helvetica", "I", 8)
		setText(pdf, colorMuted)
		pdf.CellFormat(0, 5, d.tr("Relatório gerado em "+generated), "", 0, "L", false, 0, "")
		pdf.SetX(pdfMargin)
		pdf.CellFormat(0, 5, d.tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	d.title(r)
	d.summary(r)
	d.legend(r)
	d.table(r)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *pdfDoc) title(r *Report) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 18)
	setText(pdf, colorHeader)
	pdf.CellFormat(0, 10, d.tr("Relatório Mensal de Contas"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	setText(pdf, colorMuted)
	pdf.CellFormat(0, 6, d.tr("Período: "+r.PeriodText()), "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func (d *pdfDoc) summary(r *Report) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 11)
	setText(pdf, colorText)
	pdf.CellFormat(0, 7, "RESUMO FINANCEIRO", "", 1, "L", false, 0, "")

	items := []struct {
		label string
		value string
		color rgb
	}{
		{"Total", format.Money(r.Summary.Total), colorText},
		{"Pago", format.Money(r.Summary.Paid), colorPaid},
		{"Pendente", format.Money(r.Summary.Pending), colorPending},
	}

	setDraw(pdf, colorBorder)
	pdf.SetFillColor(249, 250, 251)
	width := 60.0
	for _, it := range items {
		pdf.SetFont("Helvetica", "", 9)
		setText(pdf, colorMuted)
		x, y := pdf.GetXY()
		pdf.Rect(x, y, width, 14, "DF")
		pdf.CellFormat(width, 6, d.tr(it.label), "", 0, "C", false, 0, "")
		pdf.SetXY(x, y+6)
		pdf.SetFont("Helvetica", "B", 12)
		setText(pdf, it.color)
		pdf.CellFormat(width, 8, d.tr(it.value), "", 0, "C", false, 0, "")
		pdf.SetXY(x+width+5, y)
	}
	pdf.Ln(18)
}

func (d *pdfDoc) legend(r *Report) {
	entries := r.Legend()
	if len(entries) == 0 {
		return
	}
	pdf := d.pdf
	d.ensure(12)
	pdf.SetFont("Helvetica", "B", 10)
	setText(pdf, colorText)
	pdf.CellFormat(0, 6, "LEGENDA DE CATEGORIAS", "", 1, "L", false, 0, "")

	const perLine = 4
	const cellW = 65.0
	for i, e := range entries {
		if i%perLine == 0 {
			if i > 0 {
				pdf.Ln(6)
			}
			d.ensure(6)
		}
		pdf.SetFont("Helvetica", "", 9)
		x, y := pdf.GetXY()
		c, ok := parseHex(e.Color)
		if !ok {
			c, _ = parseHex(defaultLegendHex)
		}
		setFill(pdf, c)
		pdf.Rect(x, y+1, 4, 4, "F")
		pdf.SetX(x + 6)
		setText(pdf, colorText)
		pdf.CellFormat(cellW-6, 6, d.fit(e.Name, cellW-8), "", 0, "L", false, 0, "")
	}
	pdf.Ln(10)
}

// ensure starts a new page when h more millimetres would run into the footer.
// It reports whether a page was added.
func (d *pdfDoc) ensure(h float64) bool {
	if d.pdf.GetY()+h <= d.pageH-pdfFooterGap {
		return false
	}
	d.pdf.AddPage()
	return true
}

func (d *pdfDoc) tableHeader() {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 9)
	setFill(pdf, colorHeader)
	pdf.SetTextColor(255, 255, 255)
	setDraw(pdf, colorHeader)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, pdfRowHeight+1, d.tr(col.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func (d *pdfDoc) table(r *Report) {
	pdf := d.pdf
	d.ensure(2*pdfRowHeight + 1)
	d.tableHeader()

	if len(r.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		setText(pdf, colorMuted)
		pdf.CellFormat(0, 12, d.tr("Nenhuma conta encontrada no período."), "", 1, "C", false, 0, "")
		return
	}

	for _, row := range r.Rows {
		if d.ensure(pdfRowHeight) {
			d.tableHeader()
		}
		d.tableRow(r, row)
	}
}

func (d *pdfDoc) tableRow(r *Report, row Row) {
	pdf := d.pdf
	setFill(pdf, rowTint(r, row))
	setDraw(pdf, colorBorder)
	pdf.SetFont("Helvetica", "", 9)

	values := []string{
		row.DueDateText,
		row.Name,
		row.CategoryText,
		row.StatusLabel,
		row.AmountText,
		yesNo(row.HasInvoice),
		yesNo(row.HasProof),
		yesNo(row.HasPaymentInfo),
	}
	for i, col := range pdfColumns {
		setText(pdf, colorText)
		if i == 3 {
			pdf.SetFont("Helvetica", "B", 9)
			if row.Paid {
				setText(pdf, colorPaid)
			} else {
				setText(pdf, colorPending)
			}
		}
		pdf.CellFormat(col.width, pdfRowHeight, d.fit(values[i], col.width-2), "1", 0, col.align, true, 0, "")
		if i == 3 {
			pdf.SetFont("Helvetica", "", 9)
		}
	}
	pdf.Ln(-1)
}

// fit translates s and cuts it with an ellipsis so it fits in width.
func (d *pdfDoc) fit(s string, width float64) string {
	t := d.tr(s)
	if d.pdf.GetStringWidth(t) <= width {
		return t
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		t = d.tr(strings.TrimSpace(string(runes)) + "...")
		if d.pdf.GetStringWidth(t) <= width {
			return t
		}
	}
	return ""
}

// rowTint is the category color mixed toward white, or light gray when the
// bill has no colored category.
func rowTint(r *Report, row Row) rgb {
	if row.Category != "" {
		if hex, ok := r.colorFor(row.Category); ok {
			if c, ok := parseHex(hex); ok {
				return rgb{
					r: tint(c.r),
					g: tint(c.g),
					b: tint(c.b),
				}
			}
		}
	}
	c, _ := parseHex(defaultRowHex)
	return c
}

func tint(v int) int {
	return 255 - int(float64(255-v)*rowTintAlpha+0.5)
}

// parseHex reads #rgb or #rrggbb.
func parseHex(s string) (rgb, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)}, true
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }
