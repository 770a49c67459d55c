package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the report.
const SheetName = "Relatório Mensal"

const (
	xlsxHeaderRow = 9
	xlsxLastCol   = "H"
	moneyNumFmt   = `"R$" #,##0.00`

	xlsxPaidColor    = "10B981"
	xlsxPendingColor = "F59E0B"
	xlsxMutedColor   = "6B7280"
)

var xlsxColumns = []struct {
	title string
	width float64
}{
	{"Data de Vencimento", 18},
	{"Descrição", 40},
	{"Categoria", 22},
	{"Status", 12},
	{"Valor (R$)", 16},
	{"Boleto", 10},
	{"Comprovante", 14},
	{"PIX", 10},
}

// XLSXRenderer writes a single styled worksheet: title block, summary,
// and the bill table with frozen headers.
type XLSXRenderer struct{}

// Render implements Renderer.
func (XLSXRenderer) Render(_ context.Context, r *Report) (*File, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	w := &xlsxWriter{f: f}
	w.styles()
	w.titleBlock(r)
	w.summaryBlock(r)
	w.table(r)

	stamp := r.GeneratedAt.UTC().Format(time.RFC3339)
	w.do(f.SetDocProps(&excelize.DocProperties{
		Title:    "Relatório Mensal " + r.PeriodText(),
		Creator:  "billminder",
		Created:  stamp,
		Modified: stamp,
		Language: "pt-BR",
	}))

	if w.err != nil {
		return nil, fmt.Errorf("build xlsx: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return &File{
		Data:        buf.Bytes(),
		Filename:    baseName(r) + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}

// xlsxWriter keeps the first error so the layout code reads top to bottom.
type xlsxWriter struct {
	f   *excelize.File
	err error

	title, subtle, label, money, header, cell, cellAlt, moneyCell, moneyAlt int

	// Font-colored cells, indexed by zebra stripe (0 plain, 1 tinted).
	paid, pending, yes, no [2]int
}

func (w *xlsxWriter) do(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *xlsxWriter) style(s *excelize.Style) int {
	id, err := w.f.NewStyle(s)
	w.do(err)
	return id
}

func (w *xlsxWriter) styles() {
	numFmt := moneyNumFmt
	border := []excelize.Border{
		{Type: "left", Color: "D1D5DB", Style: 1},
		{Type: "right", Color: "D1D5DB", Style: 1},
		{Type: "top", Color: "D1D5DB", Style: 1},
		{Type: "bottom", Color: "D1D5DB", Style: 1},
	}
	zebra := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F9FAFB"}}

	w.title = w.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "1E40AF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	w.subtle = w.style(&excelize.Style{
		Font:      &excelize.Font{Size: 10, Color: "6B7280"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	w.label = w.style(&excelize.Style{Font: &excelize.Font{Bold: true}})
	w.money = w.style(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &numFmt})
	w.header = w.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1E40AF"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	w.cell = w.style(&excelize.Style{Border: border})
	w.cellAlt = w.style(&excelize.Style{Border: border, Fill: zebra})
	w.moneyCell = w.style(&excelize.Style{Border: border, CustomNumFmt: &numFmt})
	w.moneyAlt = w.style(&excelize.Style{Border: border, Fill: zebra, CustomNumFmt: &numFmt})

	colored := func(color string, bold bool) [2]int {
		font := &excelize.Font{Bold: bold, Color: color}
		center := &excelize.Alignment{Horizontal: "center"}
		return [2]int{
			w.style(&excelize.Style{Border: border, Font: font, Alignment: center}),
			w.style(&excelize.Style{Border: border, Fill: zebra, Font: font, Alignment: center}),
		}
	}
	w.paid = colored(xlsxPaidColor, true)
	w.pending = colored(xlsxPendingColor, true)
	w.yes = colored(xlsxPaidColor, false)
	w.no = colored(xlsxMutedColor, false)
}

// yesNoStyle picks the green Sim or grey Não style for stripe.
func (w *xlsxWriter) yesNoStyle(v bool, stripe int) int {
	if v {
		return w.yes[stripe]
	}
	return w.no[stripe]
}

func (w *xlsxWriter) set(cell string, value any, style int) {
	w.do(w.f.SetCellValue(SheetName, cell, value))
	if style != 0 {
		w.do(w.f.SetCellStyle(SheetName, cell, cell, style))
	}
}

func (w *xlsxWriter) titleBlock(r *Report) {
	w.set("A1", "Relatório Mensal de Contas", w.title)
	w.do(w.f.MergeCell(SheetName, "A1", xlsxLastCol+"1"))
	w.do(w.f.SetRowHeight(SheetName, 1, 28))

	w.set("A2", "Período: "+r.PeriodText(), w.subtle)
	w.do(w.f.MergeCell(SheetName, "A2", xlsxLastCol+"2"))
	w.set("A3", "Gerado em "+r.GeneratedText(), w.subtle)
	w.do(w.f.MergeCell(SheetName, "A3", xlsxLastCol+"3"))
}

func (w *xlsxWriter) summaryBlock(r *Report) {
	w.set("A5", "RESUMO FINANCEIRO", w.label)
	w.set("A6", "Total", 0)
	w.set("B6", r.Summary.Total.InexactFloat64(), w.money)
	w.set("A7", "Pago", 0)
	w.set("B7", r.Summary.Paid.InexactFloat64(), w.money)
	w.set("A8", "Pendente", 0)
	w.set("B8", r.Summary.Pending.InexactFloat64(), w.money)
}

func (w *xlsxWriter) table(r *Report) {
	for i, col := range xlsxColumns {
		name, err := excelize.ColumnNumberToName(i + 1)
		w.do(err)
		w.set(fmt.Sprintf("%s%d", name, xlsxHeaderRow), col.title, w.header)
		w.do(w.f.SetColWidth(SheetName, name, name, col.width))
	}

	for i, row := range r.Rows {
		n := xlsxHeaderRow + 1 + i
		stripe := i % 2
		plain, money := w.cell, w.moneyCell
		if stripe == 1 {
			plain, money = w.cellAlt, w.moneyAlt
		}
		status := w.pending[stripe]
		if row.Paid {
			status = w.paid[stripe]
		}
		w.set(fmt.Sprintf("A%d", n), row.DueDateText, plain)
		w.set(fmt.Sprintf("B%d", n), row.Name, plain)
		w.set(fmt.Sprintf("C%d", n), row.CategoryText, plain)
		w.set(fmt.Sprintf("D%d", n), row.StatusLabel, status)
		w.set(fmt.Sprintf("E%d", n), row.Amount.InexactFloat64(), money)
		w.set(fmt.Sprintf("F%d", n), yesNo(row.HasInvoice), w.yesNoStyle(row.HasInvoice, stripe))
		w.set(fmt.Sprintf("G%d", n), yesNo(row.HasProof), w.yesNoStyle(row.HasProof, stripe))
		w.set(fmt.Sprintf("H%d", n), yesNo(row.HasPaymentInfo), w.yesNoStyle(row.HasPaymentInfo, stripe))
	}

	w.do(w.f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      xlsxHeaderRow,
		TopLeftCell: fmt.Sprintf("A%d", xlsxHeaderRow+1),
		ActivePane:  "bottomLeft",
	}))
}
