package report

import (
	"context"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{
	"Data de Vencimento", "Descrição", "Categoria", "Status",
	"Valor (R$)", "Boleto", "Comprovante", "PIX",
}

// CSVRenderer writes one quoted line per row after a UTF-8 BOM so
// spreadsheet apps pick the right encoding.
type CSVRenderer struct{}

// Render implements Renderer.
func (CSVRenderer) Render(_ context.Context, r *Report) (*File, error) {
	var b strings.Builder
	b.Write(utf8BOM)
	writeCSVLine(&b, csvHeader)
	for _, row := range r.Rows {
		writeCSVLine(&b, []string{
			row.DueDateText,
			row.Name,
			row.CategoryText,
			row.StatusLabel,
			row.Amount.StringFixed(2),
			yesNo(row.HasInvoice),
			yesNo(row.HasProof),
			yesNo(row.HasPaymentInfo),
		})
	}

	return &File{
		Data:        []byte(b.String()),
		Filename:    baseName(r) + ".csv",
		ContentType: "text/csv; charset=utf-8",
	}, nil
}

// writeCSVLine quotes every field, doubling embedded quotes.
func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
