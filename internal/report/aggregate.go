// Package report builds the monthly bill report and renders it as PDF,
// XLSX, CSV or a ZIP bundle with the attachments.
package report

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billminder/internal/format"
	"billminder/internal/models"
)

// Labels shown in every format.
const (
	LabelPaid        = "Pago"
	LabelPending     = "Pendente"
	LabelNoCategory  = "Sem categoria"
	LabelYes         = "Sim"
	LabelNo          = "Não"
	defaultLegendHex = "#9ca3af"
	defaultRowHex    = "#f3f4f6"
)

// Summary holds the report totals. Pending is always Total minus Paid.
type Summary struct {
	Total   decimal.Decimal
	Paid    decimal.Decimal
	Pending decimal.Decimal
}

// Row is the per-bill projection every renderer draws from.
type Row struct {
	BillID         string
	DueDate        time.Time
	DueDateText    string
	Name           string
	Category       string
	CategoryText   string
	Paid           bool
	StatusLabel    string
	Amount         decimal.Decimal
	AmountText     string
	HasInvoice     bool
	HasProof       bool
	HasPaymentInfo bool

	InvoiceFile     string
	InvoiceFilename string
	ProofFile       string
	ProofFilename   string
}

// LegendEntry pairs a category with its display color.
type LegendEntry struct {
	Name  string
	Color string
}

// Report is the aggregated input to the renderers.
type Report struct {
	Year           int
	Month          time.Month
	Summary        Summary
	Rows           []Row
	CategoryColors map[string]string
	GeneratedAt    time.Time
	Location       *time.Location
}

// Aggregate totals bills and projects them into rows sorted by due date.
// Bills sharing a due date keep their input order. An empty input yields zero
// totals and no rows.
func Aggregate(bills []models.Bill, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}

	total := decimal.Zero
	paid := decimal.Zero
	rows := make([]Row, 0, len(bills))

	for i := range bills {
		b := &bills[i]
		total = total.Add(b.Amount)
		isPaid := b.Status == models.BillStatusPaid
		if isPaid {
			paid = paid.Add(b.Amount)
		}

		row := Row{
			BillID:         b.ID,
			DueDate:        b.DueDate,
			DueDateText:    format.Date(b.DueDate, loc),
			Name:           b.Name,
			Category:       b.CategoryName(),
			CategoryText:   b.CategoryName(),
			Paid:           isPaid,
			StatusLabel:    LabelPending,
			Amount:         b.Amount,
			AmountText:     format.Money(b.Amount),
			HasInvoice:     b.HasInvoice(),
			HasProof:       b.HasProof(),
			HasPaymentInfo: b.HasPaymentInfo(),
		}
		if row.CategoryText == "" {
			row.CategoryText = LabelNoCategory
		}
		if isPaid {
			row.StatusLabel = LabelPaid
		}
		if row.HasInvoice {
			row.InvoiceFile = *b.InvoiceFile
			row.InvoiceFilename = displayName(b.InvoiceFilename, row.InvoiceFile)
		}
		if row.HasProof {
			row.ProofFile = *b.ProofFile
			row.ProofFilename = displayName(b.ProofFilename, row.ProofFile)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DueDate.Before(rows[j].DueDate)
	})

	return Report{
		Summary: Summary{
			Total:   total,
			Paid:    paid,
			Pending: total.Sub(paid),
		},
		Rows:     rows,
		Location: loc,
	}
}

// Legend lists the categories present in the report, sorted by name, with
// their configured color or a neutral gray.
func (r *Report) Legend() []LegendEntry {
	seen := make(map[string]bool)
	var entries []LegendEntry
	for _, row := range r.Rows {
		if row.Category == "" || seen[row.Category] {
			continue
		}
		seen[row.Category] = true
		color, ok := r.colorFor(row.Category)
		if !ok {
			color = defaultLegendHex
		}
		entries = append(entries, LegendEntry{Name: row.Category, Color: color})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// colorFor looks a category up by exact name, then case-insensitively.
func (r *Report) colorFor(category string) (string, bool) {
	if c, ok := r.CategoryColors[category]; ok {
		return c, true
	}
	for name, c := range r.CategoryColors {
		if strings.EqualFold(name, category) {
			return c, true
		}
	}
	return "", false
}

// PeriodText returns the report period as mm/yyyy.
func (r *Report) PeriodText() string {
	return format.Period(r.Year, r.Month)
}

// GeneratedText returns the generation timestamp in the report location.
func (r *Report) GeneratedText() string {
	return format.DateTime(r.GeneratedAt, r.Location)
}

func displayName(name *string, key string) string {
	if name != nil && *name != "" {
		return *name
	}
	return path.Base(key)
}

func yesNo(b bool) string {
	if b {
		return LabelYes
	}
	return LabelNo
}
