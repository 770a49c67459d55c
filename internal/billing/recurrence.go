package billing

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "billminder/internal/errors"
)

// RecurrenceTemplate carries the fields copied onto every generated bill.
type RecurrenceTemplate struct {
	Name        string
	Category    *string
	Amount      decimal.Decimal
	PaymentInfo *string
}

// BillRequest describes one bill to be created.
type BillRequest struct {
	Name        string
	Category    *string
	Amount      decimal.Decimal
	DueDate     time.Time
	PaymentInfo *string
}

// MonthSpan returns the number of calendar months from start's month to
// end's month, inclusive. Zero or negative when end's month precedes start's.
func MonthSpan(start, end time.Time) int {
	end = end.In(start.Location())
	return (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
}

// ExpandRecurrence produces one request per calendar month from start's month
// through end's month. Each due date keeps start's day of month, clipped to the
// last day of shorter months, so Jan 31 yields Feb 29 in a leap year and
// Mar 31 after it. Returns ErrInvalidRange when start is after end.
func ExpandRecurrence(tmpl RecurrenceTemplate, start, end time.Time) ([]BillRequest, error) {
	if DaysUntil(start, end) < 0 {
		return nil, apperrors.ErrInvalidRange
	}

	loc := start.Location()
	day := start.Day()
	months := MonthSpan(start, end)

	requests := make([]BillRequest, 0, months)
	for i := 0; i < months; i++ {
		first := time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, loc)
		d := day
		if last := daysIn(first.Year(), first.Month()); d > last {
			d = last
		}
		requests = append(requests, BillRequest{
			Name:        tmpl.Name,
			Category:    tmpl.Category,
			Amount:      tmpl.Amount,
			DueDate:     time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, loc),
			PaymentInfo: tmpl.PaymentInfo,
		})
	}
	return requests, nil
}
