// Package format renders money and dates the way Brazilian users read them.
package format

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DateLayout is dd/mm/yyyy.
const DateLayout = "02/01/2006"

// DateTimeLayout is dd/mm/yyyy hh:mm.
const DateTimeLayout = "02/01/2006 15:04"

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Amount formats d with pt-BR separators and two decimals, e.g. "1.234,56".
func Amount(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Money is Amount prefixed with the real sign, e.g. "R$ 1.234,56".
func Money(d decimal.Decimal) string {
	return "R$ " + Amount(d)
}

// Date formats the calendar day of t in loc.
func Date(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// DateTime formats t in loc down to the minute.
func DateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateTimeLayout)
}

// Period formats the report period as mm/yyyy.
func Period(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("01/2006")
}
