// Package billing holds the date logic behind bills: recurrence expansion,
// due-date classification, reminder eligibility and the paid/pending transition.
//
// Every function works on calendar days. The operating timezone is the
// location of the "today" or "now" argument; other timestamps are converted
// into it before their day is taken.
package billing

import "time"

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DaysUntil returns the number of calendar days from today to t, both taken
// in today's location. Negative when t is in the past.
func DaysUntil(today, t time.Time) int {
	loc := today.Location()
	ty, tm, td := today.Date()
	dy, dm, dd := t.In(loc).Date()
	from := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	to := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
