package billing

import (
	"time"

	"billminder/internal/models"
)

// DueStatus groups a bill by where its due date falls relative to today.
type DueStatus string

const (
	DueOverdue  DueStatus = "overdue"
	DueToday    DueStatus = "due_today"
	DueUpcoming DueStatus = "upcoming"
	DueNotYet   DueStatus = "not_due"
	DuePaid     DueStatus = "paid"
)

// ClassifyDueStatus classifies a bill by calendar day in today's location.
// Paid bills are always DuePaid. Every future due date is DueUpcoming; use
// ClassifyWithWindow to separate bills inside the notice window from the rest.
func ClassifyDueStatus(today, dueDate time.Time, status models.BillStatus) DueStatus {
	if status == models.BillStatusPaid {
		return DuePaid
	}
	switch d := DaysUntil(today, dueDate); {
	case d < 0:
		return DueOverdue
	case d == 0:
		return DueToday
	default:
		return DueUpcoming
	}
}

// ClassifyWithWindow is ClassifyDueStatus with future dates split by the
// notice window: DueUpcoming within noticeDays of today, DueNotYet beyond it.
func ClassifyWithWindow(today, dueDate time.Time, status models.BillStatus, noticeDays int) DueStatus {
	s := ClassifyDueStatus(today, dueDate, status)
	if s == DueUpcoming && DaysUntil(today, dueDate) > noticeDays {
		return DueNotYet
	}
	return s
}
