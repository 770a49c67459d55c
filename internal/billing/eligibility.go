package billing

import (
	"time"

	"billminder/internal/models"
)

// UrgentCooldown is the minimum gap between two reminders for a bill on its due day.
const UrgentCooldown = 3 * time.Hour

// RegularReminderDue reports whether the one-shot advance reminder should go
// out: the bill is pending, nothing was ever sent for it, and today lies in
// [due - noticeDays, due]. A non-positive noticeDays means the default window.
func RegularReminderDue(bill *models.Bill, noticeDays int, history []models.Notification, now time.Time) bool {
	if bill.Status != models.BillStatusPending || len(history) > 0 {
		return false
	}
	if noticeDays <= 0 {
		noticeDays = models.DefaultNotificationDaysBefore
	}
	d := DaysUntil(now, bill.DueDate)
	return d >= 0 && d <= noticeDays
}

// UrgentReminderDue reports whether a same-day reminder should go out: the
// bill is pending, due today, and the latest record for it is absent or at
// least UrgentCooldown old.
func UrgentReminderDue(bill *models.Bill, history []models.Notification, now time.Time) bool {
	if bill.Status != models.BillStatusPending || DaysUntil(now, bill.DueDate) != 0 {
		return false
	}
	latest, ok := LatestSentAt(history)
	if !ok {
		return true
	}
	return now.Sub(latest) >= UrgentCooldown
}

// LatestSentAt returns the most recent SentAt in history.
func LatestSentAt(history []models.Notification) (time.Time, bool) {
	var latest time.Time
	for _, n := range history {
		if n.SentAt.After(latest) {
			latest = n.SentAt
		}
	}
	return latest, !latest.IsZero()
}
