package billing

import (
	"time"

	apperrors "billminder/internal/errors"
	"billminder/internal/models"
)

// SetStatus moves a bill to status, keeping PaidAt in step with it.
// Marking a bill paid records paidAt when given (the payment happened on an
// earlier date) and now otherwise. Marking it pending clears PaidAt.
func SetStatus(bill *models.Bill, status models.BillStatus, paidAt *time.Time, now time.Time) error {
	switch status {
	case models.BillStatusPaid:
		at := now
		if paidAt != nil {
			at = *paidAt
		}
		bill.Status = models.BillStatusPaid
		bill.PaidAt = &at
	case models.BillStatusPending:
		bill.Status = models.BillStatusPending
		bill.PaidAt = nil
	default:
		return apperrors.ErrInvalidStatus
	}
	return nil
}
