package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"billminder/internal/billing"
	apperrors "billminder/internal/errors"
	"billminder/internal/models"
)

// BillSource loads the pending bills a sweep looks at. Bills are expected to
// carry their Owner.
type BillSource interface {
	ListPendingBills(ctx context.Context) ([]models.Bill, error)
	ListPendingBillsDueBetween(ctx context.Context, from, to time.Time) ([]models.Bill, error)
}

// Sweeper runs the regular and urgent reminder sweeps.
//
// A sweep is not safe to run concurrently with another sweep: two runs could
// both see an empty history for a bill and send twice. Callers serialize
// invocations, e.g. through scheduler.SerialRunner.
type Sweeper struct {
	bills      BillSource
	ledger     Ledger
	dispatcher *Dispatcher
	loc        *time.Location
	now        func() time.Time
	logger     *zap.SugaredLogger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// NewSweeper creates a Sweeper that evaluates days in loc.
func NewSweeper(bills BillSource, ledger Ledger, dispatcher *Dispatcher, loc *time.Location, logger *zap.SugaredLogger, opts ...SweeperOption) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	s := &Sweeper{
		bills:      bills,
		ledger:     ledger,
		dispatcher: dispatcher,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunRegular sends the advance reminder to every pending bill inside its
// owner's notice window that has never been reminded. Returns how many were sent.
func (s *Sweeper) RunRegular(ctx context.Context) (int, error) {
	return s.RunRegularAt(ctx, s.now())
}

// RunRegularAt is RunRegular evaluated at the given instant.
func (s *Sweeper) RunRegularAt(ctx context.Context, at time.Time) (int, error) {
	at = at.In(s.loc)
	bills, err := s.bills.ListPendingBills(ctx)
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, "regular", bills, at, regularEligible(at)), nil
}

// RunRegularForOwnerAt is RunRegularAt limited to the bills of one owner.
func (s *Sweeper) RunRegularForOwnerAt(ctx context.Context, userID string, at time.Time) (int, error) {
	at = at.In(s.loc)
	bills, err := s.bills.ListPendingBills(ctx)
	if err != nil {
		return 0, err
	}
	var owned []models.Bill
	for _, b := range bills {
		if b.UserID == userID {
			owned = append(owned, b)
		}
	}
	return s.sweep(ctx, "regular", owned, at, regularEligible(at)), nil
}

func regularEligible(at time.Time) func(*models.Bill, []models.Notification) bool {
	return func(bill *models.Bill, history []models.Notification) bool {
		return billing.RegularReminderDue(bill, bill.Owner.NoticeDays(), history, at)
	}
}

// RunUrgent sends a same-day reminder to every pending bill due today whose
// last reminder is at least billing.UrgentCooldown old. Returns how many were sent.
func (s *Sweeper) RunUrgent(ctx context.Context) (int, error) {
	return s.RunUrgentAt(ctx, s.now())
}

// RunUrgentAt is RunUrgent evaluated at the given instant.
func (s *Sweeper) RunUrgentAt(ctx context.Context, at time.Time) (int, error) {
	at = at.In(s.loc)
	bills, err := s.bills.ListPendingBillsDueBetween(ctx, billing.StartOfDay(at), billing.EndOfDay(at))
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, "urgent", bills, at, func(bill *models.Bill, history []models.Notification) bool {
		return billing.UrgentReminderDue(bill, history, at)
	}), nil
}

func (s *Sweeper) sweep(
	ctx context.Context,
	kind string,
	bills []models.Bill,
	at time.Time,
	eligible func(*models.Bill, []models.Notification) bool,
) int {
	urgent := kind == "urgent"
	sent := 0
	for i := range bills {
		if ctx.Err() != nil {
			s.logger.Warnw("sweep cancelled", "kind", kind, "sent", sent, "error", ctx.Err())
			break
		}

		bill := &bills[i]
		if bill.Owner == nil {
			s.logger.Warnw("bill has no owner, skipping", "kind", kind, "bill_id", bill.ID)
			continue
		}

		history, err := s.ledger.FindByBill(ctx, bill.ID)
		if err != nil {
			s.logger.Errorw("failed to load notification history", "kind", kind, "bill_id", bill.ID, "error", apperrors.Detail(err))
			continue
		}
		if !eligible(bill, history) {
			continue
		}

		if err := s.dispatcher.Dispatch(ctx, bill, bill.Owner, urgent, at); err != nil {
			s.logger.Errorw("failed to send reminder",
				"kind", kind,
				"bill_id", bill.ID,
				"user_id", bill.UserID,
				"code", apperrors.Code(err),
				"error", apperrors.Detail(err),
			)
			continue
		}
		sent++
	}

	s.logger.Infow("reminder sweep finished", "kind", kind, "candidates", len(bills), "sent", sent)
	return sent
}
