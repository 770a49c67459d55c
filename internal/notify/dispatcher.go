package notify

import (
	"context"
	"errors"
	"mime"
	"path"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	apperrors "billminder/internal/errors"
	"billminder/internal/models"
	"billminder/internal/storage"
)

// maxMessageLen bounds the stored notification message.
const maxMessageLen = 500

// Ledger stores delivered-reminder records.
type Ledger interface {
	FindByBill(ctx context.Context, billID string) ([]models.Notification, error)
	Record(ctx context.Context, n *models.Notification) error
}

// Dispatcher composes, delivers and records a single reminder.
type Dispatcher struct {
	mailer   Mailer
	store    storage.FileStore
	ledger   Ledger
	composer *Composer
	logger   *zap.SugaredLogger
}

// NewDispatcher creates a Dispatcher. store may be nil when attachments are not in use.
func NewDispatcher(mailer Mailer, store storage.FileStore, ledger Ledger, composer *Composer, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		store:    store,
		ledger:   ledger,
		composer: composer,
		logger:   logger,
	}
}

// Dispatch sends the reminder for bill to its owner and, once delivery
// succeeds, appends a notification record stamped with at.
//
// A missing invoice file does not stop the send; the message goes out without
// it. A mailer failure is returned as ErrDeliveryFailure and nothing is
// recorded, so the next eligible sweep tries again.
func (d *Dispatcher) Dispatch(ctx context.Context, bill *models.Bill, owner *models.User, urgent bool, at time.Time) error {
	if owner == nil || owner.NotificationAddress() == "" {
		return apperrors.ErrNoDestination
	}

	msg, err := d.composer.Compose(bill, owner, urgent, at)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if bill.HasInvoice() {
		if att, ok := d.invoiceAttachment(ctx, bill); ok {
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		return apperrors.Wrap(apperrors.ErrDeliveryFailure, err)
	}

	kind := models.NotificationKindRegular
	if urgent {
		kind = models.NotificationKindUrgent
	}
	billID := bill.ID
	record := &models.Notification{
		UserID:  owner.ID,
		BillID:  &billID,
		Channel: models.NotificationChannelEmail,
		Kind:    kind,
		Message: truncate(msg.Subject, maxMessageLen),
		SentAt:  at,
	}
	if err := d.ledger.Record(ctx, record); err != nil {
		return err
	}

	d.logger.Infow("reminder sent",
		"bill_id", bill.ID,
		"user_id", owner.ID,
		"urgent", urgent,
		"attachments", len(msg.Attachments),
	)
	return nil
}

func (d *Dispatcher) invoiceAttachment(ctx context.Context, bill *models.Bill) (Attachment, bool) {
	if d.store == nil {
		return Attachment{}, false
	}
	data, err := d.store.Read(ctx, *bill.InvoiceFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = apperrors.Wrap(apperrors.ErrAttachmentMissing, err)
		}
		d.logger.Warnw("invoice attachment skipped",
			"bill_id", bill.ID,
			"file", *bill.InvoiceFile,
			"error", apperrors.Detail(err),
		)
		return Attachment{}, false
	}

	name := path.Base(*bill.InvoiceFile)
	if bill.InvoiceFilename != nil && *bill.InvoiceFilename != "" {
		name = *bill.InvoiceFilename
	}
	return Attachment{
		Filename:    name,
		ContentType: mime.TypeByExtension(path.Ext(*bill.InvoiceFile)),
		Data:        data,
	}, true
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
