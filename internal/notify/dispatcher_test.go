package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "billminder/internal/errors"
	"billminder/internal/models"
)

func newTestDispatcher(mailer Mailer, store *fakeStore, ledger *fakeLedger) *Dispatcher {
	return NewDispatcher(mailer, store, ledger, NewComposer(time.UTC), zap.NewNop().Sugar())
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	due := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("records_on_success", func(t *testing.T) {
		mailer := &fakeMailer{}
		ledger := &fakeLedger{}
		d := newTestDispatcher(mailer, &fakeStore{files: map[string][]byte{}}, ledger)
		bill := testBill("b1", due)

		require.NoError(t, d.Dispatch(ctx, &bill, bill.Owner, true, at))

		require.Len(t, mailer.sent, 1)
		require.Len(t, ledger.records, 1)
		rec := ledger.records[0]
		assert.Equal(t, "user-1", rec.UserID)
		assert.Equal(t, "b1", *rec.BillID)
		assert.Equal(t, models.NotificationKindUrgent, rec.Kind)
		assert.Equal(t, models.NotificationChannelEmail, rec.Channel)
		assert.Equal(t, mailer.sent[0].Subject, rec.Message)
		assert.True(t, at.Equal(rec.SentAt))
	})

	t.Run("attaches_invoice", func(t *testing.T) {
		mailer := &fakeMailer{}
		store := &fakeStore{files: map[string][]byte{"boletos/x.pdf": []byte("%PDF-1.4")}}
		d := newTestDispatcher(mailer, store, &fakeLedger{})
		bill := testBill("b1", due)
		bill.InvoiceFile = strPtr("boletos/x.pdf")
		bill.InvoiceFilename = strPtr("boleto-junho.pdf")

		require.NoError(t, d.Dispatch(ctx, &bill, bill.Owner, false, at))

		require.Len(t, mailer.sent, 1)
		require.Len(t, mailer.sent[0].Attachments, 1)
		att := mailer.sent[0].Attachments[0]
		assert.Equal(t, "boleto-junho.pdf", att.Filename)
		assert.Equal(t, "%PDF-1.4", string(att.Data))
		assert.Contains(t, mailer.sent[0].HTML, "boleto está anexado")
	})

	t.Run("missing_invoice_still_sends", func(t *testing.T) {
		mailer := &fakeMailer{}
		ledger := &fakeLedger{}
		d := newTestDispatcher(mailer, &fakeStore{files: map[string][]byte{}}, ledger)
		bill := testBill("b1", due)
		bill.InvoiceFile = strPtr("boletos/gone.pdf")

		require.NoError(t, d.Dispatch(ctx, &bill, bill.Owner, false, at))

		require.Len(t, mailer.sent, 1)
		assert.Empty(t, mailer.sent[0].Attachments)
		assert.Len(t, ledger.records, 1)
	})

	t.Run("delivery_failure_not_recorded", func(t *testing.T) {
		ledger := &fakeLedger{}
		d := newTestDispatcher(&fakeMailer{err: errBoom}, &fakeStore{files: map[string][]byte{}}, ledger)
		bill := testBill("b1", due)

		err := d.Dispatch(ctx, &bill, bill.Owner, false, at)
		assert.ErrorIs(t, err, apperrors.ErrDeliveryFailure)
		assert.ErrorIs(t, err, errBoom)
		assert.Empty(t, ledger.records)
	})

	t.Run("no_destination", func(t *testing.T) {
		mailer := &fakeMailer{}
		d := newTestDispatcher(mailer, &fakeStore{files: map[string][]byte{}}, &fakeLedger{})
		bill := testBill("b1", due)
		owner := &models.User{Base: models.Base{ID: "user-1"}}

		err := d.Dispatch(ctx, &bill, owner, false, at)
		assert.ErrorIs(t, err, apperrors.ErrNoDestination)
		assert.Empty(t, mailer.sent)
	})

	t.Run("long_subject_truncated_in_record", func(t *testing.T) {
		ledger := &fakeLedger{}
		d := newTestDispatcher(&fakeMailer{}, &fakeStore{files: map[string][]byte{}}, ledger)
		bill := testBill("b1", due)
		bill.Name = strings.Repeat("á", 600)

		require.NoError(t, d.Dispatch(ctx, &bill, bill.Owner, false, at))
		assert.Equal(t, maxMessageLen, len([]rune(ledger.records[0].Message)))
	})
}
