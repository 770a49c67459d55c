package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"billminder/internal/models"
	"billminder/internal/storage"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []*Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	records []models.Notification
	findErr error
}

func (l *fakeLedger) FindByBill(_ context.Context, billID string) ([]models.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findErr != nil {
		return nil, l.findErr
	}
	var out []models.Notification
	for _, r := range l.records {
		if r.BillID != nil && *r.BillID == billID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *fakeLedger) Record(_ context.Context, n *models.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *n)
	return nil
}

type fakeStore struct {
	files map[string][]byte
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.files[key]
	return ok, nil
}

func (s *fakeStore) Read(_ context.Context, key string) ([]byte, error) {
	data, ok := s.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (s *fakeStore) Save(_ context.Context, key string, data []byte, _ string) error {
	s.files[key] = data
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.files, key)
	return nil
}

type fakeBills struct {
	bills []models.Bill
	err   error
}

func (b *fakeBills) ListPendingBills(_ context.Context) ([]models.Bill, error) {
	if b.err != nil {
		return nil, b.err
	}
	var out []models.Bill
	for _, bill := range b.bills {
		if bill.Status == models.BillStatusPending {
			out = append(out, bill)
		}
	}
	return out, nil
}

func (b *fakeBills) ListPendingBillsDueBetween(ctx context.Context, from, to time.Time) ([]models.Bill, error) {
	pending, err := b.ListPendingBills(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Bill
	for _, bill := range pending {
		if !bill.DueDate.Before(from) && !bill.DueDate.After(to) {
			out = append(out, bill)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

func strPtr(s string) *string { return &s }

func testOwner() *models.User {
	return &models.User{
		Base:                   models.Base{ID: "user-1"},
		Name:                   "Maria",
		Email:                  "maria@example.com",
		NotificationDaysBefore: 3,
	}
}

func testBill(id string, due time.Time) models.Bill {
	return models.Bill{
		Base:    models.Base{ID: id},
		UserID:  "user-1",
		Name:    "Conta de Luz",
		Amount:  decimal.RequireFromString("89.90"),
		DueDate: due,
		Status:  models.BillStatusPending,
		Owner:   testOwner(),
	}
}
