package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus is the payment state of a bill.
type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusPaid    BillStatus = "paid"
)

// Valid reports whether s is a known status.
func (s BillStatus) Valid() bool {
	return s == BillStatusPending || s == BillStatusPaid
}

// Bill is a single payable obligation with one due date.
//
// Status and PaidAt move together: a paid bill always carries PaidAt and a
// pending bill never does. Mutate them only through billing.SetStatus.
type Bill struct {
	Base
	UserID          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string          `gorm:"size:120;not null" json:"name"`
	Category        *string         `gorm:"size:120" json:"category"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	DueDate         time.Time       `gorm:"not null;index" json:"due_date"`
	Status          BillStatus      `gorm:"size:16;not null;default:pending;index" json:"status"`
	PaidAt          *time.Time      `json:"paid_at"`
	InvoiceFile     *string         `json:"invoice_file,omitempty"`
	InvoiceFilename *string         `json:"invoice_filename,omitempty"`
	ProofFile       *string         `json:"proof_file,omitempty"`
	ProofFilename   *string         `json:"proof_filename,omitempty"`
	PaymentInfo     *string         `gorm:"size:500" json:"payment_info"`

	Owner *User `gorm:"foreignKey:UserID" json:"-"`
}

// HasInvoice reports whether an invoice file is attached.
func (b *Bill) HasInvoice() bool { return b.InvoiceFile != nil && *b.InvoiceFile != "" }

// HasProof reports whether a payment proof is attached.
func (b *Bill) HasProof() bool { return b.ProofFile != nil && *b.ProofFile != "" }

// HasPaymentInfo reports whether payment instructions are stored.
func (b *Bill) HasPaymentInfo() bool { return b.PaymentInfo != nil && *b.PaymentInfo != "" }

// CategoryName returns the category or "" when unset.
func (b *Bill) CategoryName() string {
	if b.Category == nil {
		return ""
	}
	return *b.Category
}
