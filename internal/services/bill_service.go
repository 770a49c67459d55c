package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"billminder/internal/billing"
	apperrors "billminder/internal/errors"
	"billminder/internal/logger"
	"billminder/internal/models"
	"billminder/internal/pagination"
	"billminder/internal/storage"
)

// Field limits for bills.
const (
	MaxBillNameLen     = 120
	MaxCategoryLen     = 120
	MaxPaymentInfoLen  = 500
	MaxRecurrenceMonth = 120
)

// DefaultMaxUploadBytes caps attachment size when none is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

type uploadType struct {
	contentType string
	sniffed     []string
}

// allowedUploads maps accepted extensions to the content type files are
// stored with and the types http.DetectContentType may report for them.
var allowedUploads = map[string]uploadType{
	".pdf":  {"application/pdf", []string{"application/pdf"}},
	".png":  {"image/png", []string{"image/png"}},
	".jpg":  {"image/jpeg", []string{"image/jpeg"}},
	".jpeg": {"image/jpeg", []string{"image/jpeg"}},
	".gif":  {"image/gif", []string{"image/gif"}},
	".txt":  {"text/plain", []string{"text/plain"}},
	".doc":  {"application/msword", []string{"application/octet-stream"}},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", []string{"application/zip", "application/octet-stream"}},
}

// billService handles bill-related business logic.
type billService struct {
	db        *gorm.DB
	store     storage.FileStore
	loc       *time.Location
	maxUpload int64
	now       func() time.Time
}

// NewBillService creates a new BillServicer. Due dates are normalized to
// midnight in loc and attachments are kept in store.
func NewBillService(db *gorm.DB, store storage.FileStore, loc *time.Location, maxUpload int64) BillServicer {
	if loc == nil {
		loc = time.UTC
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &billService{db: db, store: store, loc: loc, maxUpload: maxUpload, now: time.Now}
}

// CreateBill validates and stores a single bill.
func (s *billService) CreateBill(userID string, req billing.BillRequest) (*models.Bill, error) {
	bill, err := s.newBill(userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(bill).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return bill, nil
}

// CreateRecurringBills creates one bill per month from start to end. The
// template and range are validated before anything is written. Bills are
// inserted in order; when an insert fails the bills already created are
// returned along with the error.
func (s *billService) CreateRecurringBills(userID string, tmpl billing.RecurrenceTemplate, start, end time.Time) ([]models.Bill, error) {
	start = billing.StartOfDay(start.In(s.loc))
	end = billing.StartOfDay(end.In(s.loc))

	if billing.MonthSpan(start, end) > MaxRecurrenceMonth {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("recurrence spans more than %d months", MaxRecurrenceMonth))
	}

	reqs, err := billing.ExpandRecurrence(tmpl, start, end)
	if err != nil {
		return nil, err
	}

	bills := make([]models.Bill, 0, len(reqs))
	for _, req := range reqs {
		bill, err := s.newBill(userID, req)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *bill)
	}

	created := make([]models.Bill, 0, len(bills))
	for i := range bills {
		if err := s.db.Create(&bills[i]).Error; err != nil {
			return created, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		created = append(created, bills[i])
	}
	return created, nil
}

// GetBillByID retrieves a bill by ID for a specific user
func (s *billService) GetBillByID(userID, billID string) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.Where("id = ? AND user_id = ?", billID, userID).First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBillNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &bill, nil
}

// ListBills returns a page of the user's bills ordered by due date, each
// classified against the user's notice window.
func (s *billService) ListBills(userID string, filter BillFilter, page pagination.PageRequest) (*pagination.PageResponse[BillView], error) {
	page.Normalize()

	var owner models.User
	if err := s.db.Where("id = ?", userID).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var totalItems int64
	base := s.filtered(userID, filter)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var bills []models.Bill
	if err := s.filtered(userID, filter).
		Order("due_date ASC").Order("created_at ASC").
		Scopes(page.Scope()).
		Find(&bills).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	today := s.now().In(s.loc)
	views := make([]BillView, len(bills))
	for i, b := range bills {
		views[i] = BillView{
			Bill:      b,
			DueStatus: billing.ClassifyWithWindow(today, b.DueDate, b.Status, owner.NoticeDays()),
		}
	}

	result := pagination.NewPageResponse(views, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ListBillsForReport returns every bill matching filter, ordered by due date.
func (s *billService) ListBillsForReport(userID string, filter BillFilter) ([]models.Bill, error) {
	var bills []models.Bill
	if err := s.filtered(userID, filter).Order("due_date ASC").Order("created_at ASC").Find(&bills).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return bills, nil
}

func (s *billService) filtered(userID string, filter BillFilter) *gorm.DB {
	q := s.db.Model(&models.Bill{}).Where("user_id = ?", userID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		q = q.Where("category = ?", *filter.Category)
	}
	if filter.From != nil {
		q = q.Where("due_date >= ?", billing.StartOfDay(filter.From.In(s.loc)))
	}
	if filter.To != nil {
		q = q.Where("due_date <= ?", billing.EndOfDay(filter.To.In(s.loc)))
	}
	return q
}

// UpdateBill applies the provided fields. Status, files and payment info have
// their own operations.
func (s *billService) UpdateBill(userID, billID string, upd BillUpdate) (*models.Bill, error) {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if upd.Name != nil {
		name, err := cleanName(*upd.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if upd.Category != nil {
		category, err := cleanCategory(upd.Category)
		if err != nil {
			return nil, err
		}
		updates["category"] = category
	}
	if upd.Amount != nil {
		amount, err := cleanAmount(*upd.Amount)
		if err != nil {
			return nil, err
		}
		updates["amount"] = amount
	}
	if upd.DueDate != nil {
		updates["due_date"] = billing.StartOfDay(upd.DueDate.In(s.loc))
	}

	if len(updates) > 0 {
		if err := s.db.Model(bill).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetBillByID(userID, billID)
}

// UpdateStatus marks a bill paid or pending. paidAt records a payment made on
// an earlier day and is ignored for pending.
func (s *billService) UpdateStatus(userID, billID string, status models.BillStatus, paidAt *time.Time) (*models.Bill, error) {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return nil, err
	}

	if err := billing.SetStatus(bill, status, paidAt, s.now()); err != nil {
		return nil, err
	}

	if err := s.db.Model(bill).Select("status", "paid_at").Updates(map[string]interface{}{
		"status":  bill.Status,
		"paid_at": bill.PaidAt,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return bill, nil
}

// UpdatePaymentInfo stores PIX or other payment instructions verbatim. An
// empty value clears them.
func (s *billService) UpdatePaymentInfo(userID, billID string, info string) (*models.Bill, error) {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return nil, err
	}

	value, err := cleanPaymentInfo(&info)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(bill).Update("payment_info", value).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	bill.PaymentInfo = value
	return bill, nil
}

// AttachFile stores an invoice or payment proof and replaces the previous one.
func (s *billService) AttachFile(ctx context.Context, userID, billID string, kind AttachmentKind, upload Upload) (*models.Bill, error) {
	if int64(len(upload.Data)) > s.maxUpload {
		return nil, apperrors.ErrFileTooLarge
	}
	if len(upload.Data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is empty")
	}
	contentType, err := checkUpload(upload)
	if err != nil {
		return nil, err
	}

	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return nil, err
	}

	fileCol, nameCol, prefix, err := attachmentColumns(kind)
	if err != nil {
		return nil, err
	}
	previous := attachmentKey(bill, kind)

	key := storage.NewKey(prefix, upload.Filename)
	if err := s.store.Save(ctx, key, upload.Data, contentType); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	original := filepath.Base(upload.Filename)
	if err := s.db.Model(bill).Updates(map[string]interface{}{
		fileCol: key,
		nameCol: original,
	}).Error; err != nil {
		s.release(ctx, key)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if previous != "" {
		s.release(ctx, previous)
	}

	switch kind {
	case AttachmentInvoice:
		bill.InvoiceFile, bill.InvoiceFilename = &key, &original
	case AttachmentProof:
		bill.ProofFile, bill.ProofFilename = &key, &original
	}
	return bill, nil
}

// OpenAttachment reads an attached file with its original name.
func (s *billService) OpenAttachment(ctx context.Context, userID, billID string, kind AttachmentKind) (*Upload, error) {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := attachmentColumns(kind); err != nil {
		return nil, err
	}

	key := attachmentKey(bill, kind)
	if key == "" {
		return nil, apperrors.ErrAttachmentMissing
	}

	data, err := s.store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrAttachmentMissing
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	name := attachmentName(bill, kind)
	if name == "" {
		name = string(kind) + filepath.Ext(key)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(key)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Upload{Filename: name, ContentType: contentType, Data: data}, nil
}

// DeleteBill removes the bill and releases its attachment files.
func (s *billService) DeleteBill(ctx context.Context, userID, billID string) error {
	bill, err := s.GetBillByID(userID, billID)
	if err != nil {
		return err
	}

	if err := s.db.Where("id = ? AND user_id = ?", billID, userID).Delete(&models.Bill{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if bill.HasInvoice() {
		s.release(ctx, *bill.InvoiceFile)
	}
	if bill.HasProof() {
		s.release(ctx, *bill.ProofFile)
	}
	return nil
}

// ListPendingBills returns every pending bill with its owner loaded.
func (s *billService) ListPendingBills(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	if err := s.db.WithContext(ctx).
		Preload("Owner").
		Where("status = ?", models.BillStatusPending).
		Order("due_date ASC").
		Find(&bills).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return bills, nil
}

// ListPendingBillsDueBetween returns pending bills with from <= due_date <= to.
func (s *billService) ListPendingBillsDueBetween(ctx context.Context, from, to time.Time) ([]models.Bill, error) {
	var bills []models.Bill
	if err := s.db.WithContext(ctx).
		Preload("Owner").
		Where("status = ? AND due_date >= ? AND due_date <= ?", models.BillStatusPending, from.In(s.loc), to.In(s.loc)).
		Order("due_date ASC").
		Find(&bills).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return bills, nil
}

func (s *billService) newBill(userID string, req billing.BillRequest) (*models.Bill, error) {
	name, err := cleanName(req.Name)
	if err != nil {
		return nil, err
	}
	category, err := cleanCategory(req.Category)
	if err != nil {
		return nil, err
	}
	amount, err := cleanAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	info, err := cleanPaymentInfo(req.PaymentInfo)
	if err != nil {
		return nil, err
	}
	if req.DueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}

	return &models.Bill{
		UserID:      userID,
		Name:        name,
		Category:    category,
		Amount:      amount,
		DueDate:     billing.StartOfDay(req.DueDate.In(s.loc)),
		Status:      models.BillStatusPending,
		PaymentInfo: info,
	}, nil
}

// release deletes an attachment, logging failures. The bill row no longer
// points at the key, so a leftover file is harmless.
func (s *billService) release(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Get().Warnw("failed to delete attachment", "key", key, "error", err)
	}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "bill name is required")
	}
	if utf8.RuneCountInString(name) > MaxBillNameLen {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "bill name must be at most 120 characters")
	}
	return name, nil
}

func cleanCategory(category *string) (*string, error) {
	if category == nil {
		return nil, nil
	}
	c := strings.TrimSpace(*category)
	if c == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(c) > MaxCategoryLen {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category must be at most 120 characters")
	}
	return &c, nil
}

func cleanAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	return amount.Round(2), nil
}

// cleanPaymentInfo keeps the text exactly as typed; only blank input is
// turned into NULL.
func cleanPaymentInfo(info *string) (*string, error) {
	if info == nil || strings.TrimSpace(*info) == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(*info) > MaxPaymentInfoLen {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment info must be at most 500 characters")
	}
	v := *info
	return &v, nil
}

// checkUpload accepts images, PDF, Word and text files whose content matches
// their extension. It returns the content type to store the file with.
func checkUpload(u Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(u.Filename))
	allowed, ok := allowedUploads[ext]
	if !ok {
		return "", apperrors.ErrUnsupportedFileType
	}
	sniffed := http.DetectContentType(u.Data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	for _, ct := range allowed.sniffed {
		if sniffed == ct {
			return allowed.contentType, nil
		}
	}
	return "", apperrors.ErrUnsupportedFileType
}

func attachmentColumns(kind AttachmentKind) (fileCol, nameCol, prefix string, err error) {
	switch kind {
	case AttachmentInvoice:
		return "invoice_file", "invoice_filename", storage.PrefixInvoices, nil
	case AttachmentProof:
		return "proof_file", "proof_filename", storage.PrefixProofs, nil
	}
	return "", "", "", apperrors.WithMessage(apperrors.ErrInvalidInput, "attachment kind must be invoice or proof")
}

func attachmentKey(bill *models.Bill, kind AttachmentKind) string {
	switch kind {
	case AttachmentInvoice:
		if bill.HasInvoice() {
			return *bill.InvoiceFile
		}
	case AttachmentProof:
		if bill.HasProof() {
			return *bill.ProofFile
		}
	}
	return ""
}

func attachmentName(bill *models.Bill, kind AttachmentKind) string {
	var name *string
	switch kind {
	case AttachmentInvoice:
		name = bill.InvoiceFilename
	case AttachmentProof:
		name = bill.ProofFilename
	}
	if name == nil {
		return ""
	}
	return *name
}

// ParseAttachmentKind accepts invoice/boleto and proof/comprovante.
func ParseAttachmentKind(s string) (AttachmentKind, error) {
	switch strings.ToLower(s) {
	case "invoice", "boleto":
		return AttachmentInvoice, nil
	case "proof", "comprovante":
		return AttachmentProof, nil
	}
	return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "attachment kind must be invoice or proof")
}
