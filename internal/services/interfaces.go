package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"billminder/internal/billing"
	"billminder/internal/models"
	"billminder/internal/pagination"
	"billminder/internal/report"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(name, email, password string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	UpdateNotificationSettings(userID string, settings NotificationSettings) (*models.User, error)
}

// NotificationSettings holds optional reminder preference changes. A nil
// field is left untouched; an empty NotificationEmail clears it.
type NotificationSettings struct {
	NotificationEmail      *string
	NotificationDaysBefore *int
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name, color, icon string) (*models.Category, error)
	GetUserCategories(userID string) ([]models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, upd CategoryUpdate) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
	CategoryColors(userID string) (map[string]string, error)
}

// CategoryUpdate holds optional category changes.
type CategoryUpdate struct {
	Name  *string
	Color *string
	Icon  *string
}

// BillFilter holds optional filter parameters for listing bills. From and To
// bound the due date inclusively.
type BillFilter struct {
	Status   *models.BillStatus
	Category *string
	From     *time.Time
	To       *time.Time
}

// BillUpdate holds optional bill changes. An empty Category clears it.
type BillUpdate struct {
	Name     *string
	Category *string
	Amount   *decimal.Decimal
	DueDate  *time.Time
}

// BillView is a bill with its due classification for the owner's notice window.
type BillView struct {
	models.Bill
	DueStatus billing.DueStatus `json:"due_status"`
}

// AttachmentKind selects the invoice or the payment proof of a bill.
type AttachmentKind string

const (
	AttachmentInvoice AttachmentKind = "invoice"
	AttachmentProof   AttachmentKind = "proof"
)

// Upload is a file received from or served to a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BillServicer defines the contract for bill-related business logic.
type BillServicer interface {
	CreateBill(userID string, req billing.BillRequest) (*models.Bill, error)
	CreateRecurringBills(userID string, tmpl billing.RecurrenceTemplate, start, end time.Time) ([]models.Bill, error)
	GetBillByID(userID, billID string) (*models.Bill, error)
	ListBills(userID string, filter BillFilter, page pagination.PageRequest) (*pagination.PageResponse[BillView], error)
	ListBillsForReport(userID string, filter BillFilter) ([]models.Bill, error)
	UpdateBill(userID, billID string, upd BillUpdate) (*models.Bill, error)
	UpdateStatus(userID, billID string, status models.BillStatus, paidAt *time.Time) (*models.Bill, error)
	UpdatePaymentInfo(userID, billID string, info string) (*models.Bill, error)
	AttachFile(ctx context.Context, userID, billID string, kind AttachmentKind, upload Upload) (*models.Bill, error)
	OpenAttachment(ctx context.Context, userID, billID string, kind AttachmentKind) (*Upload, error)
	DeleteBill(ctx context.Context, userID, billID string) error
	ListPendingBills(ctx context.Context) ([]models.Bill, error)
	ListPendingBillsDueBetween(ctx context.Context, from, to time.Time) ([]models.Bill, error)
}

// NotificationServicer is the append-only reminder ledger.
type NotificationServicer interface {
	FindByBill(ctx context.Context, billID string) ([]models.Notification, error)
	Record(ctx context.Context, n *models.Notification) error
	ListUserNotifications(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error)
}

// ReportRequest selects the bills and format of a monthly report. Category
// "todas" and Status "todos" mean no filter. Start and End, when both set,
// replace the calendar month as the due date range.
type ReportRequest struct {
	Year               int
	Month              time.Month
	Format             report.Format
	Category           string
	Status             string
	Start              *time.Time
	End                *time.Time
	IncludeAttachments *bool
}

// ReportServicer defines the contract for report generation.
type ReportServicer interface {
	MonthlyReport(ctx context.Context, userID string, req ReportRequest) (*report.File, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
