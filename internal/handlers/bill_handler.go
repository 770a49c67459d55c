package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"billminder/internal/billing"
	apperrors "billminder/internal/errors"
	"billminder/internal/logger"
	"billminder/internal/models"
	"billminder/internal/pagination"
	"billminder/internal/services"
)

// BillHandler handles bill-related requests.
type BillHandler struct {
	billService  services.BillServicer
	auditService services.AuditServicer
	loc          *time.Location
	maxUpload    int64
}

// NewBillHandler creates a new BillHandler. Dates without a time are read as
// calendar days in loc; uploads above maxUpload bytes are rejected.
func NewBillHandler(billService services.BillServicer, auditService services.AuditServicer, loc *time.Location, maxUpload int64) *BillHandler {
	if loc == nil {
		loc = time.UTC
	}
	if maxUpload <= 0 {
		maxUpload = services.DefaultMaxUploadBytes
	}
	return &BillHandler{billService: billService, auditService: auditService, loc: loc, maxUpload: maxUpload}
}

// CreateBillRequest represents the request payload for creating a bill.
// With start_date and end_date one bill is created per month in the range,
// each due on start_date's day of month, and due_date is ignored.
type CreateBillRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=120"`
	Category    *string         `json:"category" binding:"omitempty,max=120"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"due_date"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	PaymentInfo *string         `json:"payment_info" binding:"omitempty,max=500"`
}

// UpdateBillRequest represents the request payload for updating a bill.
type UpdateBillRequest struct {
	Name     *string          `json:"name" binding:"omitempty,min=1,max=120"`
	Category *string          `json:"category" binding:"omitempty,max=120"`
	Amount   *decimal.Decimal `json:"amount"`
	DueDate  *string          `json:"due_date"`
}

// UpdateStatusRequest represents the request payload for changing a bill's status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,bill_status"`
	PaidAt string `json:"paid_at"`
}

// UpdatePaymentInfoRequest represents the request payload for payment instructions.
type UpdatePaymentInfoRequest struct {
	PaymentInfo string `json:"payment_info" binding:"max=500"`
}

// ListBillsQuery holds the filters accepted by ListBills.
type ListBillsQuery struct {
	pagination.PageRequest
	Status   string `form:"status" binding:"omitempty,bill_status"`
	Category string `form:"category"`
	From     string `form:"from"`
	To       string `form:"to"`
}

// CreateBill creates a bill or a monthly series of bills
// @Summary     Create a bill
// @Description Create one bill, or one per month when start_date and end_date are given
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBillRequest true "Bill details"
// @Success     201 {object} object "Created bill or bills"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if req.StartDate != "" || req.EndDate != "" {
		h.createRecurring(c, userID, req)
		return
	}

	if req.DueDate == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "due_date is required"))
		return
	}
	due, err := parseDate(req.DueDate, "due_date", h.loc)
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.CreateBill(userID, billing.BillRequest{
		Name:        req.Name,
		Category:    req.Category,
		Amount:      req.Amount,
		DueDate:     due,
		PaymentInfo: req.PaymentInfo,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_BILL", "bill", bill.ID, c.ClientIP(),
		map[string]interface{}{"name": bill.Name, "amount": bill.Amount.StringFixed(2)})

	c.JSON(http.StatusCreated, gin.H{"bill": bill})
}

func (h *BillHandler) createRecurring(c *gin.Context, userID string, req CreateBillRequest) {
	if req.StartDate == "" || req.EndDate == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_date and end_date must be given together"))
		return
	}
	start, err := parseDate(req.StartDate, "start_date", h.loc)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDate(req.EndDate, "end_date", h.loc)
	if err != nil {
		respondWithError(c, err)
		return
	}

	bills, err := h.billService.CreateRecurringBills(userID, billing.RecurrenceTemplate{
		Name:        req.Name,
		Category:    req.Category,
		Amount:      req.Amount,
		PaymentInfo: req.PaymentInfo,
	}, start, end)
	if err != nil {
		if len(bills) > 0 {
			respondWithPartial(c, bills, err)
			return
		}
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_RECURRING_BILLS", "bill", bills[0].ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "count": len(bills)})

	c.JSON(http.StatusCreated, gin.H{"bills": bills, "count": len(bills)})
}

// respondWithPartial reports a series that stopped part way: the bills
// already stored are returned next to the error.
func respondWithPartial(c *gin.Context, bills []models.Bill, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ErrInternalServer
	}
	logger.Get().Errorw("recurring bills stopped part way",
		"created", len(bills),
		"error", apperrors.Detail(err),
		"path", c.Request.URL.Path,
	)
	c.JSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
		"bills": bills,
		"count": len(bills),
	})
}

// ListBills returns the user's bills with their due status
// @Summary     List bills
// @Tags        bills
// @Produce     json
// @Security    BearerAuth
// @Param       status    query string false "pending or paid"
// @Param       category  query string false "Category name"
// @Param       from      query string false "Due on or after (YYYY-MM-DD)"
// @Param       to        query string false "Due on or before (YYYY-MM-DD)"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Page size (max 100)"
// @Success     200 {object} object "Paginated bills"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /bills [get]
func (h *BillHandler) ListBills(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q ListBillsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.BillFilter
	if q.Status != "" {
		status := models.BillStatus(q.Status)
		filter.Status = &status
	}
	if q.Category != "" {
		filter.Category = &q.Category
	}
	if filter.From, err = parseOptionalDate(q.From, "from", h.loc); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.To, err = parseOptionalDate(q.To, "to", h.loc); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.billService.ListBills(userID, filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBill returns one bill
// @Summary     Get bill by ID
// @Tags        bills
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} models.Bill "Bill details"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Router      /bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.GetBillByID(userID, billID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// UpdateBill updates a bill's details
// @Summary     Update bill
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Bill ID"
// @Param       request body UpdateBillRequest true "Fields to change"
// @Success     200 {object} models.Bill "Updated bill"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Router      /bills/{id} [put]
func (h *BillHandler) UpdateBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	upd := services.BillUpdate{Name: req.Name, Category: req.Category, Amount: req.Amount}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate, "due_date", h.loc)
		if err != nil {
			respondWithError(c, err)
			return
		}
		upd.DueDate = &due
	}

	bill, err := h.billService.UpdateBill(userID, billID, upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_BILL", "bill", billID, c.ClientIP(),
		map[string]interface{}{"name": bill.Name, "amount": bill.Amount.StringFixed(2)})

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// UpdateStatus marks a bill paid or pending
// @Summary     Change bill status
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Bill ID"
// @Param       request body UpdateStatusRequest true "New status"
// @Success     200 {object} models.Bill "Updated bill"
// @Failure     400 {object} ErrorResponse "Invalid status"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Router      /bills/{id}/status [patch]
func (h *BillHandler) UpdateStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	paidAt, err := parseOptionalDate(req.PaidAt, "paid_at", h.loc)
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.UpdateStatus(userID, billID, models.BillStatus(req.Status), paidAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_BILL_STATUS", "bill", billID, c.ClientIP(),
		map[string]interface{}{"status": bill.Status})

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// UpdatePaymentInfo stores PIX or other payment instructions
// @Summary     Set payment info
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Bill ID"
// @Param       request body UpdatePaymentInfoRequest true "Payment instructions; empty clears"
// @Success     200 {object} models.Bill "Updated bill"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Router      /bills/{id}/payment-info [patch]
func (h *BillHandler) UpdatePaymentInfo(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePaymentInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	bill, err := h.billService.UpdatePaymentInfo(userID, billID, req.PaymentInfo)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_PAYMENT_INFO", "bill", billID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// UploadInvoice attaches the invoice (boleto) file
// @Summary     Upload invoice
// @Tags        bills
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     string true "Bill ID"
// @Param       file formData file   true "Invoice file"
// @Success     200 {object} models.Bill "Updated bill"
// @Failure     400 {object} ErrorResponse "Unsupported file"
// @Failure     413 {object} ErrorResponse "File too large"
// @Router      /bills/{id}/invoice [post]
func (h *BillHandler) UploadInvoice(c *gin.Context) {
	h.upload(c, services.AttachmentInvoice)
}

// UploadProof attaches the payment proof (comprovante) file
// @Summary     Upload payment proof
// @Tags        bills
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     string true "Bill ID"
// @Param       file formData file   true "Proof file"
// @Success     200 {object} models.Bill "Updated bill"
// @Failure     400 {object} ErrorResponse "Unsupported file"
// @Failure     413 {object} ErrorResponse "File too large"
// @Router      /bills/{id}/proof [post]
func (h *BillHandler) UploadProof(c *gin.Context) {
	h.upload(c, services.AttachmentProof)
}

func (h *BillHandler) upload(c *gin.Context, kind services.AttachmentKind) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}
	if header.Size > h.maxUpload {
		respondWithError(c, apperrors.ErrFileTooLarge)
		return
	}

	f, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	bill, err := h.billService.AttachFile(c.Request.Context(), userID, billID, kind, services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ATTACH_FILE", "bill", billID, c.ClientIP(),
		map[string]interface{}{"kind": kind, "filename": header.Filename})

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// DownloadFile serves an attached invoice or proof
// @Summary     Download attachment
// @Tags        bills
// @Produce     octet-stream
// @Security    BearerAuth
// @Param       id   path string true "Bill ID"
// @Param       kind path string true "invoice (boleto) or proof (comprovante)"
// @Success     200 {file} file "Attachment"
// @Failure     404 {object} ErrorResponse "Attachment not found"
// @Router      /bills/{id}/files/{kind} [get]
func (h *BillHandler) DownloadFile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	kind, err := services.ParseAttachmentKind(c.Param("kind"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	file, err := h.billService.OpenAttachment(c.Request.Context(), userID, billID, kind)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sendFile(c, http.StatusOK, file.Filename, file.ContentType, file.Data)
}

// DeleteBill removes a bill and its attachments
// @Summary     Delete bill
// @Tags        bills
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} object "Bill deleted"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Router      /bills/{id} [delete]
func (h *BillHandler) DeleteBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.billService.DeleteBill(c.Request.Context(), userID, billID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_BILL", "bill", billID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}
