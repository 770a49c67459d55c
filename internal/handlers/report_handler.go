package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "billminder/internal/errors"
	"billminder/internal/report"
	"billminder/internal/services"
)

// DefaultReportTimeout bounds report generation when none is configured.
const DefaultReportTimeout = 60 * time.Second

// ReportHandler serves monthly bill reports.
type ReportHandler struct {
	reportService services.ReportServicer
	auditService  services.AuditServicer
	loc           *time.Location
	timeout       time.Duration
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer, auditService services.AuditServicer, loc *time.Location, timeout time.Duration) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	return &ReportHandler{reportService: reportService, auditService: auditService, loc: loc, timeout: timeout}
}

// ReportQuery holds the optional report filters.
type ReportQuery struct {
	Category    string `form:"category"`
	Status      string `form:"status"`
	StartDate   string `form:"start_date"`
	EndDate     string `form:"end_date"`
	Attachments string `form:"attachments"`
}

// MonthlyReport renders the month's bills as PDF, XLSX, CSV or a ZIP bundle
// @Summary     Monthly report
// @Description Bills due in the month, or between start_date and end_date when both are given
// @Tags        reports
// @Produce     octet-stream
// @Security    BearerAuth
// @Param       year        path  int    true  "Year"
// @Param       month       path  int    true  "Month (1-12)"
// @Param       format      path  string true  "pdf, xlsx, csv or zip"
// @Param       category    query string false "Category name or todas"
// @Param       status      query string false "pending, paid or todos"
// @Param       start_date  query string false "Range start (YYYY-MM-DD)"
// @Param       end_date    query string false "Range end (YYYY-MM-DD)"
// @Param       attachments query bool   false "Include attachments in the ZIP (default true)"
// @Success     200 {file} file "Report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Render failure"
// @Router      /reports/monthly/{year}/{month}/{format} [get]
func (h *ReportHandler) MonthlyReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year"))
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month"))
		return
	}
	format, err := report.ParseFormat(c.Param("format"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	req := services.ReportRequest{
		Year:     year,
		Month:    time.Month(month),
		Format:   format,
		Category: q.Category,
		Status:   q.Status,
	}
	if req.Start, err = parseOptionalDate(q.StartDate, "start_date", h.loc); err != nil {
		respondWithError(c, err)
		return
	}
	if req.End, err = parseOptionalDate(q.EndDate, "end_date", h.loc); err != nil {
		respondWithError(c, err)
		return
	}
	if q.Attachments != "" {
		include, err := strconv.ParseBool(q.Attachments)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "attachments must be true or false"))
			return
		}
		req.IncludeAttachments = &include
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	file, err := h.reportService.MonthlyReport(ctx, userID, req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "EXPORT_REPORT", "report", file.Filename, c.ClientIP(),
		map[string]interface{}{"format": format, "category": q.Category, "status": q.Status})

	sendFile(c, http.StatusOK, file.Filename, file.ContentType, file.Data)
}
