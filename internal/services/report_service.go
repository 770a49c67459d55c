package services

import (
	"context"
	"strings"
	"time"

	"billminder/internal/billing"
	apperrors "billminder/internal/errors"
	"billminder/internal/models"
	"billminder/internal/report"
)

// Filter values meaning "everything".
const (
	AllCategories = "todas"
	AllStatuses   = "todos"
)

// reportService loads the filtered bills and renders them.
type reportService struct {
	bills      BillServicer
	categories CategoryServicer
	generator  *report.Generator
	loc        *time.Location
}

// NewReportService creates a new ReportServicer.
func NewReportService(bills BillServicer, categories CategoryServicer, generator *report.Generator, loc *time.Location) ReportServicer {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{bills: bills, categories: categories, generator: generator, loc: loc}
}

// MonthlyReport renders the user's bills for the requested month or, when
// both Start and End are set, for that due date range.
func (s *reportService) MonthlyReport(ctx context.Context, userID string, req ReportRequest) (*report.File, error) {
	if req.Month < time.January || req.Month > time.December || req.Year < 1900 || req.Year > 9999 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid report period")
	}

	filter, err := s.filter(req)
	if err != nil {
		return nil, err
	}

	bills, err := s.bills.ListBillsForReport(userID, filter)
	if err != nil {
		return nil, err
	}

	colors, err := s.categories.CategoryColors(userID)
	if err != nil {
		return nil, err
	}

	return s.generator.Generate(ctx, bills, report.Options{
		Format:             req.Format,
		Year:               req.Year,
		Month:              req.Month,
		CategoryColors:     colors,
		IncludeAttachments: req.IncludeAttachments,
	})
}

func (s *reportService) filter(req ReportRequest) (BillFilter, error) {
	var filter BillFilter

	if req.Start != nil && req.End != nil {
		if req.End.Before(*req.Start) {
			return filter, apperrors.ErrInvalidRange
		}
		filter.From, filter.To = req.Start, req.End
	} else {
		first := time.Date(req.Year, req.Month, 1, 0, 0, 0, 0, s.loc)
		last := billing.EndOfDay(first.AddDate(0, 1, -1))
		filter.From, filter.To = &first, &last
	}

	if c := strings.TrimSpace(req.Category); c != "" && c != AllCategories {
		filter.Category = &c
	}

	if st := strings.TrimSpace(req.Status); st != "" && st != AllStatuses {
		status := models.BillStatus(st)
		if !status.Valid() {
			return filter, apperrors.ErrInvalidStatus
		}
		filter.Status = &status
	}

	return filter, nil
}
