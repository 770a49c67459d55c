package services

import (
	"context"

	"gorm.io/gorm"

	apperrors "billminder/internal/errors"
	"billminder/internal/models"
	"billminder/internal/pagination"
)

// notificationService is the gorm-backed reminder ledger.
type notificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB) NotificationServicer {
	return &notificationService{db: db}
}

// FindByBill returns every record for the bill, newest first.
func (s *notificationService) FindByBill(ctx context.Context, billID string) ([]models.Notification, error) {
	var records []models.Notification
	if err := s.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("sent_at DESC").
		Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return records, nil
}

// Record appends a delivery record.
func (s *notificationService) Record(ctx context.Context, n *models.Notification) error {
	if n.UserID == "" || n.SentAt.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "notification needs a user and a send time")
	}
	if n.Channel == "" {
		n.Channel = models.NotificationChannelEmail
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListUserNotifications returns a page of the user's records, newest first.
func (s *notificationService) ListUserNotifications(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
	page.Normalize()

	var totalItems int64
	base := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var records []models.Notification
	if err := s.db.Where("user_id = ?", userID).
		Order("sent_at DESC").
		Scopes(page.Scope()).
		Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(records, page.Page, page.PageSize, totalItems)
	return &result, nil
}
