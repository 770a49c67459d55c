package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "billminder/internal/errors"
	"billminder/internal/logger"
	"billminder/internal/pagination"
	"billminder/internal/scheduler"
	"billminder/internal/services"
)

// UserHandler handles reminder settings and the reminder history.
type UserHandler struct {
	userService         services.UserServicer
	notificationService services.NotificationServicer
	auditService        services.AuditServicer
	sweeps              scheduler.OwnerSweepRunner
	now                 func() time.Time
}

// NewUserHandler creates a new UserHandler. sweeps runs the manual reminder test.
func NewUserHandler(userService services.UserServicer, notificationService services.NotificationServicer, auditService services.AuditServicer, sweeps scheduler.OwnerSweepRunner) *UserHandler {
	return &UserHandler{
		userService:         userService,
		notificationService: notificationService,
		auditService:        auditService,
		sweeps:              sweeps,
		now:                 time.Now,
	}
}

// NotificationSettingsRequest represents the request payload for reminder settings.
// An empty notification_email falls back to the login email.
type NotificationSettingsRequest struct {
	NotificationEmail      *string `json:"notification_email" binding:"omitempty,max=255"`
	NotificationDaysBefore *int    `json:"notification_days_before" binding:"omitempty,min=1,max=30"`
}

// UpdateNotificationSettings changes where and how early reminders are sent.
// @Summary     Update reminder settings
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body NotificationSettingsRequest true "Reminder settings"
// @Success     200 {object} UserResponse "Updated profile"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/notification-settings [put]
func (h *UserHandler) UpdateNotificationSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req NotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.UpdateNotificationSettings(userID, services.NotificationSettings{
		NotificationEmail:      req.NotificationEmail,
		NotificationDaysBefore: req.NotificationDaysBefore,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_NOTIFICATION_SETTINGS", "user", userID, c.ClientIP(),
		map[string]interface{}{"notification_days_before": user.NotificationDaysBefore})

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// ListNotifications returns the reminders sent to the user, newest first.
// @Summary     List sent reminders
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} object "Paginated reminders"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/notifications [get]
func (h *UserHandler) ListNotifications(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.notificationService.ListUserNotifications(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// TestNotifications runs the regular reminder sweep over the caller's bills.
// @Summary     Run my reminder sweep now
// @Description Sends the advance reminder for each of the caller's bills that is due for one
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} object "Number of reminders sent"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /notifications/test [post]
func (h *UserHandler) TestNotifications(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sent, err := h.sweeps.RunRegularForOwnerAt(c.Request.Context(), userID, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Get().Infow("manual reminder sweep", "user_id", userID, "sent", sent)
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
