package services

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"billminder/internal/logger"
	"billminder/internal/models"
)

// auditService writes the append-only audit trail of user actions.
type auditService struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db, logger: logger.Named("audit")}
}

// Log records an audit event. Failures are logged and never returned.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		s.logger.Errorw("failed to write audit entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource", resourceType+"/"+resourceID,
		)
	}
}

func encodeChanges(changes map[string]any) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return "{}"
	}
	return string(data)
}
