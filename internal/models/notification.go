package models

import "time"

// NotificationKind distinguishes the reminder class that produced a record.
type NotificationKind string

const (
	NotificationKindRegular NotificationKind = "regular"
	NotificationKindUrgent  NotificationKind = "urgent"
)

// NotificationChannelEmail is the only delivery channel in use.
const NotificationChannelEmail = "email"

// Notification is an append-only record that a reminder was delivered.
// Reminder de-duplication reads these rows; nothing updates them.
type Notification struct {
	Base
	UserID  string           `gorm:"type:uuid;not null;index" json:"user_id"`
	BillID  *string          `gorm:"type:uuid;index" json:"bill_id,omitempty"`
	Channel string           `gorm:"size:16;not null" json:"channel"`
	Kind    NotificationKind `gorm:"size:16;not null" json:"kind"`
	Message string           `gorm:"size:500;not null" json:"message"`
	SentAt  time.Time        `gorm:"not null;index" json:"sent_at"`
}
