package models

// DefaultNotificationDaysBefore is used when a user has no notice window stored.
const DefaultNotificationDaysBefore = 3

// User represents the user model in the database
type User struct {
	Base
	Name                   string     `gorm:"size:100;not null" json:"name"`
	Email                  string     `gorm:"uniqueIndex;not null" json:"email"`
	Password               string     `gorm:"not null" json:"-"`
	NotificationEmail      *string    `json:"notification_email,omitempty"`
	NotificationDaysBefore int        `gorm:"not null;default:3" json:"notification_days_before"`
	IsActive               bool       `gorm:"default:true" json:"is_active"`
	Bills                  []Bill     `gorm:"foreignKey:UserID" json:"bills,omitempty"`
	Categories             []Category `gorm:"foreignKey:UserID" json:"categories,omitempty"`
}

// NoticeDays returns the regular-reminder window in days, treating an unset
// value as the default.
func (u *User) NoticeDays() int {
	if u.NotificationDaysBefore <= 0 {
		return DefaultNotificationDaysBefore
	}
	return u.NotificationDaysBefore
}

// NotificationAddress returns the address reminders go to: the dedicated
// notification email when set, the login email otherwise. Empty when neither exists.
func (u *User) NotificationAddress() string {
	if u.NotificationEmail != nil && *u.NotificationEmail != "" {
		return *u.NotificationEmail
	}
	return u.Email
}
