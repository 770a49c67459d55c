package models

// Defaults applied when a category is created without color or icon.
const (
	DefaultCategoryColor = "#3b82f6"
	DefaultCategoryIcon  = "📁"
)

// Category is a user-scoped label for bills. Names are unique per user,
// compared case-insensitively.
type Category struct {
	Base
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string `gorm:"size:50;not null" json:"name"`
	Color  string `gorm:"size:7;not null" json:"color"`
	Icon   string `gorm:"size:16" json:"icon"`
}
