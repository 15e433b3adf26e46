package models

import "time"

// NotificationConfig is a named, reusable notification template.
// BodyTemplate carries {key} placeholders substituted at send time.
type NotificationConfig struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"uniqueIndex;not null"`
	Description      string    `json:"description,omitempty"`
	Subject          string    `json:"subject" gorm:"not null"`
	BodyTemplate     string    `json:"body_template" gorm:"type:text;not null"`
	EmailTemplate    string    `json:"email_template" gorm:"type:text"`
	NotificationType string    `json:"notification_type" gorm:"default:chat"` // chat, email, sms, push
	IsActive         bool      `json:"is_active" gorm:"default:true"`
	CreatedBy        uint      `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
