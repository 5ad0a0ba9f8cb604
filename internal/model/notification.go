package model

import "time"

// NotificationType is the severity class of a notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is a message created by the engine for a user. The engine
// only writes these rows; delivery and read-tracking belong to the
// notification consumer.
type Notification struct {
	ID        int64            `gorm:"primaryKey" json:"id"`
	UserID    int64            `gorm:"index;not null" json:"userId"`
	Title     string           `gorm:"size:128;not null" json:"title"`
	Message   string           `gorm:"size:512;not null" json:"message"`
	Type      NotificationType `gorm:"size:16;not null" json:"type"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `gorm:"not null" json:"createdAt"`
}
