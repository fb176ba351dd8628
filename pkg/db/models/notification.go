package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is the aggregate row bound polymorphically to a host record.
type Notification struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primaryKey"`
	NotifyableType     string              `gorm:"column:notifyable_type;type:text;not null;index:idx_notifications_notifyable"`
	NotifyableID       string              `gorm:"column:notifyable_id;type:text;not null;index:idx_notifications_notifyable"`
	EmailNotifications []EmailNotification `gorm:"foreignKey:NotificationID"`
	SmsNotifications   []SmsNotification   `gorm:"foreignKey:NotificationID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
