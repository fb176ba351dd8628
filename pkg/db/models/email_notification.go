package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailNotification persists one email delivery and its audit trail.
type EmailNotification struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	NotificationID uuid.UUID `gorm:"column:notification_id;type:uuid;not null;index"`
	To             *string   `gorm:"column:to;type:text"`
	From           *string   `gorm:"column:from;type:text"`
	Subject        *string   `gorm:"column:subject;type:text"`
	TemplatePath   *string   `gorm:"column:template_path;type:text"`
	TemplateName   *string   `gorm:"column:template_name;type:text"`
	MailerClass    *string   `gorm:"column:mailer_class;type:text"`
	MailerMethod   *string   `gorm:"column:mailer_method;type:text"`
	RequestJSON    *string   `gorm:"column:request_json;type:text"`
	ResponseJSON   *string   `gorm:"column:response_json;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (EmailNotification) TableName() string { return "notification_email_notifications" }

func (e *EmailNotification) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
