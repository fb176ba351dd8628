package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/notifyd/pkg/enums"
)

// SmsNotification persists one SMS delivery, its provider tracking fields and
// its audit trail.
type SmsNotification struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	NotificationID uuid.UUID        `gorm:"column:notification_id;type:uuid;not null;index"`
	To             *string          `gorm:"column:to;type:text"`
	From           *string          `gorm:"column:from;type:text"`
	Message        *string          `gorm:"column:message;type:text"`
	Status         *enums.SmsStatus `gorm:"column:status;type:text"`
	Sid            *string          `gorm:"column:sid;type:text;index"`
	ErrorCode      *string          `gorm:"column:error_code;type:text"`
	RequestJSON    *string          `gorm:"column:request_json;type:text"`
	ResponseJSON   *string          `gorm:"column:response_json;type:text"`
	Attachments    []SmsAttachment  `gorm:"foreignKey:SmsNotificationID"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (SmsNotification) TableName() string { return "notification_sms_notifications" }

func (s *SmsNotification) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SmsAttachment is one publicly fetchable media URL sent with an SMS.
type SmsAttachment struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	SmsNotificationID uuid.UUID `gorm:"column:sms_notification_id;type:uuid;not null;index"`
	Position          int       `gorm:"column:position;not null"`
	Attachment        string    `gorm:"column:attachment;type:text;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SmsAttachment) TableName() string { return "notification_sms_attachments" }

func (a *SmsAttachment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
