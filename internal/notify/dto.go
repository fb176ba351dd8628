package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/notifyd/pkg/db/models"
	dbtypes "github.com/angelmondragon/notifyd/pkg/db/types"
	"github.com/angelmondragon/notifyd/pkg/enums"
)

// NotificationDTO is the audit view of one notification.
type NotificationDTO struct {
	ID             uuid.UUID  `json:"id"`
	NotifyableType string     `json:"notifyable_type"`
	NotifyableID   string     `json:"notifyable_id"`
	Emails         []EmailDTO `json:"email_notifications"`
	SMS            []SMSDTO   `json:"sms_notifications"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type EmailDTO struct {
	ID           uuid.UUID          `json:"id"`
	To           string             `json:"to"`
	From         string             `json:"from"`
	Subject      string             `json:"subject"`
	TemplatePath string             `json:"template_path"`
	TemplateName string             `json:"template_name"`
	MailerClass  string             `json:"mailer_class"`
	MailerMethod string             `json:"mailer_method"`
	Request      []dbtypes.Snapshot `json:"request"`
	Response     []dbtypes.Snapshot `json:"response"`
	CreatedAt    time.Time          `json:"created_at"`
}

type SMSDTO struct {
	ID          uuid.UUID          `json:"id"`
	To          string             `json:"to"`
	From        string             `json:"from"`
	Message     string             `json:"message"`
	Attachments []string           `json:"attachments"`
	Status      *enums.SmsStatus   `json:"status"`
	Sid         *string            `json:"sid"`
	ErrorCode   *string            `json:"error_code"`
	Request     []dbtypes.Snapshot `json:"request"`
	Response    []dbtypes.Snapshot `json:"response"`
	CreatedAt   time.Time          `json:"created_at"`
}

func notificationDTOFromModel(m *models.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:             m.ID,
		NotifyableType: m.NotifyableType,
		NotifyableID:   m.NotifyableID,
		Emails:         make([]EmailDTO, 0, len(m.EmailNotifications)),
		SMS:            make([]SMSDTO, 0, len(m.SmsNotifications)),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	for i := range m.EmailNotifications {
		dto.Emails = append(dto.Emails, emailDTO(emailFromModel(&m.EmailNotifications[i])))
	}
	for i := range m.SmsNotifications {
		dto.SMS = append(dto.SMS, smsDTO(smsFromModel(&m.SmsNotifications[i])))
	}
	return dto
}

func emailDTO(e *EmailNotification) EmailDTO {
	return EmailDTO{
		ID:           e.ID,
		To:           e.To,
		From:         e.From,
		Subject:      e.Subject,
		TemplatePath: e.TemplatePath,
		TemplateName: e.TemplateName,
		MailerClass:  e.MailerClass,
		MailerMethod: e.MailerMethod,
		Request:      e.Request(),
		Response:     e.Response(),
		CreatedAt:    e.CreatedAt,
	}
}

func smsDTO(s *SMSNotification) SMSDTO {
	attachments := s.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return SMSDTO{
		ID:          s.ID,
		To:          s.To,
		From:        s.From,
		Message:     s.Message,
		Attachments: attachments,
		Status:      s.Status,
		Sid:         s.Sid,
		ErrorCode:   s.ErrorCode,
		Request:     s.Request(),
		Response:    s.Response(),
		CreatedAt:   s.CreatedAt,
	}
}
