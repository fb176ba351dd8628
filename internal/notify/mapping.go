package notify

import (
	"github.com/angelmondragon/notifyd/pkg/db/models"
)

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (n *Notification) toModel() *models.Notification {
	return &models.Notification{
		ID:             n.ID,
		NotifyableType: n.NotifyableType,
		NotifyableID:   n.NotifyableID,
	}
}

func (e *EmailNotification) toModel() *models.EmailNotification {
	return &models.EmailNotification{
		ID:             e.ID,
		NotificationID: e.NotificationID,
		To:             stringPtr(e.To),
		From:           stringPtr(e.From),
		Subject:        stringPtr(e.Subject),
		TemplatePath:   stringPtr(e.TemplatePath),
		TemplateName:   stringPtr(e.TemplateName),
		MailerClass:    stringPtr(e.MailerClass),
		MailerMethod:   stringPtr(e.MailerMethod),
		RequestJSON:    e.RequestJSON,
		ResponseJSON:   e.ResponseJSON,
	}
}

func emailFromModel(m *models.EmailNotification) *EmailNotification {
	return &EmailNotification{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		To:             stringValue(m.To),
		From:           stringValue(m.From),
		Subject:        stringValue(m.Subject),
		TemplatePath:   stringValue(m.TemplatePath),
		TemplateName:   stringValue(m.TemplateName),
		MailerClass:    stringValue(m.MailerClass),
		MailerMethod:   stringValue(m.MailerMethod),
		Vars:           map[string]any{},
		Attachments:    map[string]string{},
		RequestJSON:    m.RequestJSON,
		ResponseJSON:   m.ResponseJSON,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (s *SMSNotification) toModel() *models.SmsNotification {
	row := &models.SmsNotification{
		ID:             s.ID,
		NotificationID: s.NotificationID,
		To:             stringPtr(s.To),
		From:           stringPtr(s.From),
		Message:        stringPtr(s.Message),
		Status:         s.Status,
		Sid:            s.Sid,
		ErrorCode:      s.ErrorCode,
		RequestJSON:    s.RequestJSON,
		ResponseJSON:   s.ResponseJSON,
	}
	for i, url := range s.Attachments {
		row.Attachments = append(row.Attachments, models.SmsAttachment{
			SmsNotificationID: s.ID,
			Position:          i,
			Attachment:        url,
		})
	}
	return row
}

func smsFromModel(m *models.SmsNotification) *SMSNotification {
	sms := &SMSNotification{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		To:             stringValue(m.To),
		From:           stringValue(m.From),
		Message:        stringValue(m.Message),
		Status:         m.Status,
		Sid:            m.Sid,
		ErrorCode:      m.ErrorCode,
		RequestJSON:    m.RequestJSON,
		ResponseJSON:   m.ResponseJSON,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	for _, a := range m.Attachments {
		sms.Attachments = append(sms.Attachments, a.Attachment)
	}
	return sms
}

// smsDeliveryUpdates are the columns written after a delivery attempt.
func (s *SMSNotification) deliveryUpdates() map[string]any {
	return map[string]any{
		"request_json":  s.RequestJSON,
		"response_json": s.ResponseJSON,
		"sid":           s.Sid,
		"status":        s.Status,
	}
}

func (e *EmailNotification) auditUpdates() map[string]any {
	return map[string]any{
		"request_json":  e.RequestJSON,
		"response_json": e.ResponseJSON,
	}
}
