package enums

import "fmt"

// SmsStatus mirrors the delivery states reported by the SMS provider.
type SmsStatus string

const (
	SmsStatusAccepted    SmsStatus = "accepted"
	SmsStatusQueued      SmsStatus = "queued"
	SmsStatusSending     SmsStatus = "sending"
	SmsStatusSent        SmsStatus = "sent"
	SmsStatusDelivered   SmsStatus = "delivered"
	SmsStatusReceived    SmsStatus = "received"
	SmsStatusFailed      SmsStatus = "failed"
	SmsStatusUndelivered SmsStatus = "undelivered"
	SmsStatusUnknown     SmsStatus = "unknown"
)

var validSmsStatuses = []SmsStatus{
	SmsStatusAccepted,
	SmsStatusQueued,
	SmsStatusSending,
	SmsStatusSent,
	SmsStatusDelivered,
	SmsStatusReceived,
	SmsStatusFailed,
	SmsStatusUndelivered,
	SmsStatusUnknown,
}

// IsValid checks whether the status is one of the provider states.
func (s SmsStatus) IsValid() bool {
	for _, candidate := range validSmsStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSmsStatus converts raw strings into SmsStatus.
func ParseSmsStatus(value string) (SmsStatus, error) {
	for _, candidate := range validSmsStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sms status %q", value)
}

// SmsStatusOrUnknown maps anything outside the enum to unknown.
func SmsStatusOrUnknown(value string) SmsStatus {
	status, err := ParseSmsStatus(value)
	if err != nil {
		return SmsStatusUnknown
	}
	return status
}
