package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/notifyd/pkg/db/types"
	"github.com/angelmondragon/notifyd/pkg/enums"
	"github.com/angelmondragon/notifyd/pkg/twilio"
)

// invalidPhoneMessage names the rejected input so the caller can correct it.
func invalidPhoneMessage(role, input string) string {
	return fmt.Sprintf("%s %q is not a valid phone number", role, input)
}

// SMSNotification is one text message, optionally split across several
// provider calls when it carries more than one media attachment.
type SMSNotification struct {
	ID             uuid.UUID
	NotificationID uuid.UUID
	To             string
	From           string
	Message        string
	Attachments    []string
	Status         *enums.SmsStatus
	Sid            *string
	ErrorCode      *string
	RequestJSON    *string
	ResponseJSON   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	override deliveryOverride
	deferred *deliveryPlan
}

// Request returns the audit log of wire payloads sent to the provider.
func (s *SMSNotification) Request() []dbtypes.Snapshot {
	return dbtypes.ParseStoredPayload(s.RequestJSON)
}

// Response returns the audit log of provider responses.
func (s *SMSNotification) Response() []dbtypes.Snapshot {
	return dbtypes.ParseStoredPayload(s.ResponseJSON)
}

type smsRecipient struct {
	To string `label:"recipient" validate:"notblank"`
}

type smsContent struct {
	From    string `label:"sender" validate:"notblank"`
	Message string `label:"message" validate:"notblank"`
}

// validate checks required fields and runs the recipient through the
// provider lookup. A blank recipient is not looked up.
func (s *SMSNotification) validate(ctx context.Context, env *environment) []string {
	out := validateFields(smsRecipient{To: s.To})
	if len(out) == 0 && !s.validPhone(ctx, env) {
		out = append(out, invalidPhoneMessage("recipient", s.To))
	}
	return append(out, validateFields(smsContent{From: s.From, Message: s.Message})...)
}

func (s *SMSNotification) validPhone(ctx context.Context, env *environment) bool {
	if env == nil || env.provider == nil {
		return true
	}
	if _, err := env.provider.FormatNumber(ctx, s.To); err != nil {
		logg := env.logger()
		ctx = logg.WithFields(ctx, map[string]any{"input": s.To, "channel": string(enums.ChannelSMS)})
		if errors.Is(err, twilio.ErrInvalidNumber) {
			logg.Warn(ctx, "phone number rejected by lookup")
		} else {
			logg.Error(ctx, "phone number lookup failed", err)
		}
		return false
	}
	return true
}

// SMSBuilder configures an SMS during composition.
type SMSBuilder struct {
	sms *SMSNotification
	env *environment
}

// Attach adds a media URL. Values not starting with "http" are treated as
// asset paths and rewritten to absolute URLs under the configured base URL.
func (b *SMSBuilder) Attach(url string) *SMSBuilder {
	url = strings.TrimSpace(url)
	if url == "" {
		return b
	}
	if !strings.HasPrefix(url, "http") {
		assetPath := url
		if b.env != nil && b.env.assets != nil {
			assetPath = b.env.assets.URL(url)
		}
		url = b.env.settings().AssetURL(assetPath)
	}
	b.sms.Attachments = append(b.sms.Attachments, url)
	return b
}

func (b *SMSBuilder) DeliverNow() *SMSBuilder {
	b.sms.override = deliveryOverride{mode: enums.DeliveryModeNow}
	return b
}

func (b *SMSBuilder) DeliverLater(opts DeliverLaterOptions) *SMSBuilder {
	b.sms.override = deliveryOverride{mode: enums.DeliveryModeLater, later: opts}
	return b
}

// SMS exposes the notification being built.
func (b *SMSBuilder) SMS() *SMSNotification {
	return b.sms
}
