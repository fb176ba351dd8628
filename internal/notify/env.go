package notify

import (
	"context"

	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/sendgrid"
	"github.com/angelmondragon/notifyd/pkg/twilio"
)

// SMSProvider formats phone numbers and sends messages.
type SMSProvider interface {
	FormatNumber(ctx context.Context, input string) (string, error)
	SendMessage(ctx context.Context, msg twilio.Message) (*twilio.Delivery, error)
}

// MailTransport hands a rendered mail to the outside world.
type MailTransport interface {
	Send(ctx context.Context, m *sendgrid.Mail) (*sendgrid.Sent, error)
}

// AssetLocator resolves logical asset names.
type AssetLocator interface {
	Find(name string) (string, error)
	URL(name string) string
}

// environment is shared by every notification a Service builds.
type environment struct {
	source   SettingsSource
	assets   AssetLocator
	provider SMSProvider
	logg     *logger.Logger
}

func (e *environment) settings() Settings {
	if e == nil || e.source == nil {
		return Settings{}
	}
	return e.source.NotifySettings()
}

func (e *environment) logger() *logger.Logger {
	if e == nil || e.logg == nil {
		return logger.Nop()
	}
	return e.logg
}
