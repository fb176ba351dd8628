package notify

import (
	"context"
	"fmt"

	"github.com/angelmondragon/notifyd/pkg/assets"
	"github.com/angelmondragon/notifyd/pkg/config"
	"github.com/angelmondragon/notifyd/pkg/db"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/metrics"
	"github.com/angelmondragon/notifyd/pkg/queue"
	"github.com/angelmondragon/notifyd/pkg/sendgrid"
	"github.com/angelmondragon/notifyd/pkg/twilio"
)

// Clients are the process-level handles a Service is built on. Queue and
// Metrics may be nil.
type Clients struct {
	DB      *db.Client
	Queue   queue.Enqueuer
	Metrics *metrics.DeliveryMetrics
	Logger  *logger.Logger
}

// NewServiceFromConfig builds the provider clients, asset locator and default
// mailer from cfg and wires them into a Service.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config, c Clients) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if c.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}

	sms, err := twilio.NewClient(ctx, cfg.Twilio, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("twilio client: %w", err)
	}
	mail, err := sendgrid.NewClient(ctx, cfg.Sendgrid, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("sendgrid client: %w", err)
	}

	notifyCfg := cfg.Notify
	settings := SettingsFunc(func() Settings { return SettingsFromConfig(notifyCfg) })

	mailers := NewMailers()
	NewTemplateMailer(cfg.Assets.TemplatesDir, settings).Register(mailers)

	return NewService(ServiceParams{
		Repo:      NewRepository(c.DB.DB()),
		Tx:        c.DB,
		Settings:  settings,
		Provider:  sms,
		Transport: mail,
		Mailers:   mailers,
		Queue:     c.Queue,
		Assets:    assets.NewLocator(cfg.Assets),
		Metrics:   c.Metrics,
		Logger:    c.Logger,
	})
}
