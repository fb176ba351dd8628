package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/notifyd/api/controllers"
	webhookcontrollers "github.com/angelmondragon/notifyd/api/controllers/webhooks"
	"github.com/angelmondragon/notifyd/api/middleware"
	"github.com/angelmondragon/notifyd/internal/notify"
	"github.com/angelmondragon/notifyd/pkg/config"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/metrics"
	"github.com/angelmondragon/notifyd/pkg/twilio"
)

type notifyService interface {
	webhookcontrollers.StatusUpdater
	controllers.NotificationLister
}

// Dependencies groups everything the API routes need. Pingers and the
// metrics gatherer may be nil.
type Dependencies struct {
	DB        controllers.Pinger
	Redis     controllers.Pinger
	Notify    notifyService
	Users     controllers.UserRegistrar
	Signature *twilio.SignatureValidator
	Metrics   *metrics.DeliveryMetrics
	Gatherer  prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	updatePath := cfg.Notify.NormalizedUpdatePath()
	params := webhookcontrollers.TwilioStatusParams{
		Service:   deps.Notify,
		PublicURL: strings.TrimRight(cfg.Notify.BaseURL, "/") + updatePath,
		Logger:    logg,
	}
	if deps.Metrics != nil {
		params.Metrics = deps.Metrics
	}
	if cfg.Notify.VerifySignature && deps.Signature != nil {
		params.Validator = deps.Signature
	}
	r.Post(updatePath, webhookcontrollers.TwilioStatus(params))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
		r.Post("/users", controllers.RegisterUser(deps.Users, logg))
		r.Get("/notifications", controllers.ListNotifications(deps.Notify, logg))
	})

	return r
}

var _ notifyService = (*notify.Service)(nil)
