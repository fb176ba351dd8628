package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/notifyd/internal/notify"
	"github.com/angelmondragon/notifyd/internal/users"
	"github.com/angelmondragon/notifyd/pkg/config"
	"github.com/angelmondragon/notifyd/pkg/enums"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubNotify struct {
	updates []notify.StatusUpdate
}

func (s *stubNotify) UpdateStatus(ctx context.Context, u notify.StatusUpdate) (*notify.SMSNotification, error) {
	s.updates = append(s.updates, u)
	status := enums.SmsStatusSent
	return &notify.SMSNotification{Status: &status}, nil
}

func (s *stubNotify) List(ctx context.Context, params notify.ListParams) (*notify.ListResult, error) {
	return &notify.ListResult{Items: []notify.NotificationDTO{}}, nil
}

type stubUsers struct{}

func (stubUsers) Register(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error) {
	return &users.UserDTO{Email: input.Email}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		Notify: config.NotifyConfig{
			BaseURL:    "https://notify.example.com",
			UpdatePath: "/hooks/sms/",
		},
	}
}

func newTestRouter(cfg *config.Config, svc *stubNotify) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewRouter(cfg, logger.Nop(), Dependencies{
		DB:       stubPinger{},
		Redis:    stubPinger{},
		Notify:   svc,
		Users:    stubUsers{},
		Metrics:  metrics.NewDeliveryMetrics(reg),
		Gatherer: reg,
	}), reg
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(testConfig(), &stubNotify{})
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestWebhookUsesConfiguredPath(t *testing.T) {
	svc := &stubNotify{}
	router, _ := newTestRouter(testConfig(), svc)

	form := url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"sent"}}
	req := httptest.NewRequest(http.MethodPost, "/hooks/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if len(svc.updates) != 1 || svc.updates[0].Sid != "SM1" {
		t.Fatalf("unexpected updates %+v", svc.updates)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, config.DefaultUpdatePath, nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("default path should not be mounted, got %d", resp.Code)
	}
}

func TestMetricsEndpointExposesWebhookCounter(t *testing.T) {
	router, _ := newTestRouter(testConfig(), &stubNotify{})

	form := url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"sent"}}
	req := httptest.NewRequest(http.MethodPost, "/hooks/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(httptest.NewRecorder(), req)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "notifyd_status_webhooks_total") {
		t.Fatalf("expected webhook counter in metrics output")
	}
}

func TestAPIRoutesMounted(t *testing.T) {
	router, _ := newTestRouter(testConfig(), &stubNotify{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?notifyable_type=User&notifyable_id=1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"email":"ada@example.com"}`)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
}
