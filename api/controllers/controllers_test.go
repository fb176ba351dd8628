package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/notifyd/internal/notify"
	"github.com/angelmondragon/notifyd/internal/users"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type testRegistrar struct {
	registerFn func(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error)
}

func (s *testRegistrar) Register(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, input)
	}
	return &users.UserDTO{ID: uuid.New(), Email: input.Email, Phone: input.Phone}, nil
}

type testLister struct {
	listFn func(ctx context.Context, params notify.ListParams) (*notify.ListResult, error)
}

func (s *testLister) List(ctx context.Context, params notify.ListParams) (*notify.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notify.ListResult{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive("dev")(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Header().Get(envHeader) != "dev" {
		t.Fatalf("missing env header")
	}
}

func TestHealthReady(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady("dev", testLogger(), stubPinger{}, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady("dev", testLogger(), stubPinger{}, stubPinger{err: errors.New("conn refused")})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when redis is down, got %d", rec.Code)
	}
}

func TestRegisterUserCreated(t *testing.T) {
	var got users.RegisterInput
	svc := &testRegistrar{registerFn: func(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error) {
		got = input
		return &users.UserDTO{ID: uuid.New(), Email: input.Email, Phone: input.Phone}, nil
	}}

	body := `{"email":"ada@example.com","phone":"+15551234567"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	RegisterUser(svc, testLogger())(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d (%s)", rec.Code, rec.Body.String())
	}
	if got.Email != "ada@example.com" || got.Phone != "+15551234567" {
		t.Fatalf("unexpected input %+v", got)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	cases := map[string]string{
		"missing email": `{"phone":"+15551234567"}`,
		"bad email":     `{"email":"nope"}`,
		"bad phone":     `{"email":"ada@example.com","phone":"555"}`,
		"unknown field": `{"email":"ada@example.com","nickname":"ada"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			called := false
			svc := &testRegistrar{registerFn: func(context.Context, users.RegisterInput) (*users.UserDTO, error) {
				called = true
				return nil, nil
			}}
			rec := httptest.NewRecorder()
			RegisterUser(svc, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if called {
				t.Fatal("service should not be called")
			}
		})
	}
}

func TestRegisterUserConflict(t *testing.T) {
	svc := &testRegistrar{registerFn: func(context.Context, users.RegisterInput) (*users.UserDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}}
	rec := httptest.NewRecorder()
	RegisterUser(svc, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"email":"ada@example.com"}`)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestListNotificationsPassesQuery(t *testing.T) {
	var got notify.ListParams
	svc := &testLister{listFn: func(ctx context.Context, params notify.ListParams) (*notify.ListResult, error) {
		got = params
		return &notify.ListResult{Items: []notify.NotificationDTO{}, Cursor: "next"}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?notifyable_type=User&notifyable_id=abc&limit=5&cursor=xyz", nil)
	rec := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got.NotifyableType != "User" || got.NotifyableID != "abc" || got.Limit != 5 || got.Cursor != "xyz" {
		t.Fatalf("unexpected params %+v", got)
	}

	var envelope struct {
		Data notify.ListResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Cursor != "next" {
		t.Fatalf("unexpected cursor %q", envelope.Data.Cursor)
	}
}

func TestListNotificationsRejectsBadLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	ListNotifications(&testLister{}, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
