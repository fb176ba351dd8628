package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/notifyd/pkg/db"
	"github.com/angelmondragon/notifyd/pkg/db/models"
	"github.com/angelmondragon/notifyd/pkg/enums"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/migrate"
	"github.com/angelmondragon/notifyd/pkg/queue"
	"github.com/angelmondragon/notifyd/pkg/sendgrid"
	"github.com/angelmondragon/notifyd/pkg/twilio"
)

type fakeProvider struct {
	mu       sync.Mutex
	formatFn func(ctx context.Context, input string) (string, error)
	sendFn   func(ctx context.Context, msg twilio.Message) (*twilio.Delivery, error)
	lookups  []string
	sent     []twilio.Message
}

func (f *fakeProvider) FormatNumber(ctx context.Context, input string) (string, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, input)
	f.mu.Unlock()
	if f.formatFn != nil {
		return f.formatFn(ctx, input)
	}
	return input, nil
}

func (f *fakeProvider) SendMessage(ctx context.Context, msg twilio.Message) (*twilio.Delivery, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	n := len(f.sent)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	sid := fmt.Sprintf("SM%d", n)
	return &twilio.Delivery{
		Request:  map[string]any{"To": msg.To, "From": msg.From, "Body": msg.Body, "MediaUrl": msg.MediaURL},
		Response: map[string]any{"sid": sid, "status": "queued"},
		Sid:      sid,
		Status:   "queued",
	}, nil
}

type fakeTransport struct {
	sent []*sendgrid.Mail
	err  error
}

func (f *fakeTransport) Send(_ context.Context, m *sendgrid.Mail) (*sendgrid.Sent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, m)
	return &sendgrid.Sent{StatusCode: 202, MessageID: fmt.Sprintf("msg-%d", len(f.sent))}, nil
}

type fakeQueue struct {
	jobs []queue.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, lane, kind string, payload any, delay time.Duration) (*queue.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job := queue.Job{
		Version:    1,
		ID:         uuid.NewString(),
		Lane:       lane,
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: now,
		RunAt:      now.Add(delay),
	}
	f.jobs = append(f.jobs, job)
	return &job, nil
}

type testHost struct {
	id    string
	email string
	phone string
	notes Collection
}

func (h *testHost) NotifyableType() string     { return "User" }
func (h *testHost) NotifyableID() string       { return h.id }
func (h *testHost) NotifyEmail() string        { return h.email }
func (h *testHost) NotifyPhone() string        { return h.phone }
func (h *testHost) Notifications() *Collection { return &h.notes }

type queuedHost struct {
	testHost
	defaults map[enums.Channel]DeliveryDefaults
}

func (h *queuedHost) DeliveryDefaults(channel enums.Channel) DeliveryDefaults {
	return h.defaults[channel]
}

func newTestHost() *testHost {
	return &testHost{id: uuid.NewString(), email: "user@example.com", phone: "+15551230000"}
}

type harness struct {
	svc       *Service
	conn      *gorm.DB
	provider  *fakeProvider
	transport *fakeTransport
	queue     *fakeQueue
	settings  *Settings
}

func baseSettings() Settings {
	return Settings{
		SMSFrom:    "+15550000000",
		EmailFrom:  "noreply@example.com",
		BaseURL:    "https://notify.example.com",
		UpdatePath: "/notification/update",
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Run(context.Background(), sqlDB, "sqlite", "up"))
	return conn
}

func writeTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notification_mailer"), 0o755))
	body := "<h1>{{.subject}}</h1>{{with .user}}<p>{{.email}}</p>{{end}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notification_mailer", "notify.html"), []byte(body), 0o644))
	return dir
}

func newHarness(t *testing.T, settings Settings) *harness {
	t.Helper()

	h := &harness{
		conn:      openTestDB(t),
		provider:  &fakeProvider{},
		transport: &fakeTransport{},
		queue:     &fakeQueue{},
		settings:  &settings,
	}
	source := SettingsFunc(func() Settings { return *h.settings })
	mailers := NewMailers()
	NewTemplateMailer(writeTemplate(t), source).Register(mailers)

	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(h.conn),
		Tx:        db.Wrap(h.conn),
		Settings:  source,
		Provider:  h.provider,
		Transport: h.transport,
		Mailers:   mailers,
		Queue:     h.queue,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) save(t *testing.T, host Notifyable) error {
	t.Helper()
	return h.svc.Save(context.Background(), host, nil)
}

func (h *harness) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(model).Count(&n).Error)
	return n
}

func (h *harness) loadSMS(t *testing.T, id uuid.UUID) *SMSNotification {
	t.Helper()
	row, err := NewRepository(h.conn).FindSMS(context.Background(), id)
	require.NoError(t, err)
	return smsFromModel(row)
}

func (h *harness) loadEmail(t *testing.T, id uuid.UUID) *EmailNotification {
	t.Helper()
	var row models.EmailNotification
	require.NoError(t, h.conn.Where("id = ?", id).First(&row).Error)
	return emailFromModel(&row)
}
