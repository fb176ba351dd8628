package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/notifyd/pkg/config"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

const (
	defaultHost  = "https://api.sendgrid.com"
	sendEndpoint = "/v3/mail/send"
)

var errAPIKeyRequired = errors.New("sendgrid api key is required")

type sendAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Client hands rendered mail to SendGrid's v3 mail send endpoint.
type Client struct {
	api  sendAPI
	logg *logger.Logger
}

// Mail is a rendered message ready for transport.
type Mail struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments map[string]string
}

// Sent is the transport result recorded in the audit log.
type Sent struct {
	StatusCode int
	MessageID  string
}

// Snapshot renders the transport result as an audit log entry.
func (s Sent) Snapshot(m *Mail) map[string]any {
	out := map[string]any{
		"status_code": s.StatusCode,
		"message_id":  s.MessageID,
	}
	if m != nil {
		out["to"] = m.To
		out["from"] = m.From
		out["subject"] = m.Subject
		names := make([]string, 0, len(m.Attachments))
		for name := range m.Attachments {
			names = append(names, name)
		}
		sort.Strings(names)
		out["attachments"] = names
	}
	return out
}

// NewClient builds the mail transport from config.
func NewClient(ctx context.Context, cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	client := sendgrid.NewSendClient(key)
	if host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/"); host != "" && host != defaultHost {
		client.BaseURL = host + sendEndpoint
	}
	if logg != nil {
		logg.Info(ctx, "sendgrid client initialized")
	}
	return &Client{api: client, logg: logg}, nil
}

// Send delivers m and returns the transport result.
func (c *Client) Send(ctx context.Context, m *Mail) (*Sent, error) {
	if c == nil || c.api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sendgrid client not configured")
	}
	if m == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mail is required")
	}

	message, err := buildMessage(m)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.SendWithContext(ctx, message)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid send failed")
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("sendgrid rejected mail with status %d", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": resp.Body})
	}

	sent := &Sent{StatusCode: resp.StatusCode}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		sent.MessageID = ids[0]
	}
	if c.logg != nil {
		c.logg.Debug(c.logg.WithField(ctx, "message_id", sent.MessageID), "sendgrid mail accepted")
	}
	return sent, nil
}

func buildMessage(m *Mail) (*mail.SGMailV3, error) {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail("", strings.TrimSpace(m.From)))
	message.Subject = m.Subject

	personalization := mail.NewPersonalization()
	for _, addr := range strings.Split(m.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			personalization.AddTos(mail.NewEmail("", addr))
		}
	}
	message.AddPersonalizations(personalization)

	if m.Text != "" {
		message.AddContent(mail.NewContent("text/plain", m.Text))
	}
	if m.HTML != "" || m.Text == "" {
		message.AddContent(mail.NewContent("text/html", m.HTML))
	}

	names := make([]string, 0, len(m.Attachments))
	for name := range m.Attachments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attachment, err := loadAttachment(name, m.Attachments[name])
		if err != nil {
			return nil, err
		}
		message.AddAttachment(attachment)
	}
	return message, nil
}

func loadAttachment(name, path string) (*mail.Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("attachment %s could not be read", name))
	}
	kind := mimetype.Detect(content)

	filename := name
	if filepath.Ext(filename) == "" {
		filename += kind.Extension()
	}

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(content))
	attachment.SetType(kind.String())
	attachment.SetFilename(filename)
	attachment.SetDisposition("attachment")
	return attachment, nil
}
