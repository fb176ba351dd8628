package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/sendgrid"
)

// MailerFunc builds a mail from positional JSON arguments. Arguments arrive
// JSON encoded on both the inline and the queued path so a mailer sees the
// same shapes either way.
type MailerFunc func(ctx context.Context, args []json.RawMessage) (*sendgrid.Mail, error)

// Mailers maps mailer names and their methods to implementations.
type Mailers struct {
	mtx     sync.RWMutex
	entries map[string]map[string]MailerFunc
}

func NewMailers() *Mailers {
	return &Mailers{entries: make(map[string]map[string]MailerFunc)}
}

func (m *Mailers) Register(mailer, method string, fn MailerFunc) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	methods, ok := m.entries[mailer]
	if !ok {
		methods = make(map[string]MailerFunc)
		m.entries[mailer] = methods
	}
	methods[method] = fn
}

// Invoke calls mailer.method with args.
func (m *Mailers) Invoke(ctx context.Context, mailer, method string, args []json.RawMessage) (*sendgrid.Mail, error) {
	m.mtx.RLock()
	fn, ok := m.entries[mailer][method]
	m.mtx.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("mailer %s has no method %s", mailer, method))
	}
	mail, err := fn(ctx, args)
	if err != nil {
		return nil, err
	}
	if mail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("mailer %s.%s returned no mail", mailer, method))
	}
	return mail, nil
}

// TemplateMailer is the default mailer. It renders
// <dir>/<template_path>/<template_name> with the vars argument as data.
type TemplateMailer struct {
	dir      string
	settings SettingsSource
}

func NewTemplateMailer(dir string, settings SettingsSource) *TemplateMailer {
	return &TemplateMailer{dir: dir, settings: settings}
}

// Register installs the mailer under the default name and method.
func (t *TemplateMailer) Register(m *Mailers) {
	m.Register(DefaultMailerName, DefaultMailerMethod, t.Notify)
}

type mailHeaders struct {
	To           string `json:"to"`
	From         string `json:"from"`
	Subject      string `json:"subject"`
	TemplatePath string `json:"template_path"`
	TemplateName string `json:"template_name"`
}

// Notify expects (headers, vars, attachments); vars and attachments are
// optional.
func (t *TemplateMailer) Notify(ctx context.Context, args []json.RawMessage) (*sendgrid.Mail, error) {
	if len(args) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mail headers argument required")
	}

	var headers mailHeaders
	if err := json.Unmarshal(args[0], &headers); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode mail headers")
	}
	vars := map[string]any{}
	if len(args) > 1 && !isNull(args[1]) {
		if err := json.Unmarshal(args[1], &vars); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode mail vars")
		}
	}
	attachments := map[string]string{}
	if len(args) > 2 && !isNull(args[2]) {
		if err := json.Unmarshal(args[2], &attachments); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode mail attachments")
		}
	}

	settings := Settings{}
	if t.settings != nil {
		settings = t.settings.NotifySettings()
	}
	if headers.From == "" {
		headers.From = settings.EmailFrom
	}
	if headers.TemplateName == "" {
		dir, name := filepath.Split(settings.template())
		headers.TemplatePath, headers.TemplateName = strings.TrimRight(dir, "/"), name
	}

	body, err := t.render(headers.TemplatePath, headers.TemplateName, vars)
	if err != nil {
		return nil, err
	}
	return &sendgrid.Mail{
		From:        headers.From,
		To:          headers.To,
		Subject:     headers.Subject,
		HTML:        body,
		Attachments: attachments,
	}, nil
}

func (t *TemplateMailer) render(dir, name string, vars map[string]any) (string, error) {
	file := filepath.Join(t.dir, filepath.FromSlash(dir), name)
	tmpl, err := template.New(name).Option("missingkey=zero").ParseFiles(file)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("load template %s", filepath.ToSlash(filepath.Join(dir, name))))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render template")
	}
	return buf.String(), nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
