package notify

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/notifyd/pkg/db/types"
	"github.com/angelmondragon/notifyd/pkg/enums"
)

const (
	DefaultMailerName   = "NotificationMailer"
	DefaultMailerMethod = "notify"
	DefaultTemplate     = "notification_mailer/notify.html"
)

// EmailNotification is one email addressed through a mailer. Vars and
// Attachments are transient and only travel with the delivery.
type EmailNotification struct {
	ID             uuid.UUID
	NotificationID uuid.UUID
	To             string
	From           string
	Subject        string
	TemplatePath   string
	TemplateName   string
	MailerClass    string
	MailerMethod   string
	Vars           map[string]any
	Attachments    map[string]string
	RequestJSON    *string
	ResponseJSON   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	arguments    []any
	hasArguments bool
	override     deliveryOverride
	attachErrors []string
	deferred     *deliveryPlan
}

// Request returns the audit log of payloads handed to the mailer.
func (e *EmailNotification) Request() []dbtypes.Snapshot {
	return dbtypes.ParseStoredPayload(e.RequestJSON)
}

// Response returns the audit log of transport results or queue envelopes.
func (e *EmailNotification) Response() []dbtypes.Snapshot {
	return dbtypes.ParseStoredPayload(e.ResponseJSON)
}

func (e *EmailNotification) setTemplate(fullpath string) {
	fullpath = strings.Trim(strings.TrimSpace(fullpath), "/")
	dir, name := path.Split(fullpath)
	e.TemplatePath = strings.TrimRight(dir, "/")
	e.TemplateName = name
}

func (e *EmailNotification) validate() []string {
	out := validateFields(emailFields{To: e.To, Subject: e.Subject})
	return append(out, e.attachErrors...)
}

type emailFields struct {
	To      string `label:"recipient" validate:"notblank"`
	Subject string `label:"subject" validate:"notblank"`
}

// mailArguments is the positional argument list handed to the mailer
// method: either the explicit arguments or the fixed header/vars/attachments
// triple.
func (e *EmailNotification) mailArguments() []any {
	if e.hasArguments {
		return compactArgs(e.arguments)
	}
	return []any{e.headers(), e.Vars, e.Attachments}
}

func (e *EmailNotification) headers() map[string]any {
	out := map[string]any{}
	if e.To != "" {
		out["to"] = e.To
	}
	if e.From != "" {
		out["from"] = e.From
	}
	if e.Subject != "" {
		out["subject"] = e.Subject
	}
	if e.TemplatePath != "" {
		out["template_path"] = e.TemplatePath
	}
	if e.TemplateName != "" {
		out["template_name"] = e.TemplateName
	}
	return out
}

// requestSnapshot is the audit entry recorded for one mailer invocation.
func (e *EmailNotification) requestSnapshot() dbtypes.Snapshot {
	if e.hasArguments {
		return dbtypes.Snapshot{"arguments": compactArgs(e.arguments)}
	}
	snap := dbtypes.Snapshot{}
	for k, v := range e.headers() {
		snap[k] = v
	}
	snap["vars"] = e.Vars
	snap["attachments"] = e.Attachments
	return snap
}

func compactArgs(args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// EmailBuilder configures an email during composition.
type EmailBuilder struct {
	email *EmailNotification
	env   *environment
}

// AttachFile attaches an open file under name, defaulting to its base name.
// The handle is closed immediately; only its path is kept.
func (b *EmailBuilder) AttachFile(f *os.File, name string) *EmailBuilder {
	if f == nil {
		return b
	}
	filePath := f.Name()
	_ = f.Close()
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(filePath)
	}
	b.email.Attachments[name] = filePath
	return b
}

// Attach attaches an existing file path, or a logical asset name resolved
// through the asset locator now rather than at delivery time.
func (b *EmailBuilder) Attach(file string, name string) *EmailBuilder {
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(file)
	}
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		b.email.Attachments[name] = file
		return b
	}
	if b.env != nil && b.env.assets != nil {
		if resolved, err := b.env.assets.Find(file); err == nil {
			b.email.Attachments[name] = resolved
			return b
		}
	}
	b.email.attachErrors = append(b.email.attachErrors, fmt.Sprintf("attachment %s could not be found", name))
	return b
}

func (b *EmailBuilder) Mailer(name string) *EmailBuilder {
	if name = strings.TrimSpace(name); name != "" {
		b.email.MailerClass = name
	}
	return b
}

func (b *EmailBuilder) Method(name string) *EmailBuilder {
	if name = strings.TrimSpace(name); name != "" {
		b.email.MailerMethod = name
	}
	return b
}

// Template sets the template as "dir/name.html".
func (b *EmailBuilder) Template(fullpath string) *EmailBuilder {
	if strings.TrimSpace(fullpath) != "" {
		b.email.setTemplate(fullpath)
	}
	return b
}

// Arguments replaces the default mailer arguments with args, passed
// positionally to the mailer method.
func (b *EmailBuilder) Arguments(args ...any) *EmailBuilder {
	b.email.arguments = args
	b.email.hasArguments = true
	return b
}

func (b *EmailBuilder) DeliverNow() *EmailBuilder {
	b.email.override = deliveryOverride{mode: enums.DeliveryModeNow}
	return b
}

func (b *EmailBuilder) DeliverLater(opts DeliverLaterOptions) *EmailBuilder {
	b.email.override = deliveryOverride{mode: enums.DeliveryModeLater, later: opts}
	return b
}

// Email exposes the notification being built.
func (b *EmailBuilder) Email() *EmailNotification {
	return b.email
}
