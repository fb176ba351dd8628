package notify

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notification is the aggregate root: one host record, any number of email
// and SMS children, validated and saved together.
type Notification struct {
	ID             uuid.UUID
	NotifyableType string
	NotifyableID   string
	Emails         []*EmailNotification
	SMS            []*SMSNotification
	CreatedAt      time.Time
	UpdatedAt      time.Time

	host      Notifyable
	env       *environment
	persisted bool
}

// EmailOptions override the defaults of a composed email.
type EmailOptions struct {
	To       string
	From     string
	Mailer   string
	Method   string
	Template string
	Vars     map[string]any
}

// SMSOptions override the defaults of a composed SMS.
type SMSOptions struct {
	To   string
	From string
}

// ComposeEmail appends an email child. Template variables always carry the
// subject and the host record under its lowercased type name.
func (n *Notification) ComposeEmail(subject string, opts EmailOptions, configure ...func(*EmailBuilder)) *EmailNotification {
	settings := n.env.settings()
	email := &EmailNotification{
		To:           opts.To,
		From:         opts.From,
		Subject:      subject,
		MailerClass:  settings.mailer(),
		MailerMethod: settings.method(),
		Vars:         map[string]any{"subject": subject},
		Attachments:  map[string]string{},
	}
	if email.From == "" {
		email.From = settings.EmailFrom
	}
	email.setTemplate(settings.template())

	if n.host != nil {
		email.Vars[strings.ToLower(n.host.NotifyableType())] = n.host
	}
	if opts.To != "" {
		email.Vars["to"] = opts.To
	}
	if opts.From != "" {
		email.Vars["from"] = opts.From
	}
	for k, v := range opts.Vars {
		email.Vars[k] = v
	}

	builder := &EmailBuilder{email: email, env: n.env}
	if opts.Mailer != "" {
		builder.Mailer(opts.Mailer)
	}
	if opts.Method != "" {
		builder.Method(opts.Method)
	}
	if opts.Template != "" {
		builder.Template(opts.Template)
	}
	for _, fn := range configure {
		if fn != nil {
			fn(builder)
		}
	}

	n.Emails = append(n.Emails, email)
	return email
}

// ComposeSMS appends an SMS child. The sender defaults to the configured SMS
// number at the time of the call.
func (n *Notification) ComposeSMS(message string, opts SMSOptions, configure ...func(*SMSBuilder)) *SMSNotification {
	sms := &SMSNotification{
		To:      opts.To,
		From:    opts.From,
		Message: message,
	}
	if sms.From == "" {
		sms.From = n.env.settings().SMSFrom
	}

	builder := &SMSBuilder{sms: sms, env: n.env}
	for _, fn := range configure {
		if fn != nil {
			fn(builder)
		}
	}

	n.SMS = append(n.SMS, sms)
	return sms
}

// ApplyDefaultRecipients fills every blank child recipient.
func (n *Notification) ApplyDefaultRecipients(email, phone string) {
	for _, e := range n.Emails {
		if strings.TrimSpace(e.To) == "" {
			e.To = email
		}
	}
	for _, s := range n.SMS {
		if strings.TrimSpace(s.To) == "" {
			s.To = phone
		}
	}
}

// Validate checks every child and collects their messages under "sms" and
// "email". An empty result means the aggregate is valid.
func (n *Notification) Validate(ctx context.Context) *Errors {
	errs := NewErrors()
	for _, s := range n.SMS {
		for _, msg := range s.validate(ctx, n.env) {
			errs.Add("sms", msg)
		}
	}
	for _, e := range n.Emails {
		for _, msg := range e.validate() {
			errs.Add("email", msg)
		}
	}
	return errs
}

// Valid reports whether every child is valid.
func (n *Notification) Valid(ctx context.Context) bool {
	return n.Validate(ctx).Empty()
}

// Persisted reports whether the aggregate has been written.
func (n *Notification) Persisted() bool {
	return n.persisted
}

// Empty reports whether the notification has nothing to deliver.
func (n *Notification) Empty() bool {
	return len(n.Emails) == 0 && len(n.SMS) == 0
}
