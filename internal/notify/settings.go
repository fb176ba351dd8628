package notify

import (
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/notifyd/pkg/config"
)

// Settings is the host-wide notify configuration. It is read through a
// SettingsSource every time it is needed so runtime changes take effect
// without rebuilding notifications.
type Settings struct {
	UseQueue        bool
	Delay           time.Duration
	SMSFrom         string
	EmailFrom       string
	DefaultMailer   string
	DefaultMethod   string
	DefaultTemplate string
	BaseURL         string
	UpdatePath      string
	SMSQueue        string
	MailQueue       string
}

// SettingsSource supplies the current Settings.
type SettingsSource interface {
	NotifySettings() Settings
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() Settings

func (f SettingsFunc) NotifySettings() Settings { return f() }

// StaticSettings always returns s.
func StaticSettings(s Settings) SettingsSource {
	return SettingsFunc(func() Settings { return s })
}

// SettingsFromConfig maps the env-driven config section onto Settings.
func SettingsFromConfig(cfg config.NotifyConfig) Settings {
	return Settings{
		UseQueue:        cfg.UseQueue,
		Delay:           cfg.Delay,
		SMSFrom:         cfg.SMSFrom,
		EmailFrom:       cfg.EmailFrom,
		DefaultMailer:   cfg.DefaultMailer,
		DefaultMethod:   cfg.DefaultMethod,
		DefaultTemplate: cfg.DefaultTemplate,
		BaseURL:         cfg.BaseURL,
		UpdatePath:      cfg.NormalizedUpdatePath(),
		SMSQueue:        cfg.SMSQueue,
		MailQueue:       cfg.MailQueue,
	}
}

func (s Settings) smsQueue() string {
	if q := strings.TrimSpace(s.SMSQueue); q != "" {
		return q
	}
	return "sms"
}

func (s Settings) mailQueue() string {
	if q := strings.TrimSpace(s.MailQueue); q != "" {
		return q
	}
	return "mailers"
}

func (s Settings) mailer() string {
	if m := strings.TrimSpace(s.DefaultMailer); m != "" {
		return m
	}
	return DefaultMailerName
}

func (s Settings) method() string {
	if m := strings.TrimSpace(s.DefaultMethod); m != "" {
		return m
	}
	return DefaultMailerMethod
}

func (s Settings) template() string {
	if t := strings.TrimSpace(s.DefaultTemplate); t != "" {
		return t
	}
	return DefaultTemplate
}

// localHost reports whether host is a name or address the provider cannot
// call back into.
func localHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

// publicBase returns the base URL with a scheme, defaulting to http when the
// configured value is a bare host.
func publicBase(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" || strings.Contains(base, "://") {
		return base
	}
	return "http://" + strings.TrimLeft(base, "/")
}

// CallbackURL is the public status webhook URL handed to the SMS provider.
// It is empty when the base URL is unset or points at a loopback host the
// provider cannot reach.
func (s Settings) CallbackURL() string {
	base := publicBase(s.BaseURL)
	if base == "" {
		return ""
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return ""
	}
	if localHost(host) {
		return ""
	}
	path := "/" + strings.Trim(strings.TrimSpace(s.UpdatePath), "/")
	return base + path
}

// AssetURL turns a public asset path into an absolute URL.
func (s Settings) AssetURL(path string) string {
	return publicBase(s.BaseURL) + "/" + strings.TrimLeft(path, "/")
}
