package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Notify       NotifyConfig
	Twilio       TwilioConfig
	Sendgrid     SendgridConfig
	Assets       AssetsConfig
	Worker       WorkerConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Notify.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NOTIFYD_APP_ENV" required:"true"`
	Port         string `envconfig:"NOTIFYD_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"NOTIFYD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NOTIFYD_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"NOTIFYD_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"NOTIFYD_DB_DSN"`
	SQLitePath string `envconfig:"NOTIFYD_DB_SQLITE_PATH" default:"notifyd.db"`

	Host     string `envconfig:"NOTIFYD_DB_HOST"`
	Port     int    `envconfig:"NOTIFYD_DB_PORT" default:"5432"`
	User     string `envconfig:"NOTIFYD_DB_USER"`
	Password string `envconfig:"NOTIFYD_DB_PASSWORD"`
	Name     string `envconfig:"NOTIFYD_DB_NAME"`
	SSLMode  string `envconfig:"NOTIFYD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NOTIFYD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NOTIFYD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NOTIFYD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NOTIFYD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NOTIFYD_REDIS_URL"`
	Address      string        `envconfig:"NOTIFYD_REDIS_ADDR"`
	Password     string        `envconfig:"NOTIFYD_REDIS_PASSWORD"`
	DB           int           `envconfig:"NOTIFYD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NOTIFYD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NOTIFYD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NOTIFYD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NOTIFYD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NOTIFYD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// NotifyConfig holds the host-wide delivery settings. Values are read at call
// time through notify.SettingsSource, so reloading the struct is enough to
// change behaviour for subsequently composed notifications.
type NotifyConfig struct {
	UseQueue        bool          `envconfig:"NOTIFYD_NOTIFY_USE_QUEUE" default:"false"`
	Delay           time.Duration `envconfig:"NOTIFYD_NOTIFY_DELAY" default:"0s"`
	SMSFrom         string        `envconfig:"NOTIFYD_NOTIFY_SMS_FROM"`
	EmailFrom       string        `envconfig:"NOTIFYD_NOTIFY_EMAIL_FROM" default:"no-reply@example.com"`
	DefaultMailer   string        `envconfig:"NOTIFYD_NOTIFY_DEFAULT_MAILER" default:"NotificationMailer"`
	DefaultMethod   string        `envconfig:"NOTIFYD_NOTIFY_DEFAULT_METHOD" default:"notify"`
	DefaultTemplate string        `envconfig:"NOTIFYD_NOTIFY_DEFAULT_TEMPLATE" default:"notification_mailer/notify.html"`
	BaseURL         string        `envconfig:"NOTIFYD_BASE_URL" default:"http://localhost:8080"`
	UpdatePath      string        `envconfig:"NOTIFYD_NOTIFY_UPDATE_PATH" default:"/notification/update"`
	VerifySignature bool          `envconfig:"NOTIFYD_NOTIFY_VERIFY_SIGNATURE" default:"false"`
	SMSQueue        string        `envconfig:"NOTIFYD_NOTIFY_SMS_QUEUE" default:"sms"`
	MailQueue       string        `envconfig:"NOTIFYD_NOTIFY_MAIL_QUEUE" default:"mailers"`
}

// NormalizedUpdatePath trims surrounding slashes and whitespace and returns a
// rooted route path.
func (n NotifyConfig) NormalizedUpdatePath() string {
	path := strings.Trim(strings.TrimSpace(n.UpdatePath), "/")
	if path == "" {
		path = strings.Trim(DefaultUpdatePath, "/")
	}
	return "/" + path
}

func (n NotifyConfig) validate() error {
	if n.Delay < 0 {
		return fmt.Errorf("%s must not be negative", EnvNotifyDelay)
	}
	if n.BaseURL != "" {
		if _, err := url.Parse(n.BaseURL); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBaseURL, err)
		}
	}
	return nil
}

type TwilioConfig struct {
	AccountSID string        `envconfig:"NOTIFYD_TWILIO_ACCOUNT_SID"`
	AuthToken  string        `envconfig:"NOTIFYD_TWILIO_AUTH_TOKEN"`
	Timeout    time.Duration `envconfig:"NOTIFYD_TWILIO_TIMEOUT" default:"15s"`
}

type SendgridConfig struct {
	APIKey string `envconfig:"NOTIFYD_SENDGRID_API_KEY"`
	Host   string `envconfig:"NOTIFYD_SENDGRID_HOST" default:"https://api.sendgrid.com"`
}

type AssetsConfig struct {
	Dirs         []string `envconfig:"NOTIFYD_ASSET_DIRS" default:"assets"`
	URLPrefix    string   `envconfig:"NOTIFYD_ASSET_URL_PREFIX" default:"/assets"`
	TemplatesDir string   `envconfig:"NOTIFYD_TEMPLATES_DIR" default:"templates"`
}

type WorkerConfig struct {
	Lanes        []string      `envconfig:"NOTIFYD_WORKER_LANES" default:"sms,mailers"`
	PollInterval time.Duration `envconfig:"NOTIFYD_WORKER_POLL_INTERVAL" default:"1s"`
	BatchSize    int           `envconfig:"NOTIFYD_WORKER_BATCH_SIZE" default:"25"`
	MetricsAddr  string        `envconfig:"NOTIFYD_WORKER_METRICS_ADDR" default:":9091"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NOTIFYD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NOTIFYD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range hostDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
