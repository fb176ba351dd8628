package config

const EnvPrefix = "NOTIFYD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultUpdatePath = "/notification/update"
)

const (
	EnvAppEnv   = "NOTIFYD_APP_ENV"
	EnvPort     = "NOTIFYD_APP_PORT"
	EnvLogLevel = "NOTIFYD_LOG_LEVEL"

	EnvDBDSN  = "NOTIFYD_DB_DSN"
	EnvDBHost = "NOTIFYD_DB_HOST"
	EnvDBUser = "NOTIFYD_DB_USER"
	EnvDBName = "NOTIFYD_DB_NAME"

	EnvRedisURL = "NOTIFYD_REDIS_URL"

	EnvNotifyUseQueue   = "NOTIFYD_NOTIFY_USE_QUEUE"
	EnvNotifyDelay      = "NOTIFYD_NOTIFY_DELAY"
	EnvNotifySMSFrom    = "NOTIFYD_NOTIFY_SMS_FROM"
	EnvNotifyUpdatePath = "NOTIFYD_NOTIFY_UPDATE_PATH"
	EnvBaseURL          = "NOTIFYD_BASE_URL"

	EnvTwilioAccountSID = "NOTIFYD_TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "NOTIFYD_TWILIO_AUTH_TOKEN"

	EnvUseSQLite = "NOTIFYD_USE_SQLITE"
)

var hostDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
