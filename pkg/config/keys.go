package config

const EnvPrefix = "POS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	EnvAppEnv   = "POS_APP_ENV"
	EnvPort     = "POS_APP_PORT"
	EnvLogLevel = "POS_LOG_LEVEL"

	EnvDBDriver = "POS_DB_DRIVER"
	EnvDBDSN    = "POS_DB_DSN"
	EnvDBPath   = "POS_DB_PATH"

	EnvCheckoutCodePrefix      = "POS_CHECKOUT_CODE_PREFIX"
	EnvCheckoutMaxCodeAttempts = "POS_CHECKOUT_MAX_CODE_ATTEMPTS"

	EnvAutoMigrate    = "POS_AUTO_MIGRATE"
	EnvMetricsEnabled = "POS_METRICS_ENABLED"

	EnvCORSAllowedOrigins = "POS_CORS_ALLOWED_ORIGINS"
)
