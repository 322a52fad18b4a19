package config

// EnvPrefix scopes every variable the service reads.
const EnvPrefix = "FOODAPP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
	AppEnvTest = "test"
)

const (
	EnvAppEnv        = "FOODAPP_APP_ENV"
	EnvPort          = "FOODAPP_APP_PORT"
	EnvLogLevel      = "FOODAPP_LOG_LEVEL"
	EnvPublicBaseURL = "FOODAPP_PUBLIC_BASE_URL"

	EnvDBDSN  = "FOODAPP_DB_DSN"
	EnvDBHost = "FOODAPP_DB_HOST"
	EnvDBUser = "FOODAPP_DB_USER"
	EnvDBName = "FOODAPP_DB_NAME"

	EnvRedisURL = "FOODAPP_REDIS_URL"

	EnvJWTSecret = "FOODAPP_JWT_SECRET"
	EnvJWTIssuer = "FOODAPP_JWT_ISSUER"

	EnvCartTTLMinutes = "FOODAPP_CART_TTL_MINUTES"

	EnvStripeAPIKey = "FOODAPP_STRIPE_API_KEY"
	EnvStripeSecret = "FOODAPP_STRIPE_WEBHOOK_SECRET"
	EnvGCPProjectID = "FOODAPP_GCP_PROJECT_ID"
	EnvOrdersTopic  = "FOODAPP_PUBSUB_ORDERS_TOPIC"
	EnvUseSQLite    = "FOODAPP_USE_SQLITE"
	EnvAutoMigrate  = "FOODAPP_AUTO_MIGRATE"

	EnvOutboxMaxAttempts = "FOODAPP_OUTBOX_MAX_ATTEMPTS"

	EnvCronTick          = "FOODAPP_CRON_TICK"
	EnvCronLockTTL       = "FOODAPP_CRON_LOCK_TTL"
	EnvPendingOrderEvery = "FOODAPP_CRON_PENDING_ORDER_EVERY"
	EnvPendingMaxAge     = "FOODAPP_CRON_PENDING_ORDER_MAX_AGE"
	EnvOutboxRetention   = "FOODAPP_CRON_OUTBOX_RETENTION"
)
