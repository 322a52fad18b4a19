package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every invalid setting at once.
func (c *Config) validate() error {
	var err error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required", EnvJWTSecret))
	}
	if c.Cart.TTLMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCartTTLMinutes))
	}
	if c.App.IsProd() && c.FeatureFlags.UseSQLite {
		err = multierr.Append(err, fmt.Errorf("%s cannot be enabled in %s", EnvUseSQLite, AppEnvProd))
	}
	if c.Outbox.MaxAttempts <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxMaxAttempts))
	}
	for name, d := range map[string]time.Duration{
		EnvCronTick:          c.Cron.Tick,
		EnvCronLockTTL:       c.Cron.LockTTL,
		EnvPendingMaxAge:     c.Cron.PendingOrderMaxAge,
		EnvOutboxRetention:   c.Cron.OutboxRetention,
		EnvPendingOrderEvery: c.Cron.PendingOrderEvery,
	} {
		if d <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be a positive duration", name))
		}
	}
	return err
}

type AppConfig struct {
	Env           string   `envconfig:"FOODAPP_APP_ENV" required:"true"`
	Port          string   `envconfig:"FOODAPP_APP_PORT" default:"9393"`
	LogLevel      string   `envconfig:"FOODAPP_LOG_LEVEL" default:"info"`
	LogWarnStack  bool     `envconfig:"FOODAPP_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string   `envconfig:"FOODAPP_PUBLIC_BASE_URL" default:"http://localhost:3000"`
	CORSOrigins   []string `envconfig:"FOODAPP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"FOODAPP_DB_DSN"`
	SQLitePath string `envconfig:"FOODAPP_DB_SQLITE_PATH" default:"foodapp.db"`

	LegacyHost     string `envconfig:"FOODAPP_DB_HOST"`
	LegacyPort     int    `envconfig:"FOODAPP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FOODAPP_DB_USER"`
	LegacyPassword string `envconfig:"FOODAPP_DB_PASSWORD"`
	LegacyName     string `envconfig:"FOODAPP_DB_NAME"`
	LegacySSLMode  string `envconfig:"FOODAPP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FOODAPP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FOODAPP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FOODAPP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FOODAPP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which a statement is logged as a warning.
	SlowQuery time.Duration `envconfig:"FOODAPP_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL            string        `envconfig:"FOODAPP_REDIS_URL"`
	Address        string        `envconfig:"FOODAPP_REDIS_ADDR" default:"localhost:6379"`
	Password       string        `envconfig:"FOODAPP_REDIS_PASSWORD"`
	DB             int           `envconfig:"FOODAPP_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"FOODAPP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"FOODAPP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"FOODAPP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"FOODAPP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"FOODAPP_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"FOODAPP_REDIS_IDEMPOTENCY_TTL" default:"24h"`
	WebhookTTL     time.Duration `envconfig:"FOODAPP_REDIS_WEBHOOK_TTL" default:"720h"`
}

type JWTConfig struct {
	Secret string `envconfig:"FOODAPP_JWT_SECRET"`
	Issuer string `envconfig:"FOODAPP_JWT_ISSUER" default:"foodapp"`
	// ExpirationMinutes only applies to tokens minted locally (tests, dev tooling).
	ExpirationMinutes int `envconfig:"FOODAPP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CartConfig controls the sliding expiry window applied on every cart mutation.
type CartConfig struct {
	TTLMinutes int `envconfig:"FOODAPP_CART_TTL_MINUTES" default:"60"`
}

func (c CartConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FOODAPP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FOODAPP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FOODAPP_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"FOODAPP_PUBSUB_ORDERS_TOPIC" default:"foodapp-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FOODAPP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FOODAPP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FOODAPP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type StripeConfig struct {
	APIKey        string `envconfig:"FOODAPP_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"FOODAPP_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"FOODAPP_STRIPE_ENV" default:"test"`
	Currency      string `envconfig:"FOODAPP_STRIPE_CURRENCY" default:"usd"`
	SuccessPath   string `envconfig:"FOODAPP_STRIPE_SUCCESS_PATH" default:"/payment-success"`
	CancelPath    string `envconfig:"FOODAPP_STRIPE_CANCEL_PATH" default:"/payment-failed"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CronConfig struct {
	// Tick is how often the worker wakes to check for due jobs.
	Tick                 time.Duration `envconfig:"FOODAPP_CRON_TICK" default:"1m"`
	LockTTL              time.Duration `envconfig:"FOODAPP_CRON_LOCK_TTL" default:"4m"`
	MetricsAddr          string        `envconfig:"FOODAPP_CRON_METRICS_ADDR" default:":9102"`
	PendingOrderEvery    time.Duration `envconfig:"FOODAPP_CRON_PENDING_ORDER_EVERY" default:"5m"`
	PendingOrderMaxAge   time.Duration `envconfig:"FOODAPP_CRON_PENDING_ORDER_MAX_AGE" default:"24h"`
	PendingOrderBatchSz  int           `envconfig:"FOODAPP_CRON_PENDING_ORDER_BATCH" default:"100"`
	OutboxRetentionEvery time.Duration `envconfig:"FOODAPP_CRON_OUTBOX_RETENTION_EVERY" default:"1h"`
	OutboxRetention      time.Duration `envconfig:"FOODAPP_CRON_OUTBOX_RETENTION" default:"720h"`
}

// ensureDSN assembles a postgres URL from the split FOODAPP_DB_* variables
// when no DSN is given.
func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	var missing []string
	for _, part := range []struct{ env, value string }{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	} {
		if part.value == "" {
			missing = append(missing, part.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		user = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
