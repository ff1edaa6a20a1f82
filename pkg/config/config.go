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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Sweep        SweepConfig
	Stripe       StripeConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GROUPCART_APP_ENV" required:"true"`
	Port         string `envconfig:"GROUPCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GROUPCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GROUPCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GROUPCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GROUPCART_DB_DSN"`
	Driver string `envconfig:"GROUPCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GROUPCART_DB_HOST"`
	LegacyPort     int    `envconfig:"GROUPCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GROUPCART_DB_USER"`
	LegacyPassword string `envconfig:"GROUPCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"GROUPCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"GROUPCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GROUPCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GROUPCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GROUPCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GROUPCART_REDIS_ADDR"`
	Password     string        `envconfig:"GROUPCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"GROUPCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GROUPCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GROUPCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GROUPCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GROUPCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GROUPCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GROUPCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GROUPCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GROUPCART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GROUPCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GROUPCART_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	SessionTTL time.Duration `envconfig:"GROUPCART_CHECKOUT_SESSION_TTL" default:"24h"`
}

type SweepConfig struct {
	Interval time.Duration `envconfig:"GROUPCART_SWEEP_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"GROUPCART_SWEEP_LOCK_TTL" default:"4m"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"GROUPCART_STRIPE_API_KEY"`
	Secret         string        `envconfig:"GROUPCART_STRIPE_WEBHOOK_SECRET"`
	Env            string        `envconfig:"GROUPCART_STRIPE_ENV" default:"test"`
	RequestTimeout time.Duration `envconfig:"GROUPCART_STRIPE_REQUEST_TIMEOUT" default:"15s"`
	EventTTL       time.Duration `envconfig:"GROUPCART_STRIPE_EVENT_TTL" default:"720h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
