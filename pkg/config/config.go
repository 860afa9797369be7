package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "NEARBUY_DB_DSN"
	EnvDBHost = "NEARBUY_DB_HOST"
	EnvDBUser = "NEARBUY_DB_USER"
	EnvDBName = "NEARBUY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Square       SquareConfig
	Escrow       EscrowConfig
	Reconcile    ReconcileConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"NEARBUY_APP_ENV" required:"true"`
	Port         string `envconfig:"NEARBUY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NEARBUY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEARBUY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NEARBUY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NEARBUY_DB_DSN"`
	Driver string `envconfig:"NEARBUY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NEARBUY_DB_HOST"`
	LegacyPort     int    `envconfig:"NEARBUY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NEARBUY_DB_USER"`
	LegacyPassword string `envconfig:"NEARBUY_DB_PASSWORD"`
	LegacyName     string `envconfig:"NEARBUY_DB_NAME"`
	LegacySSLMode  string `envconfig:"NEARBUY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NEARBUY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEARBUY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEARBUY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEARBUY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NEARBUY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NEARBUY_REDIS_ADDR"`
	Password     string        `envconfig:"NEARBUY_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEARBUY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEARBUY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NEARBUY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NEARBUY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEARBUY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NEARBUY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"NEARBUY_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"NEARBUY_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"NEARBUY_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// EscrowConfig bounds how long a payment hold may sit unsettled.
type EscrowConfig struct {
	HoldMaxAge time.Duration `envconfig:"NEARBUY_ESCROW_HOLD_MAX_AGE" default:"168h"`
}

type ReconcileConfig struct {
	// Estimated gateway fee: percentage in basis points plus a fixed
	// per-transaction amount in cents. Approximation until a settlement
	// report feed exists.
	FeeBasisPoints int `envconfig:"NEARBUY_RECONCILE_FEE_BASIS_POINTS" default:"290"`
	FeeFixedCents  int `envconfig:"NEARBUY_RECONCILE_FEE_FIXED_CENTS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"NEARBUY_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"NEARBUY_CRON_LOCK_TTL" default:"2h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NEARBUY_AUTO_MIGRATE" default:"false"`
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
