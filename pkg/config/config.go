package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "FUNDRAZA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env var names referenced by tests and error messages.
const (
	EnvAppEnv   = "FUNDRAZA_APP_ENV"
	EnvPort     = "FUNDRAZA_APP_PORT"
	EnvDBDSN    = "FUNDRAZA_DB_DSN"
	EnvDBHost   = "FUNDRAZA_DB_HOST"
	EnvDBUser   = "FUNDRAZA_DB_USER"
	EnvDBName   = "FUNDRAZA_DB_NAME"
	EnvRedisURL = "FUNDRAZA_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// Config is the root configuration tree, populated from the environment.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Import       ImportConfig
}

// Load parses the environment into a Config and normalizes derived values.
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
	Env          string `envconfig:"FUNDRAZA_APP_ENV" required:"true"`
	Port         string `envconfig:"FUNDRAZA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FUNDRAZA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FUNDRAZA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FUNDRAZA_DB_DSN"`
	Driver string `envconfig:"FUNDRAZA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FUNDRAZA_DB_HOST"`
	LegacyPort     int    `envconfig:"FUNDRAZA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FUNDRAZA_DB_USER"`
	LegacyPassword string `envconfig:"FUNDRAZA_DB_PASSWORD"`
	LegacyName     string `envconfig:"FUNDRAZA_DB_NAME"`
	LegacySSLMode  string `envconfig:"FUNDRAZA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FUNDRAZA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FUNDRAZA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FUNDRAZA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FUNDRAZA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FUNDRAZA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FUNDRAZA_REDIS_ADDR"`
	Password     string        `envconfig:"FUNDRAZA_REDIS_PASSWORD"`
	DB           int           `envconfig:"FUNDRAZA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FUNDRAZA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FUNDRAZA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FUNDRAZA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FUNDRAZA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FUNDRAZA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FUNDRAZA_AUTO_MIGRATE" default:"false"`
}

// ImportConfig bounds the bulk dues import. Larger files must be chunked by
// the caller; the limit keeps a single commit transaction small.
type ImportConfig struct {
	MaxRows        int           `envconfig:"FUNDRAZA_IMPORT_MAX_ROWS" default:"500"`
	IdempotencyTTL time.Duration `envconfig:"FUNDRAZA_IMPORT_IDEMPOTENCY_TTL" default:"168h"`
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
