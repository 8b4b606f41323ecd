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
	Admin        AdminConfig
	Attribution  AttributionConfig
	Commerce     CommerceConfig
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
	Env          string `envconfig:"SHOPSIGNAL_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSIGNAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPSIGNAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSIGNAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPSIGNAL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPSIGNAL_DB_DSN"`
	Driver string `envconfig:"SHOPSIGNAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPSIGNAL_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPSIGNAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPSIGNAL_DB_USER"`
	LegacyPassword string `envconfig:"SHOPSIGNAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPSIGNAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPSIGNAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSIGNAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSIGNAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSIGNAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSIGNAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("database DSN or host/user/name parts are required")
	}
	query := url.Values{}
	query.Set("sslmode", d.LegacySSLMode)
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.LegacyUser, d.LegacyPassword),
		Host:     fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:     d.LegacyName,
		RawQuery: query.Encode(),
	}
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPSIGNAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPSIGNAL_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPSIGNAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPSIGNAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPSIGNAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSIGNAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSIGNAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSIGNAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSIGNAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type AdminConfig struct {
	Token string `envconfig:"SHOPSIGNAL_ADMIN_TOKEN"`
}

type AttributionConfig struct {
	ConversionWindow  time.Duration `envconfig:"SHOPSIGNAL_ATTRIBUTION_WINDOW" default:"24h"`
	CandidatePageSize int           `envconfig:"SHOPSIGNAL_ATTRIBUTION_CANDIDATE_PAGE_SIZE" default:"250"`
	StalenessWindow   time.Duration `envconfig:"SHOPSIGNAL_ATTRIBUTION_STALENESS_WINDOW" default:"720h"`
	OrderGuardTTL     time.Duration `envconfig:"SHOPSIGNAL_ATTRIBUTION_ORDER_GUARD_TTL" default:"168h"`
	SweepBatchSize    int           `envconfig:"SHOPSIGNAL_ATTRIBUTION_SWEEP_BATCH_SIZE" default:"500"`
	CronInterval      time.Duration `envconfig:"SHOPSIGNAL_ATTRIBUTION_CRON_INTERVAL" default:"1h"`
	RecomputeLookback int           `envconfig:"SHOPSIGNAL_AGGREGATE_RECOMPUTE_LOOKBACK_DAYS" default:"2"`
}

type CommerceConfig struct {
	BaseURL     string        `envconfig:"SHOPSIGNAL_COMMERCE_BASE_URL"`
	Timeout     time.Duration `envconfig:"SHOPSIGNAL_COMMERCE_TIMEOUT" default:"5s"`
	MaxAttempts int           `envconfig:"SHOPSIGNAL_COMMERCE_MAX_ATTEMPTS" default:"3"`
	Backoff     time.Duration `envconfig:"SHOPSIGNAL_COMMERCE_BACKOFF" default:"250ms"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPSIGNAL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPSIGNAL_AUTO_MIGRATE" default:"false"`
}
