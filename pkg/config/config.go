package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is empty because every field carries its fully qualified tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Idempotency  IdempotencyConfig
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
	Env          string   `envconfig:"POINTBANK_APP_ENV" required:"true"`
	Port         string   `envconfig:"POINTBANK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"POINTBANK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"POINTBANK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"POINTBANK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"POINTBANK_DB_DSN"`
	Driver string `envconfig:"POINTBANK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POINTBANK_DB_HOST"`
	LegacyPort     int    `envconfig:"POINTBANK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POINTBANK_DB_USER"`
	LegacyPassword string `envconfig:"POINTBANK_DB_PASSWORD"`
	LegacyName     string `envconfig:"POINTBANK_DB_NAME"`
	LegacySSLMode  string `envconfig:"POINTBANK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POINTBANK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POINTBANK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POINTBANK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POINTBANK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a Postgres DSN from the discrete legacy fields when no
// explicit DSN is configured.
func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("POINTBANK_DB_DSN or POINTBANK_DB_HOST/USER/NAME must be set")
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:   "/" + d.LegacyName,
	}
	if d.LegacyPassword != "" {
		u.User = url.UserPassword(d.LegacyUser, d.LegacyPassword)
	} else {
		u.User = url.User(d.LegacyUser)
	}
	q := u.Query()
	q.Set("sslmode", d.LegacySSLMode)
	u.RawQuery = q.Encode()

	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"POINTBANK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"POINTBANK_REDIS_ADDR"`
	Password     string        `envconfig:"POINTBANK_REDIS_PASSWORD"`
	DB           int           `envconfig:"POINTBANK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POINTBANK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POINTBANK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POINTBANK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POINTBANK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POINTBANK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"POINTBANK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"POINTBANK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"POINTBANK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"POINTBANK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"POINTBANK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"POINTBANK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"POINTBANK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"POINTBANK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"POINTBANK_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POINTBANK_AUTO_MIGRATE" default:"false"`
}

type IdempotencyConfig struct {
	SettlementTTL time.Duration `envconfig:"POINTBANK_IDEMPOTENCY_SETTLEMENT_TTL" default:"168h"`
	DefaultTTL    time.Duration `envconfig:"POINTBANK_IDEMPOTENCY_DEFAULT_TTL" default:"24h"`
}
