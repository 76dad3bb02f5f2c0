package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the platform reads.
	EnvPrefix = "voynich"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VOYNICH_DB_DSN"
	EnvDBHost = "VOYNICH_DB_HOST"
	EnvDBUser = "VOYNICH_DB_USER"
	EnvDBName = "VOYNICH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OpenAI    OpenAIConfig
	Stripe    StripeConfig
	Credits   CreditsConfig
	RateLimit RateLimitConfig
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
	Env          string `envconfig:"VOYNICH_APP_ENV" required:"true"`
	Port         string `envconfig:"VOYNICH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VOYNICH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VOYNICH_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"VOYNICH_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"VOYNICH_DB_DSN"`

	LegacyHost     string `envconfig:"VOYNICH_DB_HOST"`
	LegacyPort     int    `envconfig:"VOYNICH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VOYNICH_DB_USER"`
	LegacyPassword string `envconfig:"VOYNICH_DB_PASSWORD"`
	LegacyName     string `envconfig:"VOYNICH_DB_NAME"`
	LegacySSLMode  string `envconfig:"VOYNICH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VOYNICH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VOYNICH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VOYNICH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VOYNICH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VOYNICH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VOYNICH_REDIS_ADDR"`
	Password     string        `envconfig:"VOYNICH_REDIS_PASSWORD"`
	DB           int           `envconfig:"VOYNICH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VOYNICH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VOYNICH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VOYNICH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VOYNICH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VOYNICH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VOYNICH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VOYNICH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VOYNICH_JWT_EXPIRATION_MINUTES" default:"60"`
}

type OpenAIConfig struct {
	APIKey string `envconfig:"VOYNICH_OPENAI_API_KEY"`
	// InvokeTimeout bounds a single analysis call; on expiry the request is
	// treated as a failed invocation and refunded.
	InvokeTimeout time.Duration `envconfig:"VOYNICH_OPENAI_INVOKE_TIMEOUT" default:"120s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"VOYNICH_STRIPE_API_KEY"`
	Secret string `envconfig:"VOYNICH_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"VOYNICH_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CreditsConfig struct {
	SignupGrant int `envconfig:"VOYNICH_CREDITS_SIGNUP_GRANT" default:"10"`
	// IdempotencyTTL bounds how long processed Stripe event ids are held in
	// Redis before the DB unique index becomes the only guard.
	IdempotencyTTL time.Duration `envconfig:"VOYNICH_CREDITS_IDEMPOTENCY_TTL" default:"720h"`
}

type RateLimitConfig struct {
	AnalysisWindow time.Duration `envconfig:"VOYNICH_RATE_LIMIT_ANALYSIS_WINDOW" default:"1m"`
	AnalysisLimit  int           `envconfig:"VOYNICH_RATE_LIMIT_ANALYSIS_LIMIT" default:"10"`
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
