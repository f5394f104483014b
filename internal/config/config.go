package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable with SESSION_STORE. USER_STORE accepts memory and dynamo.
const (
	StoreMemory   = "memory"
	StoreDynamo   = "dynamo"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"3000"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	UserStore            string        `env:"USER_STORE" envDefault:"memory"`
	SessionStore         string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"xauth:"`

	PostgresURL string `env:"POSTGRES_URL" envDefault:"postgres://localhost:5432/xauth?sslmode=disable"`

	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./private_key.pem"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./public_key.pem"`
	JWTExpiry         time.Duration `env:"JWT_EXPIRY" envDefault:"168h"`

	MagicLinkBaseURL string        `env:"MAGIC_LINK_BASE_URL" envDefault:"http://localhost:3000/authentication/submit-magic-link"`
	MagicLinkTTL     time.Duration `env:"MAGIC_LINK_TTL" envDefault:"15m"`
	LoginURL         string        `env:"LOGIN_URL" envDefault:"/login"`
	AfterLoginURL    string        `env:"AFTER_LOGIN_URL" envDefault:"/"`
	GuardianURL      string        `env:"GUARDIAN_URL"` // empty: use the built-in guardian
	GuardianTimeout  time.Duration `env:"GUARDIAN_TIMEOUT" envDefault:"10s"`

	SeedUserEmail string `env:"SEED_USER_EMAIL"`
	SeedUserPhone string `env:"SEED_USER_PHONE"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@example.com"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	SNSRegion   string `env:"SNS_REGION" envDefault:"us-east-1"`
	SNSSenderID string `env:"SNS_SENDER_ID"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	Sessions string `env:"DYNAMO_TABLE_SESSIONS" envDefault:"sessions"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.SessionStore {
	case StoreMemory, StoreDynamo, StoreRedis, StorePostgres:
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}
	switch cfg.UserStore {
	case StoreMemory, StoreDynamo:
	default:
		return nil, fmt.Errorf("unknown USER_STORE %q", cfg.UserStore)
	}
	return &cfg, nil
}

// IsProduction reports whether AppEnv names a production deployment.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
