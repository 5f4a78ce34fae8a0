package config

import (
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	WhatsApp  WhatsAppConfig
	RateLimit RateLimitConfig
	Ops       OpsPushConfig
	Bootstrap BootstrapConfig
}

// BootstrapConfig controls startup seeding for local and self-hosted
// installs.
type BootstrapConfig struct {
	EnsureDefaultTenant  bool
	EnsureDefaultPricing bool
	DefaultTenantName    string
	DefaultPhoneNumberID string
	DefaultAccessToken   string
	DefaultTemplateName  string
}

// WhatsAppConfig configures the Meta Graph API client and webhook surface.
type WhatsAppConfig struct {
	GraphBaseURL   string
	GraphVersion   string
	AppSecret      string
	VerifyToken    string
	SendTimeoutSec int
}

// RateLimitConfig configures the redis-backed limiter and dispatch lock.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProcessRate  float64
	ProcessBurst int

	DispatchLockTTLSeconds int
}

// OpsPushConfig configures the remote metrics pusher.
type OpsPushConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
	TenantTag string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "blastwave"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "blastwave"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 600)),

		WhatsApp: WhatsAppConfig{
			GraphBaseURL:   getenv("WHATSAPP_GRAPH_BASE_URL", "https://graph.facebook.com"),
			GraphVersion:   getenv("WHATSAPP_GRAPH_VERSION", "v19.0"),
			AppSecret:      strings.TrimSpace(getenv("WHATSAPP_APP_SECRET", "")),
			VerifyToken:    strings.TrimSpace(getenv("WHATSAPP_VERIFY_TOKEN", "")),
			SendTimeoutSec: int(getenvInt64("WHATSAPP_SEND_TIMEOUT", 15)),
		},
		RateLimit: RateLimitConfig{
			Enabled:                getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:              strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword:          getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:                int(getenvInt64("RATE_LIMIT_REDIS_DB", 0)),
			ProcessRate:            getenvFloat("RATE_LIMIT_PROCESS_RATE", 2),
			ProcessBurst:           int(getenvInt64("RATE_LIMIT_PROCESS_BURST", 5)),
			DispatchLockTTLSeconds: int(getenvInt64("RATE_LIMIT_DISPATCH_LOCK_TTL", 120)),
		},
		Ops: OpsPushConfig{
			Enabled:   getenvBool("OPS_METRICS_ENABLED", false),
			Exporter:  strings.ToLower(getenv("OPS_METRICS_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("OPS_METRICS_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("OPS_METRICS_AUTH_TOKEN", "")),
			TenantTag: strings.TrimSpace(getenv("OPS_METRICS_TENANT_TAG", "")),
		},
		Bootstrap: BootstrapConfig{
			EnsureDefaultTenant:  getenvBool("BOOTSTRAP_ENSURE_DEFAULT_TENANT", true),
			EnsureDefaultPricing: getenvBool("BOOTSTRAP_ENSURE_DEFAULT_PRICING", true),
			DefaultTenantName:    getenv("BOOTSTRAP_TENANT_NAME", "Main"),
			DefaultPhoneNumberID: strings.TrimSpace(getenv("BOOTSTRAP_PHONE_NUMBER_ID", "")),
			DefaultAccessToken:   strings.TrimSpace(getenv("BOOTSTRAP_ACCESS_TOKEN", "")),
			DefaultTemplateName:  getenv("BOOTSTRAP_TEMPLATE_NAME", "welcome_offer"),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
