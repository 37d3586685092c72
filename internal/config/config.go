package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
)

// DefaultJWTSecret is the development fallback for JWT_SECRET.
const DefaultJWTSecret = "workshop-default-dev-secret-change-me"

const defaultLoginAttemptWindow = 15 * time.Minute

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string

	// Store
	StoreBackend  string
	DatabaseURL   string
	RunMigrations bool

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Asaas
	Asaas AsaasConfig

	// Workshop
	EventName string

	// Certificate charge
	CertificateFee      float64
	ChargeDueDays       int
	ChargeDescription   string
	WebhookAckUnmatched bool

	// SMTP
	SMTP             SMTPConfig
	EmailDisabled    bool
	EmailSyncTimeout time.Duration

	// JWT / Auth
	JWTSecret          string
	JWTAccessTTL       time.Duration
	LoginAttemptWindow time.Duration
}

// AsaasConfig holds payment provider credentials. The production key wins
// when both are set.
type AsaasConfig struct {
	SandboxKey    string
	ProductionKey string
	SandboxURL    string
	ProductionURL string
	WebhookToken  string
}

// SMTPConfig holds outgoing mail settings. Host and From are required
// unless EMAIL_DISABLED is set.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreSupabase)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		Asaas: AsaasConfig{
			SandboxKey:    getEnv("ASAAS_API_KEY_SANDBOX", ""),
			ProductionKey: getEnv("ASAAS_API_KEY_PRODUCTION", ""),
			SandboxURL:    getEnv("ASAAS_SANDBOX_URL", "https://api-sandbox.asaas.com/v3"),
			ProductionURL: getEnv("ASAAS_PRODUCTION_URL", "https://api.asaas.com/v3"),
			WebhookToken:  getEnv("ASAAS_WEBHOOK_TOKEN", ""),
		},

		EventName: getEnv("EVENT_NAME", "Workshop"),

		CertificateFee:      getEnvFloat("CERTIFICATE_FEE", 20.00),
		ChargeDueDays:       getEnvInt("CHARGE_DUE_DAYS", 7),
		ChargeDescription:   getEnv("CHARGE_DESCRIPTION", "Certificado de participação no workshop"),
		WebhookAckUnmatched: getEnvBool("WEBHOOK_ACK_UNMATCHED", true),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		EmailDisabled:    getEnvBool("EMAIL_DISABLED", false),
		EmailSyncTimeout: getEnvDuration("EMAIL_SYNC_TIMEOUT", 0),

		JWTSecret:          getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTAccessTTL:       getEnvDuration("JWT_ACCESS_TTL", 8*time.Hour),
		LoginAttemptWindow: getEnvPositiveDuration("LOGIN_ATTEMPT_WINDOW", defaultLoginAttemptWindow),
	}
}

// UsesDefaultJWTSecret reports whether admin tokens are signed with the
// well-known development secret.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvPositiveDuration rejects zero and negative values, which would make
// a ticker or a time window meaningless.
func getEnvPositiveDuration(key string, fallback time.Duration) time.Duration {
	if d := getEnvDuration(key, fallback); d > 0 {
		return d
	}
	return fallback
}
