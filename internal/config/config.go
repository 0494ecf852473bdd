// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the profile/organization/analysis store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis URL for client-persisted setup flags; empty falls back to the in-memory store.
	RedisURL string `mapstructure:"REDIS_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used by the dev identity provider to sign session tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used to validate session tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "ranklens-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "ranklens-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTL is the session token lifetime (e.g. "24h") for the dev identity provider.
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12. Used by the dev identity provider.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// IdentityProviderURL is the base URL of the remote identity provider; empty enables the in-process dev provider.
	IdentityProviderURL string `mapstructure:"IDENTITY_PROVIDER_URL"`
	// DevSignInEnabled exposes POST /dev/signin for the in-process dev identity provider.
	// Must not be true when Env is production (Load fails).
	DevSignInEnabled bool `mapstructure:"DEV_SIGNIN_ENABLED"`
	// AnalysisTriggerURL is the job engine endpoint that accepts "analyze this domain" submissions.
	AnalysisTriggerURL string `mapstructure:"ANALYSIS_TRIGGER_URL"`
	// AnalysisAPIKey authenticates submissions to the job engine; optional.
	AnalysisAPIKey string `mapstructure:"ANALYSIS_API_KEY"`
	// RuntimeTTL is how long an idle per-session runtime is kept before eviction (e.g. "30m").
	RuntimeTTL string `mapstructure:"RUNTIME_TTL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317); empty disables OTel export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, the server emits telemetry events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default ranklens-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_ISSUER", "ranklens-auth")
	v.SetDefault("JWT_AUDIENCE", "ranklens-api")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("IDENTITY_PROVIDER_URL", "")
	v.SetDefault("DEV_SIGNIN_ENABLED", false)
	v.SetDefault("ANALYSIS_TRIGGER_URL", "")
	v.SetDefault("ANALYSIS_API_KEY", "")
	v.SetDefault("RUNTIME_TTL", "30m")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "ranklens-telemetry")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "ranklens-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.DevSignInEnabled && cfg.Env == "production" {
		return nil, errors.New("config: DEV_SIGNIN_ENABLED must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// SessionTTLDuration parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// RuntimeTTLDuration parses RuntimeTTL as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) RuntimeTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.RuntimeTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// TelemetryKafkaBrokersList splits TelemetryKafkaBrokers on commas, trimming empty entries.
func (c *Config) TelemetryKafkaBrokersList() []string {
	raw := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}
