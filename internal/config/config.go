package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/aleber123/nytt-sub001/pkg/config"
)

// Session and email queue backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const minTokenSecretLen = 32

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Drafts
	SessionBackend     string        `env:"SESSION_BACKEND" envDefault:"memory"`
	DraftTTL           time.Duration `env:"DRAFT_TTL" envDefault:"24h"`
	SessionSweepPeriod time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	TokenSecret        string        `env:"DRAFT_TOKEN_SECRET,required"`
	Locale             string        `env:"STOREFRONT_LOCALE" envDefault:"sv"`

	// Submission
	SubmitCooldown    time.Duration `env:"SUBMIT_COOLDOWN" envDefault:"10s"`
	SubmitTimeout     time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"30s"`
	SubmitInflightTTL time.Duration `env:"SUBMIT_INFLIGHT_TTL" envDefault:"2m"`

	// Redis
	RedisURL      string `env:"REDIS_URL"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Email queue
	EmailQueueBackend string `env:"EMAIL_QUEUE_BACKEND" envDefault:"memory"`
	PostgresHost      string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort      int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser      string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass      string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB        string `env:"STOREFRONT_DB_NAME" envDefault:"storefront"`
	PostgresSSL       string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Kafka. Events are published only when enabled.
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Downstream services
	PricingServiceURL string `env:"PRICING_SERVICE_URL" envDefault:"http://localhost:8020"`
	OrderServiceURL   string `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:8003"`

	// Circuit breaker settings for downstream service calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Notifications
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
	BusinessName  string `env:"BUSINESS_NAME" envDefault:"Legaliseringstjänst"`
	BusinessEmail string `env:"BUSINESS_EMAIL" envDefault:"info@example.se"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if len(c.TokenSecret) < minTokenSecretLen {
		return fmt.Errorf("DRAFT_TOKEN_SECRET must be at least %d characters", minTokenSecretLen)
	}
	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.SessionBackend)
	}
	switch c.EmailQueueBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("EMAIL_QUEUE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.EmailQueueBackend)
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive, got %s", c.DraftTTL)
	}
	if c.SessionSweepPeriod <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", c.SessionSweepPeriod)
	}
	if c.SubmitCooldown < 0 {
		return fmt.Errorf("SUBMIT_COOLDOWN must not be negative, got %s", c.SubmitCooldown)
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("SUBMIT_TIMEOUT must be positive, got %s", c.SubmitTimeout)
	}
	if c.SubmitInflightTTL < c.SubmitTimeout {
		return fmt.Errorf("SUBMIT_INFLIGHT_TTL (%s) must be at least SUBMIT_TIMEOUT (%s)", c.SubmitInflightTTL, c.SubmitTimeout)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	for name, rawURL := range map[string]string{
		"PRICING_SERVICE_URL": c.PricingServiceURL,
		"ORDER_SERVICE_URL":   c.OrderServiceURL,
		"PUBLIC_BASE_URL":     c.PublicBaseURL,
	} {
		if rawURL == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, rawURL, err)
		}
	}
	return nil
}

// CircuitBreakerTimeout returns how long the breaker stays open.
func (c *Config) CircuitBreakerTimeout() time.Duration {
	return time.Duration(c.CBTimeout) * time.Second
}
