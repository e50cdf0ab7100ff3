package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/storefront-reviews/pkg/config"
	"github.com/utafrali/storefront-reviews/pkg/database"
	"github.com/utafrali/storefront-reviews/pkg/tracing"
)

const ServiceName = "review-page"

// Storage backends for products and reviews.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
)

// Analyzer providers.
const (
	AnalyzerOpenAI = "openai"
	AnalyzerHTTP   = "http"
	AnalyzerNoop   = "noop"
)

const devSessionSecret = "dev-only-review-session-secret-change-me"

// Config holds all configuration for the review page service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"REVIEW_HTTP_PORT" envDefault:"8011"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"firestore"`

	// Firestore
	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID" envDefault:"storefront-dev"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"reviews"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"reviews_secret"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"review_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis (drafts)
	RedisEnabled    bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	DraftTTLMinutes int    `env:"DRAFT_TTL_MINUTES" envDefault:"120"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Comment analyzer
	AnalyzerProvider       string `env:"ANALYZER_PROVIDER" envDefault:"openai"`
	AnalyzerURL            string `env:"ANALYZER_URL" envDefault:"https://api.openai.com/v1/"`
	AnalyzerModel          string `env:"ANALYZER_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIAPIKey           string `env:"OPENAI_API_KEY"`
	AnalyzerTimeoutSeconds int    `env:"ANALYZER_TIMEOUT_SECONDS" envDefault:"30"`
	AnalyzerMaxRetries     int    `env:"ANALYZER_MAX_RETRIES" envDefault:"0"`

	// Product lookup
	CatalogLoadWaitMs          int `env:"CATALOG_LOAD_WAIT_MS" envDefault:"300"`
	CatalogCacheTTLSeconds     int `env:"CATALOG_CACHE_TTL_SECONDS" envDefault:"60"`
	CatalogCacheSize           int `env:"CATALOG_CACHE_SIZE" envDefault:"10000"`
	CatalogFetchTimeoutSeconds int `env:"CATALOG_FETCH_TIMEOUT_SECONDS" envDefault:"10"`

	// Sessions
	SessionSecret       string `env:"SESSION_SECRET" envDefault:"dev-only-review-session-secret-change-me"`
	SessionCookieSecure bool   `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	// Submit rate limiting, per session
	SubmitRateLimitRPS   float64 `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"2"`
	SubmitRateLimitBurst int     `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"5"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	return cfg, nil
}

// Validate checks the parsed configuration. It is called by pkgconfig.Load.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}

	switch c.StoreBackend {
	case StoreFirestore:
		if c.FirestoreProjectID == "" {
			errs = append(errs, errors.New("FIRESTORE_PROJECT_ID is required for the firestore backend"))
		}
	case StorePostgres:
		if c.PostgresHost == "" {
			errs = append(errs, errors.New("POSTGRES_HOST is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreFirestore, StorePostgres, c.StoreBackend))
	}

	switch c.AnalyzerProvider {
	case AnalyzerOpenAI, AnalyzerNoop:
	case AnalyzerHTTP:
		if c.AnalyzerURL == "" {
			errs = append(errs, errors.New("ANALYZER_URL is required for the http analyzer"))
		}
	default:
		errs = append(errs, fmt.Errorf("ANALYZER_PROVIDER must be one of openai, http, noop, got %q", c.AnalyzerProvider))
	}
	if c.AnalyzerTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("ANALYZER_TIMEOUT_SECONDS must be positive"))
	}
	if c.AnalyzerMaxRetries < 0 {
		errs = append(errs, errors.New("ANALYZER_MAX_RETRIES must not be negative"))
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}
	// Without a cache a fetch slower than the load wait never reaches the page.
	if c.CatalogCacheTTLSeconds <= 0 || c.CatalogCacheSize <= 0 {
		errs = append(errs, errors.New("CATALOG_CACHE_TTL_SECONDS and CATALOG_CACHE_SIZE must be positive"))
	}
	if c.CatalogFetchTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("CATALOG_FETCH_TIMEOUT_SECONDS must be positive"))
	}
	if c.CatalogLoadWaitMs < 0 {
		errs = append(errs, errors.New("CATALOG_LOAD_WAIT_MS must not be negative"))
	}
	if c.DraftTTLMinutes <= 0 {
		errs = append(errs, errors.New("DRAFT_TTL_MINUTES must be positive"))
	}
	if c.SubmitRateLimitRPS <= 0 || c.SubmitRateLimitBurst <= 0 {
		errs = append(errs, errors.New("SUBMIT_RATE_LIMIT_RPS and SUBMIT_RATE_LIMIT_BURST must be positive"))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.Environment == "production" && c.SessionSecret == devSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

// PostgresConfig returns the pool configuration for the postgres backend.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

func (c *Config) TracingConfig() tracing.Config {
	tc := tracing.DefaultConfig(ServiceName)
	tc.Environment = c.Environment
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	tc.Enabled = c.OTELEnabled
	return tc
}

func (c *Config) DraftTTL() time.Duration {
	return time.Duration(c.DraftTTLMinutes) * time.Minute
}

func (c *Config) AnalyzerTimeout() time.Duration {
	return time.Duration(c.AnalyzerTimeoutSeconds) * time.Second
}

func (c *Config) CatalogLoadWait() time.Duration {
	return time.Duration(c.CatalogLoadWaitMs) * time.Millisecond
}

func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLSeconds) * time.Second
}

func (c *Config) CatalogFetchTimeout() time.Duration {
	return time.Duration(c.CatalogFetchTimeoutSeconds) * time.Second
}

func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
