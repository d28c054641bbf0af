// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// provider credentials (Google Places, Yelp, Cloudinary, Notion), pipeline
// timeouts and retry policy, rate limiting, and observability knobs.
//
// Credentials are injected into each provider client at construction and are
// never read from the environment at call sites, keeping the clients testable
// with fake keys and mock transports.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	APIKey string // GOOGLE_API_KEY
}

// YelpConfig holds Yelp Fusion API settings.
type YelpConfig struct {
	APIKey string // YELP_API_KEY
}

// CloudinaryConfig holds Cloudinary upload credentials.
type CloudinaryConfig struct {
	CloudName string // CLOUDINARY_CLOUD_NAME
	APIKey    string // CLOUDINARY_API_KEY
	APISecret string // CLOUDINARY_API_SECRET
}

// NotionConfig holds the Notion integration token and target database.
type NotionConfig struct {
	APIKey     string // NOTION_API_KEY
	DatabaseID string // NOTION_DATABASE_ID
}

// PipelineConfig bounds outbound calls and the retry policy of the required
// place-lookup stage.
type PipelineConfig struct {
	CallTimeout    time.Duration // per outbound call, e.g. 10s
	RequestBudget  time.Duration // whole ingestion, e.g. 30s
	LookupAttempts int           // bounded retries for the place lookup, e.g. 3
	RetryBackoff   time.Duration // base backoff, doubled per attempt
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev
	LogFile   string // optional log file path ("" disables file output)

	// Auth
	APIKey string // inbound X-API-Key shared secret

	// Providers
	Google     GoogleConfig
	Yelp       YelpConfig
	Cloudinary CloudinaryConfig
	Notion     NotionConfig

	// Pipeline
	Pipeline PipelineConfig

	// Journal
	DBPath string // SQLite path for the ingestion journal

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "9999"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),
		LogFile:   getenv("LOG_FILE", "logs/gastropath.log"),

		APIKey: getenv("API_KEY", ""),

		Google: GoogleConfig{APIKey: getenv("GOOGLE_API_KEY", "")},
		Yelp:   YelpConfig{APIKey: getenv("YELP_API_KEY", "")},
		Cloudinary: CloudinaryConfig{
			CloudName: getenv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getenv("CLOUDINARY_API_KEY", ""),
			APISecret: getenv("CLOUDINARY_API_SECRET", ""),
		},
		Notion: NotionConfig{
			APIKey:     getenv("NOTION_API_KEY", ""),
			DatabaseID: getenv("NOTION_DATABASE_ID", ""),
		},

		Pipeline: PipelineConfig{
			CallTimeout:    getdur("PIPELINE_CALL_TIMEOUT", 10*time.Second),
			RequestBudget:  getdur("PIPELINE_REQUEST_BUDGET", 30*time.Second),
			LookupAttempts: getint("PIPELINE_LOOKUP_ATTEMPTS", 3),
			RetryBackoff:   getdur("PIPELINE_RETRY_BACKOFF", 250*time.Millisecond),
		},

		DBPath: getenv("DB_PATH", "gastropath.db"),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "gastropath"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.Pipeline.CallTimeout <= 0 || cfg.Pipeline.RequestBudget <= 0 {
		return cfg, errors.New("pipeline timeouts must be positive durations")
	}
	if cfg.Pipeline.LookupAttempts < 1 {
		return cfg, errors.New("PIPELINE_LOOKUP_ATTEMPTS must be >= 1")
	}
	if cfg.Pipeline.RetryBackoff < 0 {
		return cfg, errors.New("PIPELINE_RETRY_BACKOFF must be >= 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if err := requireCredentials(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// requireCredentials ensures all provider secrets are present. The pipeline
// talks to four upstreams on every request; starting without any of their
// keys would only fail later and noisier.
func requireCredentials(cfg Config) error {
	missing := []string{}
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("API_KEY", cfg.APIKey)
	check("GOOGLE_API_KEY", cfg.Google.APIKey)
	check("YELP_API_KEY", cfg.Yelp.APIKey)
	check("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	check("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	check("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)
	check("NOTION_API_KEY", cfg.Notion.APIKey)
	check("NOTION_DATABASE_ID", cfg.Notion.DatabaseID)
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
