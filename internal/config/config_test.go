package config

import (
	"strings"
	"testing"
	"time"
)

// setCredentials fills every required provider secret so Load can get past
// credential validation.
func setCredentials(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"API_KEY":               "inbound-secret",
		"GOOGLE_API_KEY":        "g-key",
		"YELP_API_KEY":          "y-key",
		"CLOUDINARY_CLOUD_NAME": "demo",
		"CLOUDINARY_API_KEY":    "c-key",
		"CLOUDINARY_API_SECRET": "c-secret",
		"NOTION_API_KEY":        "n-key",
		"NOTION_DATABASE_ID":    "db-123",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Pipeline.CallTimeout != 10*time.Second {
		t.Errorf("CallTimeout = %v", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.RequestBudget != 30*time.Second {
		t.Errorf("RequestBudget = %v", cfg.Pipeline.RequestBudget)
	}
	if cfg.Pipeline.LookupAttempts != 3 {
		t.Errorf("LookupAttempts = %d", cfg.Pipeline.LookupAttempts)
	}
	if cfg.DBPath != "gastropath.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Errorf("rate = %v/%d", cfg.RateRPS, cfg.RateBurst)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("PIPELINE_CALL_TIMEOUT", "2s")
	t.Setenv("PIPELINE_LOOKUP_ATTEMPTS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warning normalized to warn", cfg.LogLevel)
	}
	if cfg.Pipeline.CallTimeout != 2*time.Second {
		t.Errorf("CallTimeout = %v", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.LookupAttempts != 5 {
		t.Errorf("LookupAttempts = %d", cfg.Pipeline.LookupAttempts)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	setCredentials(t)
	t.Setenv("NOTION_API_KEY", "")
	t.Setenv("YELP_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for missing credentials")
	}
	for _, want := range []string{"NOTION_API_KEY", "YELP_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %s", err, want)
		}
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"zero lookup attempts", "PIPELINE_LOOKUP_ATTEMPTS", "0"},
		{"zero rate burst", "RATE_BURST", "0"},
		{"sampler out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setCredentials(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s must fail validation", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_InvalidGinModeFallsBack(t *testing.T) {
	setCredentials(t)
	t.Setenv("GIN_MODE", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
}

func TestGetboolParsing(t *testing.T) {
	t.Setenv("FLAG_X", "yes")
	if !getbool("FLAG_X", false) {
		t.Error("yes must parse as true")
	}
	t.Setenv("FLAG_X", "off")
	if getbool("FLAG_X", true) {
		t.Error("off must parse as false")
	}
	t.Setenv("FLAG_X", "maybe")
	if !getbool("FLAG_X", true) {
		t.Error("unparseable values must keep the default")
	}
}
