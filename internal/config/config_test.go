package config

import (
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL",
		"LOG_PRETTY", "API_BASE_PATH", "DB_PATH", "STORE_TIMEOUT",
		"RATE_RPS", "RATE_BURST", "AUTH_JWT_SECRET", "AUTH_SLUG_SECRET",
		"AUTH_ACCESS_TTL", "AUTH_REFRESH_TTL", "AUTH_COOKIE_NAME",
		"LOGIN_MAX_ATTEMPTS", "LOGIN_WINDOW", "REGISTER_MAX_ATTEMPTS",
		"REGISTER_WINDOW", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS",
		"HSTS_MAX_AGE", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "test") // allow empty JWT secret

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q; want 8080", cfg.Port)
	}
	if cfg.DBPath != "polling.db" {
		t.Errorf("DBPath = %q; want polling.db", cfg.DBPath)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v; want 5s", cfg.StoreTimeout)
	}
	if cfg.Auth.LoginMaxAttempts != 5 || cfg.Auth.LoginWindow != 15*time.Minute {
		t.Errorf("login policy = %d/%v; want 5/15m", cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
	}
	if cfg.Auth.RegisterMaxAttempts != 3 || cfg.Auth.RegisterWindow != 60*time.Minute {
		t.Errorf("register policy = %d/%v; want 3/60m", cfg.Auth.RegisterMaxAttempts, cfg.Auth.RegisterWindow)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q; want /api/v1", cfg.APIBasePath)
	}
}

func TestLoad_RequiresJWTSecretInRelease(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "release")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when AUTH_JWT_SECRET empty in release mode")
	}

	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error with secret set: %v", err)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct{ k, v string }{
		{"LOG_LEVEL", "verbose"},
		{"READ_TIMEOUT", "-1s"},
		{"STORE_TIMEOUT", "-5s"},
		{"RATE_RPS", "-1"},
		{"RATE_BURST", "0"},
		{"LOGIN_MAX_ATTEMPTS", "0"},
		{"LOGIN_WINDOW", "-15m"},
		{"OTEL_TRACES_SAMPLER_ARG", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.k, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("GIN_MODE", "test")
			t.Setenv(tc.k, tc.v)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.k, tc.v)
			}
		})
	}
}

func TestLoad_NormalizesLogLevelAndMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "test")
	t.Setenv("LOG_LEVEL", "WARNING")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want warn", cfg.LogLevel)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"api", "/api"},
		{"/api/", "/api"},
		{"/api/v2", "/api/v2"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Errorf("normalizeBasePath(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a ,, b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("splitCSV = %v", got)
	}
	if splitCSV("") != nil {
		t.Fatalf("splitCSV(\"\") should be nil")
	}
}
