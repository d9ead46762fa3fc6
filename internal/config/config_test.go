package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"HTTP_ADDR", "HTTP_READ_TIMEOUT_SEC", "HTTP_WRITE_TIMEOUT_SEC", "HTTP_SHUTDOWN_TIMEOUT_SEC",
	"DATABASE_URL", "REDIS_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"SESSION_BACKEND", "SESSION_TTL_SEC", "SESSION_COOKIE_NAME", "SESSION_COOKIE_PATH", "SESSION_COOKIE_SECURE",
	"AUTH_RESET_TOKEN_TTL_SEC", "AUTH_BCRYPT_COST", "AUTH_USER_STATE_FILE",
	"PRODUCT_STATE_FILE", "IMAGES_DIR", "AUDIT_LOG_FILE", "LOG_FORMAT", "PUBLIC_BASE_URL",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default HTTP addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ReadTimeout() != 10*time.Second {
		t.Fatalf("expected default read timeout 10s, got %v", cfg.HTTP.ReadTimeout())
	}
	if cfg.HTTP.WriteTimeout() != 15*time.Second {
		t.Fatalf("expected default write timeout 15s, got %v", cfg.HTTP.WriteTimeout())
	}
	if cfg.HTTP.ShutdownTimeout() != 20*time.Second {
		t.Fatalf("expected default shutdown timeout 20s, got %v", cfg.HTTP.ShutdownTimeout())
	}
	if cfg.Session.TTL() != 2*time.Hour {
		t.Fatalf("expected default session ttl 2h, got %v", cfg.Session.TTL())
	}
	if cfg.Session.CookieName != "shop.sid" || cfg.Session.CookiePath != "/" || cfg.Session.CookieSecure {
		t.Fatalf("unexpected cookie defaults: %+v", cfg.Session)
	}
	if cfg.Auth.ResetTokenTTL() != time.Hour {
		t.Fatalf("expected default reset ttl 1h, got %v", cfg.Auth.ResetTokenTTL())
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Fatalf("expected default bcrypt cost 10, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected default log format json, got %q", cfg.LogFormat)
	}
	if cfg.SessionBackend() != BackendMemory {
		t.Fatalf("expected memory backend without redis or database, got %q", cfg.SessionBackend())
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "127.0.0.1:3000")
	t.Setenv("SESSION_TTL_SEC", "60")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("SESSION_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop?sslmode=disable")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:3000" {
		t.Fatalf("expected overridden addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Session.TTL() != time.Minute || !cfg.Session.CookieSecure {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.SessionBackend() != BackendPostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.SessionBackend())
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected text log format, got %q", cfg.LogFormat)
	}
}

func TestSessionBackendAutoPrefersRedis(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.SessionBackend() != BackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.SessionBackend())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"zero timeout":          {"HTTP_READ_TIMEOUT_SEC": "0"},
		"unknown backend":       {"SESSION_BACKEND": "mongo"},
		"redis without address": {"SESSION_BACKEND": "redis"},
		"postgres without url":  {"SESSION_BACKEND": "postgres"},
		"negative session ttl":  {"SESSION_TTL_SEC": "-1"},
		"relative cookie path":  {"SESSION_COOKIE_PATH": "shop"},
		"bad log format":        {"LOG_FORMAT": "xml"},
		"relative base url":     {"PUBLIC_BASE_URL": "/shop"},
		"non numeric ttl":       {"SESSION_TTL_SEC": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := []byte("http:\n  addr: \":9090\"\nsession:\n  ttl_sec: 120\nlog_format: text\n")
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SESSION_TTL_SEC", "30")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("expected addr from file, got %q", cfg.HTTP.Addr)
	}
	if cfg.Session.TTL() != 30*time.Second {
		t.Fatalf("expected env to override file ttl, got %v", cfg.Session.TTL())
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected log format from file, got %q", cfg.LogFormat)
	}
}
