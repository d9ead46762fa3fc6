package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendAuto     = "auto"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	HTTP             HTTPConfig    `yaml:"http"`
	DatabaseURL      string        `yaml:"database_url" env:"DATABASE_URL"`
	Redis            RedisConfig   `yaml:"redis"`
	Session          SessionConfig `yaml:"session"`
	Auth             AuthConfig    `yaml:"auth"`
	ProductStateFile string        `yaml:"product_state_file" env:"PRODUCT_STATE_FILE" env-default:"./data/products.json"`
	ImagesDir        string        `yaml:"images_dir" env:"IMAGES_DIR" env-default:"./data/images"`
	AuditLogFile     string        `yaml:"audit_log_file" env:"AUDIT_LOG_FILE" env-default:"./data/audit.log"`
	LogFormat        string        `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	PublicBaseURL    string        `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
}

type HTTPConfig struct {
	Addr               string `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeoutSec     int    `yaml:"read_timeout_sec" env:"HTTP_READ_TIMEOUT_SEC" env-default:"10"`
	WriteTimeoutSec    int    `yaml:"write_timeout_sec" env:"HTTP_WRITE_TIMEOUT_SEC" env-default:"15"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec" env:"HTTP_SHUTDOWN_TIMEOUT_SEC" env-default:"20"`
}

func (h HTTPConfig) ReadTimeout() time.Duration { return seconds(h.ReadTimeoutSec) }
func (h HTTPConfig) WriteTimeout() time.Duration {
	return seconds(h.WriteTimeoutSec)
}
func (h HTTPConfig) ShutdownTimeout() time.Duration { return seconds(h.ShutdownTimeoutSec) }

type RedisConfig struct {
	// URL wins over Addr/Password/DB when set, e.g. redis://:pw@host:6379/0.
	URL      string `yaml:"url" env:"REDIS_URL"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Addr != ""
}

type SessionConfig struct {
	Backend      string `yaml:"backend" env:"SESSION_BACKEND" env-default:"auto"`
	TTLSec       int    `yaml:"ttl_sec" env:"SESSION_TTL_SEC" env-default:"7200"`
	CookieName   string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"shop.sid"`
	CookiePath   string `yaml:"cookie_path" env:"SESSION_COOKIE_PATH" env-default:"/"`
	CookieSecure bool   `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE" env-default:"false"`
}

func (s SessionConfig) TTL() time.Duration { return seconds(s.TTLSec) }

type AuthConfig struct {
	ResetTokenTTLSec int    `yaml:"reset_token_ttl_sec" env:"AUTH_RESET_TOKEN_TTL_SEC" env-default:"3600"`
	BcryptCost       int    `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST" env-default:"10"`
	UserStateFile    string `yaml:"user_state_file" env:"AUTH_USER_STATE_FILE" env-default:"./data/users.json"`
}

func (a AuthConfig) ResetTokenTTL() time.Duration { return seconds(a.ResetTokenTTLSec) }

// Load reads the environment, or path (YAML) overlaid by the environment
// when path is set, and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if strings.TrimSpace(path) != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.HTTP.ReadTimeoutSec <= 0 || c.HTTP.WriteTimeoutSec <= 0 || c.HTTP.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("HTTP timeouts must be > 0")
	}
	switch c.Session.Backend {
	case BackendAuto, BackendMemory:
	case BackendRedis:
		if !c.Redis.Configured() {
			return fmt.Errorf("SESSION_BACKEND=redis requires REDIS_URL or REDIS_ADDR")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("SESSION_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be auto, redis, postgres, or memory")
	}
	if c.Session.TTLSec <= 0 {
		return fmt.Errorf("SESSION_TTL_SEC must be > 0")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if !strings.HasPrefix(c.Session.CookiePath, "/") {
		return fmt.Errorf("SESSION_COOKIE_PATH must start with /")
	}
	if c.Auth.ResetTokenTTLSec <= 0 {
		return fmt.Errorf("AUTH_RESET_TOKEN_TTL_SEC must be > 0")
	}
	if c.DatabaseURL == "" && c.Auth.UserStateFile == "" {
		return fmt.Errorf("AUTH_USER_STATE_FILE must not be empty without DATABASE_URL")
	}
	if c.DatabaseURL == "" && c.ProductStateFile == "" {
		return fmt.Errorf("PRODUCT_STATE_FILE must not be empty without DATABASE_URL")
	}
	if c.ImagesDir == "" {
		return fmt.Errorf("IMAGES_DIR must not be empty")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL")
	}
	return nil
}

// SessionBackend resolves "auto": Redis when configured, then Postgres,
// then memory.
func (c Config) SessionBackend() string {
	if c.Session.Backend != BackendAuto {
		return c.Session.Backend
	}
	switch {
	case c.Redis.Configured():
		return BackendRedis
	case c.DatabaseURL != "":
		return BackendPostgres
	default:
		return BackendMemory
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
