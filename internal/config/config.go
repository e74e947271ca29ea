// Package config loads server configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/and161185/taskboard/internal/limiter"
)

// Limiter backends.
const (
	LimiterPostgres = "postgres"
	LimiterRedis    = "redis"
	LimiterNone     = "none"
)

// Config is the complete server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	DB      DBConfig      `yaml:"db"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Limiter LimiterConfig `yaml:"limiter"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	PublicOrigin   string   `yaml:"public_origin"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

type DBConfig struct {
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTKey    string        `yaml:"jwt_key"`
	AccessTTL time.Duration `yaml:"access_ttl"`
}

type StorageConfig struct {
	UploadDir string `yaml:"upload_dir"`
}

type LimiterConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	Window   time.Duration `yaml:"window"`
	MaxFails int           `yaml:"max_fails"`
	BlockFor time.Duration `yaml:"block_for"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:           ":5050",
			PublicOrigin:   "http://localhost:5050",
			MaxUploadBytes: 10 << 20,
			CORSOrigins:    []string{"*"},
		},
		Auth:    AuthConfig{AccessTTL: 24 * time.Hour},
		Storage: StorageConfig{UploadDir: "uploads"},
		Limiter: LimiterConfig{
			Backend:  LimiterPostgres,
			Window:   limiter.DefaultPolicy.Window,
			MaxFails: limiter.DefaultPolicy.MaxFails,
			BlockFor: limiter.DefaultPolicy.BlockFor,
		},
	}
}

// Load returns defaults overlaid with the YAML file at path (if non-empty) and then
// with TASKBOARD_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("TASKBOARD_ADDR", &c.HTTP.Addr)
	set("TASKBOARD_DSN", &c.DB.DSN)
	set("TASKBOARD_JWT_KEY", &c.Auth.JWTKey)
	set("TASKBOARD_PUBLIC_ORIGIN", &c.HTTP.PublicOrigin)
	set("TASKBOARD_UPLOAD_DIR", &c.Storage.UploadDir)
	set("TASKBOARD_REDIS_URL", &c.Limiter.RedisURL)
	set("TASKBOARD_LIMITER", &c.Limiter.Backend)
}

// Policy converts the limiter section to a limiter.Policy.
func (c *Config) Policy() limiter.Policy {
	return limiter.Policy{Window: c.Limiter.Window, MaxFails: c.Limiter.MaxFails, BlockFor: c.Limiter.BlockFor}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var problems []error
	if c.Auth.JWTKey == "" {
		problems = append(problems, errors.New("auth.jwt_key is required"))
	}
	if c.DB.DSN == "" {
		problems = append(problems, errors.New("db.dsn is required"))
	}
	if c.Auth.AccessTTL <= 0 {
		problems = append(problems, errors.New("auth.access_ttl must be positive"))
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		problems = append(problems, errors.New("http.max_upload_bytes must be positive"))
	}
	if !strings.HasPrefix(c.HTTP.PublicOrigin, "http://") && !strings.HasPrefix(c.HTTP.PublicOrigin, "https://") {
		problems = append(problems, fmt.Errorf("http.public_origin %q must be an absolute http(s) origin", c.HTTP.PublicOrigin))
	}
	switch c.Limiter.Backend {
	case LimiterPostgres, LimiterNone:
	case LimiterRedis:
		if c.Limiter.RedisURL == "" {
			problems = append(problems, errors.New("limiter.redis_url is required for the redis backend"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown limiter backend %q", c.Limiter.Backend))
	}
	if c.Limiter.Backend != LimiterNone && (c.Limiter.MaxFails <= 0 || c.Limiter.Window <= 0 || c.Limiter.BlockFor <= 0) {
		problems = append(problems, errors.New("limiter window, max_fails and block_for must be positive"))
	}
	return errors.Join(problems...)
}
