// Package config loads the gateway configuration.
//
// Sources, lowest priority first: built-in defaults, an optional YAML file,
// a .env file in the working directory, then PORTAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PORTAL_"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the gateway configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig describes the portal REST API.
type BackendConfig struct {
	BaseURL           string        `yaml:"base_url"`
	UserAgent         string        `yaml:"user_agent"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	SendAuthorization bool          `yaml:"send_authorization"`
}

// ServerConfig describes the gateway listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig selects query persistence. RedisAddr wins over LevelDBPath;
// with neither set the cache lives in memory only.
type CacheConfig struct {
	RedisAddr   string        `yaml:"redis_addr"`
	LevelDBPath string        `yaml:"leveldb_path"`
	GCTime      time.Duration `yaml:"gc_time"`
	RecordTTL   time.Duration `yaml:"record_ttl"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	Pretty     bool   `yaml:"pretty"`
	Production bool   `yaml:"production"`
}

// DefaultConfig returns the defaults used before any source is applied.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:           "http://localhost:8000/api",
			UserAgent:         "alumni-portal-gateway/1.0",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			SendAuthorization: true,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			GCTime:    10 * time.Minute,
			RecordTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Production: true,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file
// is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	var errs []error
	dur := func(name string, dst *time.Duration) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = d
	}
	boolean := func(name string, dst *bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}

	str("BASE_URL", &c.Backend.BaseURL)
	str("USER_AGENT", &c.Backend.UserAgent)
	dur("READ_TIMEOUT", &c.Backend.ReadTimeout)
	dur("WRITE_TIMEOUT", &c.Backend.WriteTimeout)
	boolean("SEND_AUTHORIZATION", &c.Backend.SendAuthorization)

	str("ADDR", &c.Server.Addr)
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	dur("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("LEVELDB_PATH", &c.Cache.LevelDBPath)
	dur("GC_TIME", &c.Cache.GCTime)
	dur("RECORD_TTL", &c.Cache.RecordTTL)

	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_PRETTY", &c.Log.Pretty)
	boolean("LOG_PRODUCTION", &c.Log.Production)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for values the gateway cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: backend base_url must be absolute (got %q)", ErrInvalidConfig, c.Backend.BaseURL)
	}
	if c.Backend.UserAgent == "" {
		return fmt.Errorf("%w: backend user_agent is required", ErrInvalidConfig)
	}
	if c.Backend.ReadTimeout <= 0 || c.Backend.WriteTimeout <= 0 {
		return fmt.Errorf("%w: backend timeouts must be positive", ErrInvalidConfig)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server addr is required", ErrInvalidConfig)
	}
	if c.Cache.GCTime <= 0 {
		return fmt.Errorf("%w: cache gc_time must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}
