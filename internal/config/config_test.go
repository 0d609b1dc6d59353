package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if !cfg.Backend.SendAuthorization {
		t.Error("SendAuthorization should default to true")
	}
	if !cfg.Log.Production {
		t.Error("Production logging should be the default")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(env(map[string]string{
		"PORTAL_BASE_URL":           "https://portal.example.org/api",
		"PORTAL_READ_TIMEOUT":       "3s",
		"PORTAL_SEND_AUTHORIZATION": "false",
		"PORTAL_CORS_ORIGINS":       "https://a.example.org, https://b.example.org,",
		"PORTAL_REDIS_ADDR":         "localhost:6379",
		"PORTAL_LOG_LEVEL":          "debug",
		"PORTAL_USER_AGENT":         "",
	}))
	if err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.Backend.BaseURL != "https://portal.example.org/api" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", cfg.Backend.ReadTimeout)
	}
	if cfg.Backend.SendAuthorization {
		t.Error("SendAuthorization should be false")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.org" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.Cache.RedisAddr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	// Empty values leave the default in place.
	if cfg.Backend.UserAgent != DefaultConfig().Backend.UserAgent {
		t.Errorf("UserAgent = %q, want default", cfg.Backend.UserAgent)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(env(map[string]string{
		"PORTAL_READ_TIMEOUT": "soon",
		"PORTAL_LOG_PRETTY":   "maybe",
	}))
	if err == nil {
		t.Fatal("applyEnv() should fail on unparsable values")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "/api" }},
		{"missing user agent", func(c *Config) { c.Backend.UserAgent = "" }},
		{"zero timeout", func(c *Config) { c.Backend.WriteTimeout = 0 }},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero gc time", func(c *Config) { c.Cache.GCTime = 0 }},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	content := `
backend:
  base_url: https://hostel.example.org/api
  write_timeout: 20s
server:
  addr: ":9090"
  cors_origins: ["https://hostel.example.org"]
cache:
  leveldb_path: /var/lib/portal/cache
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.BaseURL != "https://hostel.example.org/api" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.WriteTimeout != 20*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.Backend.WriteTimeout)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Backend.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want default", cfg.Backend.ReadTimeout)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Cache.LevelDBPath != "/var/lib/portal/cache" {
		t.Errorf("LevelDBPath = %q", cfg.Cache.LevelDBPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORTAL_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q, want env override", cfg.Server.Addr)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("backend: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for malformed YAML")
	}
}
