package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice.yaml")
	content := `
server:
  port: 9000
store:
  driver: redis
redis:
  address: redis:6379
generator:
  timeout: 30s
  max_retries: 4
prefetch:
  concurrency: 3
auth:
  clients:
    - name: web
      key: sk_web_123456
      permissions: ["records:*"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PRACTICE_CONFIG", path)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("PREFETCH_CONCURRENCY", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("env should override file: port %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "redis" || cfg.Redis.Address != "redis:6379" {
		t.Errorf("file values not applied: %+v %+v", cfg.Store, cfg.Redis)
	}
	if cfg.Redis.Prefix != "practice:" {
		t.Errorf("default lost for unset key: %q", cfg.Redis.Prefix)
	}
	if cfg.Generator.Timeout != 30*time.Second || cfg.Generator.MaxRetries != 4 {
		t.Errorf("generator file values not applied: %+v", cfg.Generator)
	}
	if cfg.Prefetch.Concurrency != 3 {
		t.Errorf("invalid env value should keep file value, got %d", cfg.Prefetch.Concurrency)
	}
	if len(cfg.Auth.Clients) != 1 || cfg.Auth.Clients[0].Permissions[0] != "records:*" {
		t.Errorf("auth clients not loaded: %+v", cfg.Auth.Clients)
	}
	if cfg.Server.Address() != "0.0.0.0:9100" {
		t.Errorf("unexpected address %s", cfg.Server.Address())
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("PRACTICE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestAPIKeysFromEnv(t *testing.T) {
	t.Setenv("API_KEYS", "web:sk_web_1, sk_raw_2 ,")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	clients := cfg.Auth.Clients
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %+v", clients)
	}
	if clients[0].Name != "web" || clients[0].Key != "sk_web_1" {
		t.Errorf("unexpected first client: %+v", clients[0])
	}
	if clients[1].Name != "client-2" || clients[1].Key != "sk_raw_2" || clients[1].Permissions[0] != "*" {
		t.Errorf("unexpected second client: %+v", clients[1])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }},
		{"redis without address", func(c *Config) { c.Store.Driver = "redis"; c.Redis.Address = "" }},
		{"unknown generator mode", func(c *Config) { c.Generator.Mode = "grpc" }},
		{"http without endpoint", func(c *Config) { c.Generator.Mode = GeneratorHTTP }},
		{"zero timeout", func(c *Config) { c.Generator.Timeout = 0 }},
		{"zero concurrency", func(c *Config) { c.Prefetch.Concurrency = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"client without key", func(c *Config) { c.Auth.Clients = []ClientConfig{{Name: "x"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
