package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8080/api")
	}

	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout)
	}

	if cfg.Store.Backend != BackendFile {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendFile)
	}

	if cfg.Store.Profile != "default" {
		t.Errorf("Store.Profile = %q, want %q", cfg.Store.Profile, "default")
	}

	if cfg.Redis.KeyPrefix != "finedge:" {
		t.Errorf("Redis.KeyPrefix = %q, want %q", cfg.Redis.KeyPrefix, "finedge:")
	}

	if cfg.Redis.TTL != 168*time.Hour {
		t.Errorf("Redis.TTL = %v, want 168h", cfg.Redis.TTL)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}

	if cfg.DevServer.Port != 8080 {
		t.Errorf("DevServer.Port = %d, want 8080", cfg.DevServer.Port)
	}

	if cfg.DevServer.AccessTokenTTL != 15*time.Minute {
		t.Errorf("DevServer.AccessTokenTTL = %v, want 15m", cfg.DevServer.AccessTokenTTL)
	}
}

func TestLoad_WithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finedge.yaml")
	content := `api:
  base_url: https://bank.example.com/api
  timeout: 3s
store:
  backend: redis
  profile: work
redis:
  url: redis://cache:6379/2
  ttl: 1h
logging:
  level: debug
  format: json
devserver:
  port: 9090
  access_token_ttl: 30s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://bank.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Errorf("Store.Backend = %q, want redis", cfg.Store.Backend)
	}
	if cfg.Store.Profile != "work" {
		t.Errorf("Store.Profile = %q, want work", cfg.Store.Profile)
	}
	if cfg.Redis.URL != "redis://cache:6379/2" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if cfg.Redis.TTL != time.Hour {
		t.Errorf("Redis.TTL = %v, want 1h", cfg.Redis.TTL)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if cfg.DevServer.Port != 9090 {
		t.Errorf("DevServer.Port = %d, want 9090", cfg.DevServer.Port)
	}
	// Unset keys keep their defaults
	if cfg.Redis.KeyPrefix != "finedge:" {
		t.Errorf("Redis.KeyPrefix = %q, want default", cfg.Redis.KeyPrefix)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FINEDGE_API_BASE_URL", "http://env.example.com/api")
	t.Setenv("FINEDGE_STORE_BACKEND", "memory")
	t.Setenv("FINEDGE_DEVSERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://env.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.DevServer.Port != 7070 {
		t.Errorf("DevServer.Port = %d, want 7070", cfg.DevServer.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("store:\n  backend: etcd\n"), 0600); err != nil {
		t.Fatal(err)
	}

	malformed := filepath.Join(dir, "malformed.yaml")
	if err := os.WriteFile(malformed, []byte("api: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"unknown backend", invalid},
		{"malformed yaml", malformed},
		{"explicit file missing", filepath.Join(dir, "absent.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Error("Load() expected error, got nil")
			}
		})
	}
}
