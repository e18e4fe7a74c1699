package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rmax-ai/borrowd/pkg/store"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != defaultAddr {
		t.Errorf("expected addr %s, got %s", defaultAddr, cfg.Addr)
	}
	if cfg.DBPath != store.MemoryPath {
		t.Errorf("expected in-memory journal by default, got %s", cfg.DBPath)
	}
	if cfg.SeedPath != "" || cfg.RedisAddr != "" {
		t.Errorf("expected no seed and no redis, got %q and %q", cfg.SeedPath, cfg.RedisAddr)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected default cache ttl of 5m, got %v", cfg.CacheTTL)
	}
	if cfg.MaxVisited != 100000 {
		t.Errorf("expected default max visited of 100000, got %d", cfg.MaxVisited)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("unexpected log settings %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	t.Setenv("BORROWD_PORT", "9191")
	t.Setenv("BORROWD_SEED_PATH", "fixtures/seed.yaml")
	t.Setenv("BORROWD_REDIS_ADDR", "localhost:6379")
	t.Setenv("BORROWD_MAX_VISITED", "50")
	t.Setenv("BORROWD_LOG_FORMAT", "Console")

	cfg, err := LoadConfig([]string{"-db", "journal.db", "-max-visited", "75", "-cache-ttl", "30s"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != "127.0.0.1:9191" {
		t.Errorf("expected port from env, got %s", cfg.Addr)
	}
	if want := filepath.Join(cwd, "journal.db"); cfg.DBPath != want {
		t.Errorf("expected %s, got %s", want, cfg.DBPath)
	}
	if want := filepath.Join(cwd, "fixtures/seed.yaml"); cfg.SeedPath != want {
		t.Errorf("expected %s, got %s", want, cfg.SeedPath)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected redis addr %s", cfg.RedisAddr)
	}
	if cfg.MaxVisited != 75 {
		t.Errorf("flag should override env, got %d", cfg.MaxVisited)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("unexpected cache ttl %v", cfg.CacheTTL)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("expected normalized log format, got %s", cfg.LogFormat)
	}
}

func TestLoadConfig_AddrPrecedence(t *testing.T) {
	t.Setenv("BORROWD_ADDR", "0.0.0.0:8000")
	t.Setenv("BORROWD_PORT", "9191")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != "0.0.0.0:8000" {
		t.Errorf("BORROWD_ADDR should win over BORROWD_PORT, got %s", cfg.Addr)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		errorSubstr string
	}{
		{
			name:        "zero cache ttl from flag",
			args:        []string{"-cache-ttl", "0s"},
			errorSubstr: "cache ttl must be positive",
		},
		{
			name:        "invalid cache ttl from flag",
			args:        []string{"-cache-ttl", "soon"},
			errorSubstr: "invalid cache ttl",
		},
		{
			name:        "negative cache ttl from env",
			envVars:     map[string]string{"BORROWD_CACHE_TTL": "-1m"},
			errorSubstr: "BORROWD_CACHE_TTL must be positive",
		},
		{
			name:        "invalid cache ttl from env",
			envVars:     map[string]string{"BORROWD_CACHE_TTL": "soon"},
			errorSubstr: "invalid BORROWD_CACHE_TTL",
		},
		{
			name:        "invalid max visited from env",
			envVars:     map[string]string{"BORROWD_MAX_VISITED": "lots"},
			errorSubstr: "invalid BORROWD_MAX_VISITED",
		},
		{
			name:        "negative max visited",
			args:        []string{"-max-visited", "-1"},
			errorSubstr: "max-visited cannot be negative",
		},
		{
			name:        "empty addr",
			args:        []string{"-addr", " "},
			errorSubstr: "addr cannot be empty",
		},
		{
			name:        "unknown flag",
			args:        []string{"-policy", "x.json"},
			errorSubstr: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(tt.args)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errorSubstr)
			}
			if !strings.Contains(err.Error(), tt.errorSubstr) {
				t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
			}
		})
	}
}
