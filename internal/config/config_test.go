package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
app:
  name: courtbook
  environment: test
  port: 8080
database:
  driver: sqlite
  filename: build/data/test.db
cache:
  driver: memory
  ttl_seconds: 5
availability:
  debounce_ms: 250
jobs:
  completion_sweep_cron: "*/5 * * * *"
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("port = %d", cfg.App.Port)
	}
	if cfg.Cache.Driver != "memory" || cfg.Cache.TTLSeconds != 5 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Availability.DebounceMS != 250 {
		t.Errorf("debounce = %d", cfg.Availability.DebounceMS)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "missing port",
			mutate:  func(c string) string { return strings.Replace(c, "port: 8080", "port: 0", 1) },
			wantErr: "port",
		},
		{
			name:    "unknown database driver",
			mutate:  func(c string) string { return strings.Replace(c, "driver: sqlite", "driver: postgres", 1) },
			wantErr: "database driver",
		},
		{
			name:    "unknown cache driver",
			mutate:  func(c string) string { return strings.Replace(c, "driver: memory", "driver: memcached", 1) },
			wantErr: "cache driver",
		},
		{
			name: "redis without address",
			mutate: func(c string) string {
				return strings.Replace(c, "driver: memory", "driver: redis", 1)
			},
			wantErr: "redis address",
		},
		{
			name: "bad sweep cron",
			mutate: func(c string) string {
				return strings.Replace(c, `"*/5 * * * *"`, `"every five minutes"`, 1)
			},
			wantErr: "cron",
		},
		{
			name: "negative debounce",
			mutate: func(c string) string {
				return strings.Replace(c, "debounce_ms: 250", "debounce_ms: -1", 1)
			},
			wantErr: "debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mutate(validConfig)))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
