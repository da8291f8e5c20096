package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 2333 {
		t.Errorf("port = %d", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default env should be development")
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.SQLitePath() != "data/hindsight.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Reminder.Enable || cfg.Reminder.Hour != 20 {
		t.Errorf("reminder = %+v", cfg.Reminder)
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
port: 8080
env: Production
storage:
  driver: REDIS
redis:
  host: cache.internal
  port: 6380
  db: 2
reminder:
  enable: true
  hour: 8
  minute: 30
feedback:
  endpoint: "  https://collector.example.com/v1/feedback  "
allowed_origins:
  - "app.example.com"
  - "   "
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.IsDev() {
		t.Errorf("port/env = %d %s", cfg.Port, cfg.Env)
	}
	if cfg.Storage.Driver != DriverRedis {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if got := cfg.RedisURL(); got != "redis://cache.internal:6380/2" {
		t.Errorf("redis url = %q", got)
	}
	if !cfg.Reminder.Enable || cfg.Reminder.Hour != 8 || cfg.Reminder.Minute != 30 {
		t.Errorf("reminder = %+v", cfg.Reminder)
	}
	if cfg.Feedback.Endpoint != "https://collector.example.com/v1/feedback" {
		t.Errorf("feedback endpoint = %q", cfg.Feedback.Endpoint)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "app.example.com" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"UnknownDriver", "storage:\n  driver: mongo\n", "storage.driver"},
		{"PortOutOfRange", "port: 70000\n", "port"},
		{"ReminderHour", "reminder:\n  hour: 24\n", "reminder.hour"},
		{"ReminderMinute", "reminder:\n  minute: 61\n", "reminder.minute"},
		{"UnknownField", "prot: 8080\n", "prot"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRedisURL(t *testing.T) {
	cfg := Default()
	if got := cfg.RedisURL(); got != "redis://localhost:6379/0" {
		t.Errorf("default url = %q", got)
	}

	cfg.Redis.URL = "redis://explicit:6390/1"
	if got := cfg.RedisURL(); got != "redis://explicit:6390/1" {
		t.Errorf("explicit url = %q", got)
	}

	cfg.Redis.URL = "bare-host:6379"
	if got := cfg.RedisURL(); got != "redis://bare-host:6379" {
		t.Errorf("bare url = %q", got)
	}

	cfg.Redis.URL = ""
	cfg.Redis.TLS = true
	cfg.Redis.Password = "secret"
	if got := cfg.RedisURL(); !strings.HasPrefix(got, "rediss://") || !strings.Contains(got, "secret") {
		t.Errorf("tls url = %q", got)
	}
}
