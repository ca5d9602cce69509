package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/mcdev12/bananadoro/go/internal/pomodoro/engine"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bananadoro.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnv, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("Load() = %+v, want %+v", cfg, Default())
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
port: "9090"
tick_interval: 500ms
reap_grace_period: 2h
default_work_minutes: 50
default_break_minutes: 10
nats_subject: focus
allowed_origins:
  - https://bananadoro.app
`)
	t.Setenv("REAP_GRACE_PERIOD", "24h")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := Default()
	want.Port = "9090"
	want.TickInterval = 500 * time.Millisecond
	want.ReapGracePeriod = 24 * time.Hour
	want.DefaultWorkMinutes = 50
	want.DefaultBreakMinutes = 10
	want.NATSURL = "nats://localhost:4222"
	want.NATSSubject = "focus"
	want.LogFormat = "json"
	want.AllowedOrigins = []string{"https://bananadoro.app"}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoad_PathFromEnvironment(t *testing.T) {
	t.Setenv(PathEnv, writeFile(t, "port: \"7000\"\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "7000" {
		t.Fatalf("Port = %q, want 7000", cfg.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "missing file", file: filepath.Join(t.TempDir(), "absent.yaml")},
		{name: "bad yaml", file: writeFile(t, "port: [")},
		{name: "bad duration env", env: map[string]string{"TICK_INTERVAL": "soon"}},
		{name: "zero grace", env: map[string]string{"REAP_GRACE_PERIOD": "0s"}},
		{name: "negative work", env: map[string]string{"DEFAULT_WORK_MINUTES": "-5"}},
		{name: "unknown log format", env: map[string]string{"LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(PathEnv, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(tt.file); err == nil {
				t.Fatal("Load() succeeded, want error")
			}
		})
	}
}

func TestConfig_Engine(t *testing.T) {
	cfg := Default()
	cfg.DefaultWorkMinutes = 0.5
	cfg.ReapGracePeriod = time.Hour

	got := cfg.Engine()
	want := engine.Config{
		Defaults:        session.Durations{Work: 30, Break: 300},
		TickInterval:    time.Second,
		ReapGracePeriod: time.Hour,
	}
	if got != want {
		t.Fatalf("Engine() = %+v, want %+v", got, want)
	}
}
