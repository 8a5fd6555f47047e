package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{"PORT", "LOG_LEVEL", "TICK_INTERVAL", "SCENARIO_DIR"}

// clearEnv unsets the process variables for the test and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		if old, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, old) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	p, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Port != DefaultPort || p.LogLevel != slog.LevelInfo || p.TickInterval != DefaultTickInterval || p.ScenarioDir != DefaultScenarioDir {
		t.Errorf("Unexpected defaults: %+v", p)
	}
	if p.Addr() != ":8080" {
		t.Errorf("Expected :8080, got %s", p.Addr())
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	body := "PORT=9090\nLOG_LEVEL=debug\nTICK_INTERVAL=250ms\nSCENARIO_DIR=/tmp/scenarios\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	// The environment wins over the file
	os.Setenv("PORT", "7070")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Port != 7070 {
		t.Errorf("Expected PORT from the environment, got %d", p.Port)
	}
	if p.LogLevel != slog.LevelDebug || p.TickInterval != 250*time.Millisecond || p.ScenarioDir != "/tmp/scenarios" {
		t.Errorf("Unexpected values from .env: %+v", p)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "http"},
		{"PORT", "70000"},
		{"LOG_LEVEL", "loud"},
		{"TICK_INTERVAL", "fast"},
		{"TICK_INTERVAL", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			os.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, " warn ": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}
