// Package config loads process settings from an optional .env file and the
// environment. Variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort         = 8080
	DefaultTickInterval = 500 * time.Millisecond
	DefaultScenarioDir  = "scenarios"
)

// Process holds the settings shared by the binaries.
type Process struct {
	Port         int
	LogLevel     slog.Level
	TickInterval time.Duration // 웹 실행기의 틱 간격 (엔진 자체는 틱 기반)
	ScenarioDir  string
}

// Load reads envFile (missing is fine) and then the process environment.
func Load(envFile string) (Process, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Process{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	p := Process{
		Port:         DefaultPort,
		LogLevel:     slog.LevelInfo,
		TickInterval: DefaultTickInterval,
		ScenarioDir:  DefaultScenarioDir,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Process{}, fmt.Errorf("invalid PORT %q", v)
		}
		p.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return Process{}, err
		}
		p.LogLevel = level
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Process{}, fmt.Errorf("invalid TICK_INTERVAL %q", v)
		}
		p.TickInterval = d
	}
	if v := os.Getenv("SCENARIO_DIR"); v != "" {
		p.ScenarioDir = v
	}
	return p, nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
}

// SetupLogger installs the default slog logger at the configured level.
func (p Process) SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: p.LogLevel}))
	slog.SetDefault(logger)
	return logger
}

// Addr is the listen address for the web server.
func (p Process) Addr() string {
	return ":" + strconv.Itoa(p.Port)
}
