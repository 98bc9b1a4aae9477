/*
config.go - Runtime configuration for the tip engine

PURPOSE:
  One TOML file plus environment overrides. Defaults reproduce the
  distribution rules as shipped (3h proximity, 60 minute booking default,
  one cent tolerance), so an empty or missing file is a valid setup.

FILE:
  $HOME/.config/tipengine/config.toml unless a path is given.

    [server]
    port = 8080

    [database]
    path = "./data/tips.db"

    [log]
    level = "info"      # debug | info | warn | error
    format = "text"     # text | json

    [distribution]
    timezone = "America/New_York"
    currency = "USD"
    exempt_employees = ["Pat Owner"]
    proximity_threshold = "3h"
    default_booking_minutes = 60
    epsilon = "0.01"
    matcher = "proximity"   # proximity | identity | identity+proximity
    workers = 0             # 0 = one per CPU

    [scheduler]
    enabled = false
    interval = "1h"

EXEMPT EMPLOYEE:
  exempt_employees must name the employee who never receives tips
  (matched case-insensitively on the full name). The default list is
  empty because the name is site-specific; the engine logs a warning at
  startup until it is set.

ENV OVERRIDES:
  TIPENGINE_DB, TIPENGINE_PORT, TIPENGINE_TIMEZONE, TIPENGINE_LOG_LEVEL
*/
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/tips"
)

type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Log          LogConfig          `toml:"log"`
	Distribution DistributionConfig `toml:"distribution"`
	Scheduler    SchedulerConfig    `toml:"scheduler"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

type DistributionConfig struct {
	Timezone              string   `toml:"timezone"`
	Currency              string   `toml:"currency"`
	ExemptEmployees       []string `toml:"exempt_employees"`
	ProximityThreshold    string   `toml:"proximity_threshold"`
	DefaultBookingMinutes int      `toml:"default_booking_minutes"`
	Epsilon               string   `toml:"epsilon"`
	Matcher               string   `toml:"matcher"`
	Workers               int      `toml:"workers"`
}

// SchedulerConfig drives periodic runs while serving.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Path: "./data/tips.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Distribution: DistributionConfig{
			Timezone:              "UTC",
			Currency:              string(generic.USD),
			ProximityThreshold:    "3h",
			DefaultBookingMinutes: 60,
			Epsilon:               "0.01",
			Matcher:               string(tips.MatchProximity),
		},
		Scheduler: SchedulerConfig{
			Interval: "1h",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tipengine"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path, or the default location when path is empty. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TIPENGINE_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TIPENGINE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TIPENGINE_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("TIPENGINE_TIMEZONE"); v != "" {
		cfg.Distribution.Timezone = v
	}
	if v := os.Getenv("TIPENGINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Engine converts the [distribution] table into a validated tips.Config.
func (c *Config) Engine() (tips.Config, error) {
	d := c.Distribution
	out := tips.DefaultConfig()

	if d.Timezone != "" {
		loc, err := time.LoadLocation(d.Timezone)
		if err != nil {
			return out, &generic.ConfigurationError{Reason: "unknown timezone " + d.Timezone, Err: err}
		}
		out.Location = loc
	}
	if d.Currency != "" {
		out.Currency = generic.Currency(strings.ToUpper(d.Currency))
	}
	if d.ProximityThreshold != "" {
		threshold, err := time.ParseDuration(d.ProximityThreshold)
		if err != nil {
			return out, &generic.ConfigurationError{Reason: "proximity_threshold", Err: err}
		}
		out.ProximityThreshold = threshold
	}
	if d.DefaultBookingMinutes != 0 {
		out.DefaultBookingDuration = time.Duration(d.DefaultBookingMinutes) * time.Minute
	}
	if d.Epsilon != "" {
		eps, err := decimal.NewFromString(d.Epsilon)
		if err != nil {
			return out, &generic.ConfigurationError{Reason: "epsilon", Err: err}
		}
		out.Epsilon = eps
	}
	if d.Matcher != "" {
		out.Matcher = tips.MatchStrategy(d.Matcher)
	}
	if d.Workers > 0 {
		out.Workers = d.Workers
	}
	out.ExemptEmployees = append([]string(nil), d.ExemptEmployees...)

	if err := out.Validate(); err != nil {
		return out, &generic.ConfigurationError{Reason: "distribution settings", Err: err}
	}
	return out, nil
}

// SchedulerInterval parses [scheduler] interval.
func (c *Config) SchedulerInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scheduler.Interval)
	if err != nil {
		return 0, &generic.ConfigurationError{Reason: "scheduler interval", Err: err}
	}
	if d <= 0 {
		return 0, &generic.ConfigurationError{Reason: "scheduler interval must be positive"}
	}
	return d, nil
}

// SlogLevel maps the configured level name to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
