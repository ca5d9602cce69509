package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/engine"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// PathEnv names the config file when no --config flag is given.
const PathEnv = "BANANADORO_CONFIG"

// Config is the process configuration. Values come from Default, then the
// optional YAML file, then environment variables.
type Config struct {
	Port            string        `yaml:"port" env:"PORT"`
	TickInterval    time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	ReapGracePeriod time.Duration `yaml:"reap_grace_period" env:"REAP_GRACE_PERIOD"`

	DefaultWorkMinutes  float64 `yaml:"default_work_minutes" env:"DEFAULT_WORK_MINUTES"`
	DefaultBreakMinutes float64 `yaml:"default_break_minutes" env:"DEFAULT_BREAK_MINUTES"`

	NATSURL     string `yaml:"nats_url" env:"NATS_URL"`
	NATSSubject string `yaml:"nats_subject" env:"NATS_SUBJECT"`

	// SettingsEnabled reads per-user defaults from Postgres using the DB_* variables.
	SettingsEnabled bool `yaml:"settings_enabled" env:"SETTINGS_ENABLED"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                "8080",
		TickInterval:        time.Second,
		ReapGracePeriod:     30 * time.Minute,
		DefaultWorkMinutes:  25,
		DefaultBreakMinutes: 5,
		NATSSubject:         "pomodoro",
		LogLevel:            "info",
		LogFormat:           "console",
		AllowedOrigins:      []string{"*"},
	}
}

// Load builds the configuration. path may be empty, in which case PathEnv is
// consulted; with neither set only defaults and the environment apply.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.ReapGracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("reap_grace_period must be positive, got %s", c.ReapGracePeriod))
	}
	if _, err := session.FromMinutes(c.DefaultWorkMinutes, c.DefaultBreakMinutes); err != nil {
		errs = append(errs, fmt.Errorf("default durations: %w", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Engine maps the configuration onto the engine's settings.
func (c Config) Engine() engine.Config {
	defaults, err := session.FromMinutes(c.DefaultWorkMinutes, c.DefaultBreakMinutes)
	if err != nil {
		defaults = session.DefaultDurations()
	}
	return engine.Config{
		Defaults:        defaults,
		TickInterval:    c.TickInterval,
		ReapGracePeriod: c.ReapGracePeriod,
	}
}
