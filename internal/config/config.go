// Package config resolves application settings from defaults, an optional
// YAML file, .env files and MEMORIA_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"memoria/internal/utils"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	API     APIConfig     `yaml:"api"`
	UI      UIConfig      `yaml:"ui"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Backend      string        `yaml:"backend"`
	DBPath       string        `yaml:"db_path"`
	Dir          string        `yaml:"dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// SecretsInKeyring keeps the API key in the OS credential store instead
	// of the regular backend.
	SecretsInKeyring bool   `yaml:"secrets_in_keyring"`
	KeyringBackend   string `yaml:"keyring_backend"`
	KeyringDir       string `yaml:"keyring_dir"`
	// KeyringPassword unlocks the encrypted file keyring. Environment only.
	KeyringPassword string `yaml:"-"`
}

type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	DefaultModel string        `yaml:"default_model"`
}

type UIConfig struct {
	NotificationDuration time.Duration `yaml:"notification_duration"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | pretty | json
}

// Load builds the configuration. An empty path skips the YAML file; a
// non-empty path must exist.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := utils.LoadEnv(envFiles...); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot repair on its own.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage backend must be %q, %q or %q", BackendSQLite, BackendFile, BackendMemory))
	}
	if c.Storage.PollInterval < 0 {
		errs = append(errs, errors.New("storage poll interval must not be negative"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.UI.NotificationDuration <= 0 {
		errs = append(errs, errors.New("notification duration must be positive"))
	}
	switch c.Log.Format {
	case "text", "pretty", "json":
	default:
		errs = append(errs, errors.New("log format must be 'text', 'pretty' or 'json'"))
	}
	return errors.Join(errs...)
}
