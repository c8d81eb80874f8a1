package config

import (
	"path/filepath"
	"time"

	"memoria/internal/database"
)

const (
	DefaultAPIBaseURL           = "http://localhost:8000/api"
	DefaultAPITimeout           = 30 * time.Second
	DefaultModel                = "openai/gpt-4"
	DefaultNotificationDuration = 6000 * time.Millisecond
	DefaultPollInterval         = 2 * time.Second
)

// Default returns a fully populated configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:          BackendSQLite,
			DBPath:           database.GetDefaultDBPath(),
			Dir:              filepath.Join(database.GetDefaultDataDir(), "state"),
			PollInterval:     DefaultPollInterval,
			SecretsInKeyring: !database.IsDevelopment(),
		},
		API: APIConfig{
			BaseURL:      DefaultAPIBaseURL,
			Timeout:      DefaultAPITimeout,
			DefaultModel: DefaultModel,
		},
		UI: UIConfig{
			NotificationDuration: DefaultNotificationDuration,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// applyDefaults fills zero-value fields left empty by the file or environment.
func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = defaults.Storage.DBPath
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaults.Storage.Dir
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaults.API.Timeout
	}
	if cfg.API.DefaultModel == "" {
		cfg.API.DefaultModel = defaults.API.DefaultModel
	}
	if cfg.UI.NotificationDuration == 0 {
		cfg.UI.NotificationDuration = defaults.UI.NotificationDuration
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}
