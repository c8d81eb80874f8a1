package config

import (
	"fmt"
	"strconv"
	"time"
)

const envPrefix = "MEMORIA_"

type lookupFunc func(string) (string, bool)

// applyEnv overrides cfg with any MEMORIA_* variables that are set.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("STORAGE_BACKEND", &cfg.Storage.Backend)
	str("DB_PATH", &cfg.Storage.DBPath)
	str("STORAGE_DIR", &cfg.Storage.Dir)
	str("KEYRING_BACKEND", &cfg.Storage.KeyringBackend)
	str("KEYRING_DIR", &cfg.Storage.KeyringDir)
	str("KEYRING_PASSWORD", &cfg.Storage.KeyringPassword)
	str("API_BASE_URL", &cfg.API.BaseURL)
	str("DEFAULT_MODEL", &cfg.API.DefaultModel)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup(envPrefix + "SECRETS_IN_KEYRING"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSECRETS_IN_KEYRING: %w", envPrefix, err)
		}
		cfg.Storage.SecretsInKeyring = b
	}

	if err := dur("POLL_INTERVAL", &cfg.Storage.PollInterval); err != nil {
		return err
	}
	if err := dur("API_TIMEOUT", &cfg.API.Timeout); err != nil {
		return err
	}
	return dur("NOTIFICATION_DURATION", &cfg.UI.NotificationDuration)
}
