//go:build prod

package database

import (
	"log/slog"
	"os"
	"path/filepath"
)

// GetDefaultDataDir returns the directory holding local state in production mode.
// Falls back to the working directory when the user config dir is unavailable.
func GetDefaultDataDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Warn("failed to get user config dir, using working directory", "error", err)
		return "."
	}

	appDir := filepath.Join(configDir, "memoria")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		slog.Warn("failed to create app config dir, using working directory", "dir", appDir, "error", err)
		return "."
	}
	return appDir
}

// GetDefaultDBPath returns the database path for production mode.
// In production, the database is stored in the user's config directory.
func GetDefaultDBPath() string {
	return filepath.Join(GetDefaultDataDir(), "memoria.db")
}

func IsDevelopment() bool {
	return false
}
