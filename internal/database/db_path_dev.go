//go:build !prod

package database

// GetDefaultDataDir returns the directory holding local state in development mode.
// In dev mode everything lives next to the project for easy inspection.
func GetDefaultDataDir() string {
	return "."
}

// GetDefaultDBPath returns the database path for development mode.
func GetDefaultDBPath() string {
	return "memoria.db"
}

func IsDevelopment() bool {
	return true
}
