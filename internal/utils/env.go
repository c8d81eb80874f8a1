package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. With no arguments it loads the .env at the
// project root. Missing files are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		root, err := FindProjectRoot()
		if err != nil {
			return nil
		}
		paths = []string{filepath.Join(root, ".env")}
	}

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if FileExists(p) {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}
