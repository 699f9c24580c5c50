// Package config loads environment configuration, optionally from a .env
// file. CLI flags take precedence over everything here.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	// LibraryPath is the default music directory when none is given on the
	// command line.
	LibraryPath string
	// LogFile receives structured logs; the TUI owns the terminal.
	LogFile string
	// DBPath locates the settings/duration-cache database.
	DBPath string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		LibraryPath: os.Getenv("CADENCE_LIBRARY"),
		LogFile:     getEnvWithDefault("CADENCE_LOG_FILE", filepath.Join(cacheHome(), "cadence", "cadence.log")),
		DBPath:      getEnvWithDefault("CADENCE_DB", filepath.Join(dataHome(), "cadence", "cadence.db")),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// https://specifications.freedesktop.org/basedir/latest/#variables
func cacheHome() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".cache")
	}
	return dir
}

func dataHome() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return dir
}
