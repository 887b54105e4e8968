// Package config provides configuration helpers for go-venue-acoustics commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Default service configuration.
const (
	DefaultPort     = 8090
	DefaultLogLevel = "info"
	DefaultDBName   = "venues.db"
)

// Port returns the HTTP port from the PORT env var.
// Falls back to the provided default if unset or malformed.
func Port(defaultPort int) int {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			return p
		}
	}
	return defaultPort
}

// LogLevel returns the log level from LOG_LEVEL or the default.
func LogLevel() string {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return DefaultLogLevel
}

// VenueFile returns the venue spec path from VENUE_FILE, or the fallback.
func VenueFile(fallback string) string {
	if path := os.Getenv("VENUE_FILE"); path != "" {
		return path
	}
	return fallback
}

// Dir returns the per-user configuration directory (~/.config/venue-acoustics).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "venue-acoustics"), nil
}

// DBPath returns the venue catalog path from VENUE_DB, or a file in Dir().
func DBPath() (string, error) {
	if path := os.Getenv("VENUE_DB"); path != "" {
		return path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDBName), nil
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return nil
}

// ServerURL returns the base URL for a locally running server.
func ServerURL(host string, port int) string {
	return fmt.Sprintf("http://%s:%d", host, port)
}
