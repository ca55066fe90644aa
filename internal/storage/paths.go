// Package storage persists player profiles, achievements, preferences and
// finished games in BadgerDB.
package storage

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

const appName = "royalchess"

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/royalchess/
// - Linux: ~/.local/share/royalchess/
// - Windows: %APPDATA%/royalchess/
func GetDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "home directory")
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", errors.Wrap(err, "home directory")
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// XDG_DATA_HOME wins over ~/.local/share
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", errors.Wrap(err, "home directory")
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", errors.Wrapf(err, "create %s", dataDir)
	}
	return dataDir, nil
}

// GetDatabaseDir returns the directory for the BadgerDB database.
func GetDatabaseDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}

	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", errors.Wrapf(err, "create %s", dbDir)
	}
	return dbDir, nil
}

// ResolveDatabaseDir picks the database directory: an explicit path first,
// then $ROYALCHESS_DB, then the platform data directory.
func ResolveDatabaseDir(explicit string) (string, error) {
	dir := explicit
	if dir == "" {
		dir = os.Getenv("ROYALCHESS_DB")
	}
	if dir == "" {
		return GetDatabaseDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	return dir, nil
}
