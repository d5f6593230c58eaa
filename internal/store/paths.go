package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Swabber-io/syscomp/internal/constants"
)

// DataPath returns the path to the swabber data directory.
// On Unix: ~/.swabber
// On Windows: %USERPROFILE%\.swabber
func DataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName), nil
}

// DefaultDatabasePath returns ~/.swabber/swabber.db.
func DefaultDatabasePath() (string, error) {
	dir, err := DataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.DatabaseFileName), nil
}

// EnsureDir creates the directory holding path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
