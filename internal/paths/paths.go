// Package paths resolves the daemon's config and log file locations.
package paths

import (
	"os"
	"path/filepath"
)

// UserConfigDir returns the base config directory for the current user.
// On Linux this is typically ~/.config.
func UserConfigDir() (string, error) {
	return os.UserConfigDir()
}

// MovieIndexDir returns the movieindexd config directory, ~/.config/movieindexd.
func MovieIndexDir() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "movieindexd"), nil
}

// ConfigPath returns the default config file path, ~/.config/movieindexd/config.yaml.
func ConfigPath() (string, error) {
	dir, err := MovieIndexDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LogPath returns the default log file path, ~/.config/movieindexd/logs/movieindexd.log.
func LogPath() (string, error) {
	dir, err := MovieIndexDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "movieindexd.log"), nil
}
