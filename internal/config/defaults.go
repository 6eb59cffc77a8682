package config

import (
	"os"
	"path/filepath"

	"glb-merger/internal/domain"
)

// AppDirName is the per-user state directory under the home folder.
const AppDirName = ".glb-merger"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		LogLevel:    "info",
		HistoryPath: filepath.Join(HomeDir(), "history.db"),
	}
}

// HomeDir returns the per-user state directory.
func HomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, AppDirName)
}

// SettingsPath returns the default settings file location.
func SettingsPath() string {
	return filepath.Join(HomeDir(), "settings.toml")
}
