package config

import (
	"path/filepath"
)

var (
	// AppName is used in generating file system paths.
	AppName = "ga2"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/ga2 by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/ga2/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the ga2.yaml file.
// Returns ~/.config/ga2/ga2.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "ga2.yaml")
}
