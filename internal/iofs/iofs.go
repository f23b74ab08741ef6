// Package iofs prepares the file system locations ga2 depends on:
// the config directory and the log directory.
package iofs

import (
	_ "embed"
	"os"

	"github.com/thebinaryforest/ga2/pkg/config"
)

//go:embed ga2.yaml
var ConfigYAML string

// EnsureDirs creates the config and log directories if missing.
func EnsureDirs(homeDir string) error {
	dirs := []string{
		config.ConfigDir(homeDir),
		config.LogDir(homeDir),
	}
	for _, v := range dirs {
		if err := touchDir(v); err != nil {
			return err
		}
	}
	return nil
}

func touchDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return CreateDirError(dir, err)
	}

	return nil
}

// EnsureConfigFile writes the documented default ga2.yaml to the config
// directory if no config file exists yet. Never overwrites.
func EnsureConfigFile(homeDir string) error {
	configPath := config.ConfigFilePath(homeDir)

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	if err := os.WriteFile(configPath, []byte(ConfigYAML), 0644); err != nil {
		return WriteFileError(configPath, err)
	}

	return nil
}
