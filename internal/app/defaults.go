package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - ALBUMD_CONFIG_PATH: config file location (default: ~/.config/albumd.toml)
//   - ALBUMD_HOME: base directory for albumd data (default: ~/.local/share/albumd)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"root":        filepath.Join(baseDir, "albums"),
	}, nil
}

// getConfigPath returns the config file path, checking ALBUMD_CONFIG_PATH first,
// then falling back to the default ~/.config/albumd.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("ALBUMD_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "albumd.toml"), nil
}

// getBaseDir returns the base directory for albumd data, checking ALBUMD_HOME
// first, then falling back to the XDG default ~/.local/share/albumd.
func getBaseDir() (string, error) {
	if path := os.Getenv("ALBUMD_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "albumd"), nil
}
