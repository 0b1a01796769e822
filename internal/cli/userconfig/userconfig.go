// Package userconfig holds per-user CLI state that does not belong in the
// project file: the selected server and the last username used on each server.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	configDirName  = "hireloop"
	configFileName = "config.json"
)

// UserConfig represents the user's local configuration stored in ~/.config/hireloop/config.json
type UserConfig struct {
	SelectedServerURL string            `json:"selected_server_url"`
	Usernames         map[string]string `json:"usernames,omitempty"` // server URL -> last username
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName, configFileName), nil
}

// Load reads the user configuration file. A missing file is an empty config.
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration, creating the directory on first use
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// update loads the config, applies fn and saves the result
func update(fn func(*UserConfig)) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	fn(cfg)
	return Save(cfg)
}

// SetSelectedServer updates the selected server URL and saves the config
func SetSelectedServer(serverURL string) error {
	return update(func(cfg *UserConfig) {
		cfg.SelectedServerURL = serverURL
	})
}

// GetSelectedServer returns the selected server URL, or empty string if not set
func GetSelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedServerURL, nil
}

// SetLastUsername remembers username for serverURL. An empty username forgets it.
func SetLastUsername(serverURL, username string) error {
	return update(func(cfg *UserConfig) {
		if username == "" {
			delete(cfg.Usernames, serverURL)
			return
		}
		if cfg.Usernames == nil {
			cfg.Usernames = make(map[string]string)
		}
		cfg.Usernames[serverURL] = username
	})
}

// GetLastUsername returns the username last used on serverURL, if any
func GetLastUsername(serverURL string) (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.Usernames[serverURL], nil
}
