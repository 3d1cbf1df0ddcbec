package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultRefreshThreshold is how much remaining lifetime triggers a
	// refresh. Observed product behavior is roughly ten minutes.
	DefaultRefreshThreshold = 10 * time.Minute

	// DefaultRefreshInterval is how often the background scheduler runs.
	DefaultRefreshInterval = 3 * time.Minute

	// DefaultSlowDownIncrement follows the Azure AD guidance of adding
	// five seconds to the poll interval on slow_down.
	DefaultSlowDownIncrement = 5 * time.Second

	// DefaultListenAddr binds the local API to loopback only.
	DefaultListenAddr = "127.0.0.1:7718"

	// DefaultLogLevel is the log level when none is configured.
	DefaultLogLevel = "info"

	// defaultConfigDir is the XDG-style directory under the user home.
	defaultConfigDir = ".config/skymap"
)

// DefaultScopes are requested when a tenant config lists none. The ARM scope
// covers both discovery and deployment; offline_access is appended by the
// device-code client regardless.
var DefaultScopes = []string{
	"https://management.azure.com/user_impersonation",
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultConfigDir, "config.yaml"), nil
}

// DefaultStorageDir returns the default token storage directory.
func DefaultStorageDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultConfigDir, "tokens"), nil
}

// applyDefaults fills zero values with defaults. Called by Load after
// parsing, before validation.
func applyDefaults(cfg *Config) error {
	if cfg.Auth.RefreshThreshold == 0 {
		cfg.Auth.RefreshThreshold = Duration(DefaultRefreshThreshold)
	}
	if cfg.Auth.RefreshInterval == 0 {
		cfg.Auth.RefreshInterval = Duration(DefaultRefreshInterval)
	}
	if cfg.Auth.SlowDownIncrement == 0 {
		cfg.Auth.SlowDownIncrement = Duration(DefaultSlowDownIncrement)
	}
	if len(cfg.Auth.Source.Scopes) == 0 {
		cfg.Auth.Source.Scopes = append([]string(nil), DefaultScopes...)
	}
	if len(cfg.Auth.Target.Scopes) == 0 {
		cfg.Auth.Target.Scopes = append([]string(nil), DefaultScopes...)
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Storage.Dir == "" {
		dir, err := DefaultStorageDir()
		if err != nil {
			return err
		}
		cfg.Storage.Dir = dir
	}
	return nil
}
