package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"skymap/pkg/auth"
)

// Config is the root configuration document.
type Config struct {
	// Auth holds the tenant slots and token-lifecycle tuning.
	Auth AuthConfig `yaml:"auth"`

	// Server configures the local HTTP API consumed by the UI shell.
	Server ServerConfig `yaml:"server"`

	// Storage configures where encrypted token records live.
	Storage StorageConfig `yaml:"storage"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel" env:"SKYMAP_LOG_LEVEL"`
}

// AuthConfig holds the two tenant slot configurations and the timing knobs
// of the token lifecycle. The thresholds are configuration rather than
// hard-coded constants; defaults live in defaults.go.
type AuthConfig struct {
	// Source is the tenant skymap scans.
	Source TenantConfig `yaml:"source"`

	// Target is the gameboard tenant skymap deploys to.
	Target TenantConfig `yaml:"target"`

	// RefreshThreshold is how close to expiry a token may get before a
	// refresh is triggered (both proactively and on read).
	RefreshThreshold Duration `yaml:"refreshThreshold"`

	// RefreshInterval is how often the background scheduler checks
	// authenticated slots. It must be shorter than the minimum access
	// token lifetime.
	RefreshInterval Duration `yaml:"refreshInterval"`

	// SlowDownIncrement is added to the poll interval each time the
	// authority answers slow_down.
	SlowDownIncrement Duration `yaml:"slowDownIncrement"`
}

// TenantConfig identifies one Azure AD tenant and the public client used to
// authenticate against it.
type TenantConfig struct {
	// TenantID is the directory (tenant) ID tokens must belong to.
	TenantID string `yaml:"tenantId"`

	// ClientID is the application (client) ID of the public client.
	ClientID string `yaml:"clientId"`

	// Scopes are the OAuth scopes requested at sign-in. offline_access is
	// always added so a refresh token is issued.
	Scopes []string `yaml:"scopes"`
}

// Configured reports whether the tenant has the minimum fields to start a
// device-code flow.
func (t TenantConfig) Configured() bool {
	return t.TenantID != "" && t.ClientID != ""
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	// ListenAddr is the loopback address the API binds to.
	ListenAddr string `yaml:"listenAddr" env:"SKYMAP_LISTEN_ADDR"`
}

// StorageConfig configures durable state.
type StorageConfig struct {
	// Dir is the directory holding the per-slot encrypted token records.
	Dir string `yaml:"dir" env:"SKYMAP_STORAGE_DIR"`
}

// TenantFor returns the tenant configuration for the given slot.
func (c *Config) TenantFor(slot auth.Slot) TenantConfig {
	switch slot {
	case auth.SlotTarget:
		return c.Auth.Target
	default:
		return c.Auth.Source
	}
}

// Duration is a time.Duration that unmarshals from human-readable YAML
// strings like "10m" or "45s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
