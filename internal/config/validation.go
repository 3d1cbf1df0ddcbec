package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks internal consistency of the configuration.
//
// A slot may be entirely unconfigured (sign-in for it fails with
// InvalidTenantConfig), but a half-configured slot is rejected here so the
// failure happens at startup rather than mid-flow.
func (c *Config) Validate() error {
	if err := validateTenant("source", c.Auth.Source); err != nil {
		return err
	}
	if err := validateTenant("target", c.Auth.Target); err != nil {
		return err
	}

	if c.Auth.Source.Configured() && c.Auth.Target.Configured() &&
		c.Auth.Source.TenantID == c.Auth.Target.TenantID {
		return fmt.Errorf("source and target slots are configured with the same tenant %s; the slots must reference independent tenants", c.Auth.Source.TenantID)
	}

	if c.Auth.RefreshThreshold.Std() <= 0 {
		return fmt.Errorf("auth.refreshThreshold must be positive")
	}
	if c.Auth.RefreshInterval.Std() <= 0 {
		return fmt.Errorf("auth.refreshInterval must be positive")
	}
	if c.Auth.RefreshInterval.Std() >= c.Auth.RefreshThreshold.Std() {
		return fmt.Errorf("auth.refreshInterval (%s) must be shorter than auth.refreshThreshold (%s)",
			c.Auth.RefreshInterval.Std(), c.Auth.RefreshThreshold.Std())
	}

	if err := validateListenAddr(c.Server.ListenAddr); err != nil {
		return err
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}

	return nil
}

func validateTenant(name string, t TenantConfig) error {
	if t.TenantID == "" && t.ClientID == "" {
		return nil // entirely unconfigured is allowed
	}
	if t.TenantID == "" {
		return fmt.Errorf("auth.%s.tenantId is required when clientId is set", name)
	}
	if t.ClientID == "" {
		return fmt.Errorf("auth.%s.clientId is required when tenantId is set", name)
	}
	return nil
}

// validateListenAddr refuses non-loopback binds. The API hands out bearer
// tokens to the UI shell; it must never be reachable from the network.
func validateListenAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid server.listenAddr %q: %w", addr, err)
	}
	ip := net.ParseIP(host)
	if host == "localhost" || (ip != nil && ip.IsLoopback()) {
		return nil
	}
	return fmt.Errorf("server.listenAddr %q must be a loopback address", addr)
}
