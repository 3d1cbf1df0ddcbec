package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	cfg.Storage.Dir = "/tmp/skymap-test"
	return cfg
}

func TestValidate_UnconfiguredSlotsAllowed(t *testing.T) {
	require.NoError(t, baseConfig().Validate())
}

func TestValidate_HalfConfiguredSlotRejected(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth.Source.TenantID = "t1"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.source.clientId")
}

func TestValidate_SameTenantBothSlotsRejected(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth.Source = TenantConfig{TenantID: "t1", ClientID: "c1"}
	cfg.Auth.Target = TenantConfig{TenantID: "t1", ClientID: "c2"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "independent tenants")
}

func TestValidate_RefreshIntervalMustBeShorterThanThreshold(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth.RefreshInterval = cfg.Auth.RefreshThreshold

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refreshInterval")
}

func TestValidate_ListenAddr(t *testing.T) {
	tests := []struct {
		addr string
		ok   bool
	}{
		{"127.0.0.1:7718", true},
		{"localhost:7718", true},
		{"[::1]:7718", true},
		{"0.0.0.0:7718", false},
		{"192.168.1.5:7718", false},
		{"not-an-addr", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Server.ListenAddr = tt.addr
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := baseConfig()
	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())
}
