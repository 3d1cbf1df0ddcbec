package cmd

import (
	"fmt"

	"skymap/internal/bridge"
	"skymap/internal/config"
	"skymap/internal/crypto"
	"skymap/internal/devicecode"
	"skymap/internal/orchestrator"
	"skymap/internal/tokenstore"
)

// core bundles the wired authentication stack for a command invocation.
type core struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	bridge *bridge.Bridge
}

// buildCore loads config and wires keyring, store, device-code client, and
// orchestrator. Every command that touches tokens goes through this.
func buildCore() (*core, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	envelope, err := crypto.NewEnvelope(crypto.NewKeyringKeyProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token encryption: %w", err)
	}

	store, err := tokenstore.New(cfg.Storage.Dir, envelope)
	if err != nil {
		return nil, err
	}

	client := devicecode.NewClient(devicecode.ClientConfig{})
	orch := orchestrator.New(cfg, client, store)

	return &core{
		cfg:    cfg,
		orch:   orch,
		bridge: bridge.New(orch),
	}, nil
}

// Close releases the orchestrator's background goroutines.
func (c *core) Close() {
	c.orch.Close()
}
