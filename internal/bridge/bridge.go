package bridge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"skymap/internal/orchestrator"
	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

// Environment variables child tools read their bearer tokens from.
const (
	EnvSourceToken = "SKYMAP_SOURCE_TOKEN" // #nosec G101 -- variable name, not a credential
	EnvTargetToken = "SKYMAP_TARGET_TOKEN" // #nosec G101
)

// EnvVarFor returns the environment variable carrying the slot's token.
func EnvVarFor(slot auth.Slot) string {
	if slot == auth.SlotTarget {
		return EnvTargetToken
	}
	return EnvSourceToken
}

// TokenSource is the part of the orchestrator the bridge needs.
type TokenSource interface {
	GetValidToken(ctx context.Context, slot auth.Slot, expectedTenantID string) (*orchestrator.TokenInfo, error)
}

// Bridge exports tokens to child processes.
type Bridge struct {
	tokens TokenSource
}

// New creates a bridge over the given token source.
func New(tokens TokenSource) *Bridge {
	return &Bridge{tokens: tokens}
}

// Exports fetches a valid token for each slot and returns the corresponding
// KEY=value environment entries. Any slot without a valid token fails the
// whole export; a child tool must never start with a partial credential set.
func (b *Bridge) Exports(ctx context.Context, slots ...auth.Slot) ([]string, error) {
	entries := make([]string, 0, len(slots))
	for _, slot := range slots {
		info, err := b.tokens.GetValidToken(ctx, slot, "")
		if err != nil {
			return nil, fmt.Errorf("cannot export token for slot %s: %w", slot, err)
		}
		entries = append(entries, EnvVarFor(slot)+"="+info.Token.Value())
	}
	return entries, nil
}

// Command builds an exec.Cmd for the named tool with tokens for the given
// slots added to the inherited environment. The command is not started.
func (b *Bridge) Command(ctx context.Context, slots []auth.Slot, name string, args ...string) (*exec.Cmd, error) {
	exports, err := b.Exports(ctx, slots...)
	if err != nil {
		return nil, err
	}

	// #nosec G204 -- name and args come from skymap's own command layer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), exports...)
	return cmd, nil
}

// Run executes the named tool wired to the parent's stdio, with tokens for
// the given slots in its environment, and waits for it to finish.
func (b *Bridge) Run(ctx context.Context, slots []auth.Slot, name string, args ...string) error {
	cmd, err := b.Command(ctx, slots, name, args...)
	if err != nil {
		return err
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Arguments are tool flags, never token material; the tokens travel
	// only in the environment.
	logging.Info("Bridge", "Spawning %s %s (slots: %s)", name, strings.Join(args, " "), slotNames(slots))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func slotNames(slots []auth.Slot) string {
	names := make([]string, len(slots))
	for i, slot := range slots {
		names[i] = string(slot)
	}
	return strings.Join(names, ",")
}
