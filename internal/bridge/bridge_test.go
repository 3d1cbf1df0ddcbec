package bridge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymap/internal/orchestrator"
	"skymap/pkg/auth"
)

type fakeTokenSource struct {
	tokens map[auth.Slot]string
	err    error
	calls  []auth.Slot
}

func (f *fakeTokenSource) GetValidToken(_ context.Context, slot auth.Slot, _ string) (*orchestrator.TokenInfo, error) {
	f.calls = append(f.calls, slot)
	if f.err != nil {
		return nil, f.err
	}
	token, ok := f.tokens[slot]
	if !ok {
		return nil, &auth.AuthRequiredError{Slot: slot}
	}
	return &orchestrator.TokenInfo{
		Token:     auth.NewRedactedToken(token),
		ExpiresAt: time.Now().Add(time.Hour),
		TenantID:  "tid-" + string(slot),
	}, nil
}

func TestEnvVarFor(t *testing.T) {
	assert.Equal(t, "SKYMAP_SOURCE_TOKEN", EnvVarFor(auth.SlotSource))
	assert.Equal(t, "SKYMAP_TARGET_TOKEN", EnvVarFor(auth.SlotTarget))
}

func TestExports(t *testing.T) {
	source := &fakeTokenSource{tokens: map[auth.Slot]string{
		auth.SlotSource: "src-token",
		auth.SlotTarget: "tgt-token",
	}}
	b := New(source)

	entries, err := b.Exports(context.Background(), auth.SlotSource, auth.SlotTarget)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"SKYMAP_SOURCE_TOKEN=src-token",
		"SKYMAP_TARGET_TOKEN=tgt-token",
	}, entries)
	assert.Equal(t, []auth.Slot{auth.SlotSource, auth.SlotTarget}, source.calls)
}

func TestExports_FailsWholeExportOnMissingToken(t *testing.T) {
	source := &fakeTokenSource{tokens: map[auth.Slot]string{
		auth.SlotSource: "src-token",
		// target missing
	}}
	b := New(source)

	_, err := b.Exports(context.Background(), auth.SlotSource, auth.SlotTarget)
	var authErr *auth.AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.SlotTarget, authErr.Slot)
}

func TestCommand_TokensInEnvironmentNotArguments(t *testing.T) {
	source := &fakeTokenSource{tokens: map[auth.Slot]string{
		auth.SlotSource: "very-secret-token",
	}}
	b := New(source)

	cmd, err := b.Command(context.Background(), []auth.Slot{auth.SlotSource}, "scanner", "--verbose")
	require.NoError(t, err)

	assert.Contains(t, cmd.Env, "SKYMAP_SOURCE_TOKEN=very-secret-token")
	for _, arg := range cmd.Args {
		assert.NotContains(t, arg, "very-secret-token")
	}
}

func TestCommand_InheritsParentEnvironment(t *testing.T) {
	t.Setenv("SKYMAP_TEST_MARKER", "inherited")

	source := &fakeTokenSource{tokens: map[auth.Slot]string{auth.SlotSource: "tok"}}
	b := New(source)

	cmd, err := b.Command(context.Background(), []auth.Slot{auth.SlotSource}, "scanner")
	require.NoError(t, err)
	assert.Contains(t, cmd.Env, "SKYMAP_TEST_MARKER=inherited")
}

func TestCommand_NoTokenNoCommand(t *testing.T) {
	source := &fakeTokenSource{}
	b := New(source)

	cmd, err := b.Command(context.Background(), []auth.Slot{auth.SlotSource}, "scanner")
	require.Error(t, err)
	assert.Nil(t, cmd)
}

func TestRun_ExecutesWithExports(t *testing.T) {
	source := &fakeTokenSource{tokens: map[auth.Slot]string{auth.SlotSource: "tok"}}
	b := New(source)

	// "true" exists on every platform the test suite runs on.
	err := b.Run(context.Background(), []auth.Slot{auth.SlotSource}, "true")
	require.NoError(t, err)
}

func TestRun_ReportsChildFailure(t *testing.T) {
	source := &fakeTokenSource{tokens: map[auth.Slot]string{auth.SlotSource: "tok"}}
	b := New(source)

	err := b.Run(context.Background(), []auth.Slot{auth.SlotSource}, "false")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "false failed"))
}
