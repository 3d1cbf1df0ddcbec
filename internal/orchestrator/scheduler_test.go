package orchestrator

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymap/internal/tokenstore"
	"skymap/pkg/auth"
)

// startScheduler runs the refresh scheduler until the test ends.
func startScheduler(t *testing.T, env *testEnv) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		env.orch.RunRefreshScheduler(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestScheduler_RefreshesTokenInsideThreshold(t *testing.T) {
	env := newTestEnv(t, func(store *tokenstore.Store) {
		seedRecord(t, store, auth.SlotSource, sourceTenantID, "analyst@example.com", "refresh-1",
			time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)) // inside the 10m threshold
	})

	var refreshes atomic.Int32
	env.authority.setTokenHandler(sourceTenantID, func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenSuccessBody(t, sourceTenantID, "analyst@example.com", "refresh-2")))
	})

	startScheduler(t, env)

	// One tick: the scheduler finishes all slot work before sleeping
	// again, so reaching the second sleep proves the refresh is done.
	env.clock.Step()
	env.clock.waitFor(2, 1)

	record, err := env.store.Load(auth.SlotSource)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", record.RefreshToken)
	assert.Equal(t, int32(1), refreshes.Load())

	// The refreshed token is an hour out; the next tick must not touch
	// the authority again.
	env.clock.Step()
	env.clock.waitFor(3, 1)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestScheduler_IgnoresUnauthenticatedSlots(t *testing.T) {
	env := newTestEnv(t, nil)

	// No token handlers registered: any authority call fails the test.
	startScheduler(t, env)
	env.clock.Step()
	env.clock.waitFor(2, 1)

	for _, slot := range auth.Slots() {
		status, err := env.orch.Status(slot)
		require.NoError(t, err)
		assert.Equal(t, "not_authenticated", status.State)
	}
}

func TestScheduler_IgnoresTokensOutsideThreshold(t *testing.T) {
	env := newTestEnv(t, func(store *tokenstore.Store) {
		seedRecord(t, store, auth.SlotSource, sourceTenantID, "analyst@example.com", "refresh-1",
			time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)) // one hour out
	})

	startScheduler(t, env)
	env.clock.Step()
	env.clock.waitFor(2, 1)

	record, err := env.store.Load(auth.SlotSource)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", record.RefreshToken)
}

func TestScheduler_TerminalRefreshFailureExpiresSlot(t *testing.T) {
	env := newTestEnv(t, func(store *tokenstore.Store) {
		seedRecord(t, store, auth.SlotSource, sourceTenantID, "analyst@example.com", "revoked",
			time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC))
	})

	env.authority.setTokenHandler(sourceTenantID, func(w http.ResponseWriter, r *http.Request) {
		oauthError(w, http.StatusBadRequest, "invalid_grant")
	})

	startScheduler(t, env)
	env.clock.Step()
	env.clock.waitFor(2, 1)

	status, err := env.orch.Status(auth.SlotSource)
	require.NoError(t, err)
	assert.Equal(t, "expired", status.State)

	_, err = env.store.Load(auth.SlotSource)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestScheduler_RefreshesBothSlotsIndependently(t *testing.T) {
	env := newTestEnv(t, func(store *tokenstore.Store) {
		seedRecord(t, store, auth.SlotSource, sourceTenantID, "a@example.com", "src-refresh",
			time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC))
		seedRecord(t, store, auth.SlotTarget, targetTenantID, "b@example.com", "tgt-refresh",
			time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC))
	})

	env.authority.setTokenHandler(sourceTenantID, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenSuccessBody(t, sourceTenantID, "a@example.com", "src-refresh-2")))
	})
	// The target tenant's refresh fails transiently; the source must
	// still rotate.
	env.authority.setTokenHandler(targetTenantID, func(w http.ResponseWriter, r *http.Request) {
		oauthError(w, http.StatusServiceUnavailable, "temporarily_unavailable")
	})

	startScheduler(t, env)
	env.clock.Step()
	env.clock.waitFor(2, 1)

	source, err := env.store.Load(auth.SlotSource)
	require.NoError(t, err)
	assert.Equal(t, "src-refresh-2", source.RefreshToken)

	target, err := env.store.Load(auth.SlotTarget)
	require.NoError(t, err)
	assert.Equal(t, "tgt-refresh", target.RefreshToken)

	status, err := env.orch.Status(auth.SlotTarget)
	require.NoError(t, err)
	assert.Equal(t, "authenticated", status.State) // transient failure is not terminal
}
