package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"skymap/internal/config"
	"skymap/internal/crypto"
	"skymap/internal/devicecode"
	"skymap/internal/tokenstore"
	"skymap/pkg/auth"
)

const (
	sourceTenantID = "11111111-1111-1111-1111-111111111111"
	targetTenantID = "22222222-2222-2222-2222-222222222222"
)

// stepClock is a manually advanced clock. Sleep blocks until the test calls
// Step, which wakes every current sleeper at once, so tests drive poll loops
// and the scheduler tick by tick with no real waiting.
type stepClock struct {
	t *testing.T

	mu        sync.Mutex
	now       time.Time
	wake      chan struct{}
	sleepers  int
	durations []time.Duration
}

func newStepClock(t *testing.T) *stepClock {
	return &stepClock{
		t:    t,
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		wake: make(chan struct{}),
	}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleepers++
	c.durations = append(c.durations, d)
	wake := c.wake
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sleepers--
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
		return nil
	}
}

// Step waits until at least one goroutine is sleeping, then wakes all of
// them. Calling Step with nothing ever going to sleep fails the test.
func (c *stepClock) Step() {
	deadline := time.Now().Add(5 * time.Second)
	for {
		c.mu.Lock()
		if c.sleepers > 0 {
			close(c.wake)
			c.wake = make(chan struct{})
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		if time.Now().After(deadline) {
			c.t.Fatal("Step: no sleeper appeared within 5s")
		}
		time.Sleep(time.Millisecond)
	}
}

// waitFor blocks until totalSleeps Sleep calls have been made overall and
// exactly current goroutines are asleep right now. Tests use it to prove a
// superseded loop has exited before stepping its replacement.
func (c *stepClock) waitFor(totalSleeps, current int) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		c.mu.Lock()
		total := len(c.durations)
		sleeping := c.sleepers
		c.mu.Unlock()
		if total == totalSleeps && sleeping == current {
			return
		}
		if time.Now().After(deadline) {
			c.t.Fatalf("waitFor: wanted total=%d current=%d, have total=%d current=%d",
				totalSleeps, current, total, sleeping)
		}
		time.Sleep(time.Millisecond)
	}
}

// sleepDurations returns a copy of every duration passed to Sleep so far.
func (c *stepClock) sleepDurations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.durations))
	copy(out, c.durations)
	return out
}

// fakeJWT builds an unsigned JWT carrying the given claims.
func fakeJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func tokenSuccessBody(t *testing.T, tenantID, user, refreshToken string) string {
	t.Helper()
	access := fakeJWT(t, map[string]interface{}{"tid": tenantID})
	id := fakeJWT(t, map[string]interface{}{"tid": tenantID, "preferred_username": user})
	body, err := json.Marshal(map[string]interface{}{
		"access_token":  access,
		"refresh_token": refreshToken,
		"id_token":      id,
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
	require.NoError(t, err)
	return string(body)
}

func oauthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"error_description":"AADSTS: %s"}`, code, code)
}

// fakeAuthority serves the device-authorization and token endpoints for both
// test tenants. Token-endpoint behavior is scripted per tenant by the test.
type fakeAuthority struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	deviceCodeSeq map[string]int
	tokenHandlers map[string]http.HandlerFunc
}

func newFakeAuthority(t *testing.T) *fakeAuthority {
	f := &fakeAuthority{
		t:             t,
		deviceCodeSeq: make(map[string]int),
		tokenHandlers: make(map[string]http.HandlerFunc),
	}
	mux := http.NewServeMux()
	for _, tenantID := range []string{sourceTenantID, targetTenantID} {
		tenantID := tenantID
		mux.HandleFunc(fmt.Sprintf("/%s/oauth2/v2.0/devicecode", tenantID), func(w http.ResponseWriter, r *http.Request) {
			f.serveDeviceCode(w, tenantID)
		})
		mux.HandleFunc(fmt.Sprintf("/%s/oauth2/v2.0/token", tenantID), func(w http.ResponseWriter, r *http.Request) {
			f.serveToken(w, r, tenantID)
		})
	}
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAuthority) serveDeviceCode(w http.ResponseWriter, tenantID string) {
	f.mu.Lock()
	f.deviceCodeSeq[tenantID]++
	seq := f.deviceCodeSeq[tenantID]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"device_code":"dev-%d","user_code":"CODE%d","verification_uri":"https://microsoft.com/devicelogin","expires_in":900,"interval":5}`,
		seq, seq)
}

func (f *fakeAuthority) serveToken(w http.ResponseWriter, r *http.Request, tenantID string) {
	f.mu.Lock()
	handler := f.tokenHandlers[tenantID]
	f.mu.Unlock()
	require.NotNil(f.t, handler, "unexpected token endpoint call for tenant %s", tenantID)
	handler(w, r)
}

func (f *fakeAuthority) setTokenHandler(tenantID string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenHandlers[tenantID] = h
}

func testConfig(storageDir string) *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			Source: config.TenantConfig{
				TenantID: sourceTenantID,
				ClientID: "client-source",
				Scopes:   []string{"https://management.azure.com/user_impersonation"},
			},
			Target: config.TenantConfig{
				TenantID: targetTenantID,
				ClientID: "client-target",
				Scopes:   []string{"https://management.azure.com/user_impersonation"},
			},
			RefreshThreshold:  config.Duration(10 * time.Minute),
			RefreshInterval:   config.Duration(3 * time.Minute),
			SlowDownIncrement: config.Duration(5 * time.Second),
		},
		Storage: config.StorageConfig{Dir: storageDir},
	}
}

type testEnv struct {
	orch      *Orchestrator
	clock     *stepClock
	authority *fakeAuthority
	store     *tokenstore.Store
	cfg       *config.Config
}

// newTestEnv wires an orchestrator against a fake authority, a real
// encrypted store in a temp dir, and a step clock. seed, if non-nil, runs
// against the store before the orchestrator restores state from it.
func newTestEnv(t *testing.T, seed func(*tokenstore.Store)) *testEnv {
	t.Helper()

	clock := newStepClock(t)
	authority := newFakeAuthority(t)

	key := make([]byte, crypto.KeySize)
	copy(key, []byte("0123456789abcdef0123456789abcdef"))
	envelope, err := crypto.NewEnvelope(crypto.NewStaticKeyProvider(key))
	require.NoError(t, err)

	store, err := tokenstore.New(t.TempDir(), envelope)
	require.NoError(t, err)
	if seed != nil {
		seed(store)
	}

	cfg := testConfig(t.TempDir())
	client := devicecode.NewClient(devicecode.ClientConfig{
		AuthorityBase: authority.server.URL,
		Now:           clock.Now,
	})

	orch := New(cfg, client, store, WithClock(clock))
	t.Cleanup(orch.Close)

	return &testEnv{
		orch:      orch,
		clock:     clock,
		authority: authority,
		store:     store,
		cfg:       cfg,
	}
}

func seedRecord(t *testing.T, store *tokenstore.Store, slot auth.Slot, tenantID, user, refreshToken string, expiresAt time.Time) {
	t.Helper()
	err := store.Save(slot, &tokenstore.TokenRecord{
		AccessToken:  "seed-access-" + string(slot),
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		TenantID:     tenantID,
		User:         user,
	})
	require.NoError(t, err)
}
