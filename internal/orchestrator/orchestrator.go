package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"skymap/internal/capability"
	"skymap/internal/config"
	"skymap/internal/devicecode"
	"skymap/internal/tokenstore"
	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

// TokenInfo is what a consumer gets from GetValidToken: the bearer token
// plus display metadata. The token rides in a RedactedToken so accidental
// logging or serialization cannot leak it.
type TokenInfo struct {
	Token     auth.RedactedToken
	ExpiresAt time.Time
	User      string
	TenantID  string
}

// Orchestrator drives the per-slot authentication state machines.
type Orchestrator struct {
	cfg    *config.Config
	client *devicecode.Client
	store  *tokenstore.Store
	clock  Clock

	// refreshGroup deduplicates concurrent refreshes per slot. Refresh
	// tokens rotate on use; two parallel exchanges would leave one caller
	// holding a token the authority already invalidated.
	refreshGroup singleflight.Group

	subs *subscribers

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	slots map[auth.Slot]*slotState
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the clock, letting tests drive polling and scheduling
// without real delays.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// New creates an orchestrator and restores slot state from persisted token
// records. A record whose tenant does not match the slot's configuration is
// destroyed immediately, before anything could read it.
func New(cfg *config.Config, client *devicecode.Client, store *tokenstore.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		client: client,
		store:  store,
		clock:  realClock{},
		subs:   newSubscribers(),
		slots:  make(map[auth.Slot]*slotState),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.baseCtx, o.cancel = context.WithCancel(context.Background())

	for _, slot := range auth.Slots() {
		s := newSlotState(slot)
		o.slots[slot] = s
		o.restoreSlot(s)
	}
	return o
}

// restoreSlot initializes one slot from its persisted record, if any.
func (o *Orchestrator) restoreSlot(s *slotState) {
	record, err := o.store.Load(s.slot)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return
		}
		logging.Warn("Orchestrator", "Stored token record for slot %s is unreadable, sign-in required: %v", s.slot, err)
		s.setFailed(auth.StateNotAuthenticated, auth.FlowStatusNone, "stored token record is unreadable")
		return
	}

	expected := o.cfg.TenantFor(s.slot).TenantID
	if record.TenantID != expected {
		logging.Error("Orchestrator", nil, "SECURITY_AUDIT: persisted token tenant mismatch slot=%s expected=%s actual=%s, destroying record",
			s.slot, expected, record.TenantID)
		_ = o.store.Clear(s.slot)
		s.setFailed(auth.StateError, auth.FlowStatusNone, "persisted token belonged to a different tenant")
		return
	}

	// An expired access token is fine here; the refresh token may still be
	// good and the first read will refresh.
	s.setAuthenticated(auth.FlowStatusNone, record.User, record.TenantID, record.ExpiresAt)
	logging.Info("Orchestrator", "Restored authenticated slot=%s tenant=%s user=%s", s.slot, record.TenantID, record.User)
}

// Close cancels all poll loops and waits for them to exit.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// Subscribe registers a state-change listener and returns its unsubscribe
// function. Listeners must not block.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	return o.subs.add(fn)
}

func (o *Orchestrator) notify(s *slotState) {
	o.subs.notify(Event{Slot: s.slot, State: s.currentState()})
}

func (o *Orchestrator) slotFor(slot auth.Slot) (*slotState, error) {
	s, ok := o.slots[slot]
	if !ok {
		return nil, fmt.Errorf("unknown slot: %s", slot)
	}
	return s, nil
}

// Status returns the observable status of one slot.
func (o *Orchestrator) Status(slot auth.Slot) (auth.SlotStatus, error) {
	s, err := o.slotFor(slot)
	if err != nil {
		return auth.SlotStatus{}, err
	}
	return s.snapshot(), nil
}

// StatusAll returns both slot statuses plus the derived capability flags.
func (o *Orchestrator) StatusAll() auth.StatusResponse {
	source := o.slots[auth.SlotSource]
	target := o.slots[auth.SlotTarget]

	return auth.StatusResponse{
		Slots:        []auth.SlotStatus{source.snapshot(), target.snapshot()},
		Capabilities: capability.Compute(source.currentState(), target.currentState()),
	}
}

// SignIn starts a device-code flow for the slot, superseding any flow
// already in progress, and returns the prompt the user needs to complete
// sign-in. Polling continues in the background until the flow resolves or
// is superseded.
func (o *Orchestrator) SignIn(ctx context.Context, slot auth.Slot) (auth.DeviceCodePrompt, error) {
	s, err := o.slotFor(slot)
	if err != nil {
		return auth.DeviceCodePrompt{}, err
	}

	tenant := o.cfg.TenantFor(slot)
	session, err := o.client.Start(ctx, slot, tenant)
	if err != nil {
		return auth.DeviceCodePrompt{}, err
	}

	s.opMu.Lock()
	pollCtx, cancel := context.WithCancel(o.baseCtx)
	gen := s.beginSession(cancel)
	o.wg.Add(1)
	go o.runPollLoop(pollCtx, s, session, tenant, gen)
	s.opMu.Unlock()

	o.notify(s)
	return session.Prompt(o.clock.Now()), nil
}

// runPollLoop polls the token endpoint until the flow resolves. It owns no
// slot state directly; results are applied through completeFlow/failFlow,
// which discard them if the session was superseded meanwhile.
func (o *Orchestrator) runPollLoop(ctx context.Context, s *slotState, session *devicecode.Session, tenant config.TenantConfig, gen int) {
	defer o.wg.Done()

	interval := session.Interval
	for {
		if err := o.clock.Sleep(ctx, interval); err != nil {
			return
		}

		result, err := o.client.Poll(ctx, session, tenant)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var netErr *devicecode.NetworkError
			if errors.As(err, &netErr) {
				// Transient; the device code is still valid, keep polling.
				logging.Warn("Orchestrator", "Poll failed for slot %s, will retry: %v", s.slot, err)
				continue
			}
			o.failFlow(s, gen, auth.StateError, auth.FlowStatusError, err.Error())
			return
		}

		switch result.Outcome {
		case devicecode.PollPending:
			// Keep waiting.
		case devicecode.PollSlowDown:
			interval += o.cfg.Auth.SlowDownIncrement.Std()
			logging.Debug("Orchestrator", "Authority requested slow_down for slot %s, interval now %s", s.slot, interval)
		case devicecode.PollExpired:
			o.failFlow(s, gen, auth.StateNotAuthenticated, auth.FlowStatusExpired, "device code expired before sign-in completed")
			return
		case devicecode.PollDenied:
			o.failFlow(s, gen, auth.StateNotAuthenticated, auth.FlowStatusDenied, "sign-in was declined")
			return
		case devicecode.PollCompleted:
			o.completeFlow(s, gen, result.Record)
			return
		}
	}
}

// failFlow records a resolved-but-unsuccessful flow, unless the session was
// superseded in the meantime.
func (o *Orchestrator) failFlow(s *slotState, gen int, state auth.State, flow auth.FlowStatus, reason string) {
	s.opMu.Lock()
	if s.currentGen() != gen {
		s.opMu.Unlock()
		logging.Debug("Orchestrator", "Discarding stale flow result for slot %s (superseded)", s.slot)
		return
	}
	s.setFailed(state, flow, reason)
	s.opMu.Unlock()

	logging.Info("Orchestrator", "Device-code flow resolved slot=%s flow=%s", s.slot, flow)
	o.notify(s)
}

// completeFlow validates and persists a freshly acquired token record. The
// tenant check happens here, before anything touches disk: a token for the
// wrong tenant is discarded and the slot moves to the error state. The
// notify runs after the lock is released so a listener can call back into
// the orchestrator.
func (o *Orchestrator) completeFlow(s *slotState, gen int, record *tokenstore.TokenRecord) {
	if o.applyCompletedFlow(s, gen, record) {
		o.notify(s)
	}
}

func (o *Orchestrator) applyCompletedFlow(s *slotState, gen int, record *tokenstore.TokenRecord) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.currentGen() != gen {
		logging.Debug("Orchestrator", "Discarding stale flow completion for slot %s (superseded)", s.slot)
		return false
	}

	expected := o.cfg.TenantFor(s.slot).TenantID
	if record.TenantID != expected {
		mismatch := &auth.TenantMismatchError{Slot: s.slot, Expected: expected, Actual: record.TenantID}
		logging.Error("Orchestrator", mismatch, "SECURITY_AUDIT: tenant mismatch at sign-in slot=%s expected=%s actual=%s, token discarded",
			s.slot, expected, record.TenantID)
		s.setFailed(auth.StateError, auth.FlowStatusError, mismatch.Error())
		return true
	}

	if err := o.store.Save(s.slot, record); err != nil {
		logging.Error("Orchestrator", err, "Failed to persist token record for slot %s", s.slot)
		s.setFailed(auth.StateError, auth.FlowStatusError, "failed to persist token record")
		return true
	}

	s.setAuthenticated(auth.FlowStatusCompleted, record.User, record.TenantID, record.ExpiresAt)
	logging.Info("Orchestrator", "SECURITY_AUDIT: slot authenticated slot=%s tenant=%s user=%s", s.slot, record.TenantID, record.User)
	return true
}

// GetValidToken returns a usable bearer token for the slot, refreshing first
// if the token is within the refresh threshold. The expected tenant is
// re-checked against the stored record on every call; a mismatching record
// is never returned, and one that contradicts the slot's own configuration
// is destroyed.
func (o *Orchestrator) GetValidToken(ctx context.Context, slot auth.Slot, expectedTenantID string) (*TokenInfo, error) {
	s, err := o.slotFor(slot)
	if err != nil {
		return nil, err
	}

	configured := o.cfg.TenantFor(slot).TenantID
	if expectedTenantID == "" {
		expectedTenantID = configured
	}

	record, err := o.loadRecord(s)
	if err != nil {
		return nil, err
	}

	if record.TenantID != expectedTenantID {
		mismatch := &auth.TenantMismatchError{Slot: slot, Expected: expectedTenantID, Actual: record.TenantID}
		logging.Error("Orchestrator", mismatch, "SECURITY_AUDIT: tenant mismatch on token read slot=%s expected=%s actual=%s",
			slot, expectedTenantID, record.TenantID)
		if record.TenantID != configured {
			// The persisted record contradicts the slot's own
			// configuration: destroy it rather than leave a
			// wrong-tenant credential on disk.
			_ = o.store.Clear(slot)
			s.setFailed(auth.StateError, auth.FlowStatusNone, mismatch.Error())
			o.notify(s)
		}
		return nil, mismatch
	}

	now := o.clock.Now()
	if record.ExpiresWithin(o.cfg.Auth.RefreshThreshold.Std(), now) {
		fresh, refreshErr := o.refreshSlot(ctx, s)
		var netErr *devicecode.NetworkError
		var authorityErr *devicecode.AuthorityError
		switch {
		case refreshErr == nil:
			record = fresh
		case record.Expired(now):
			// The old token is unusable and the refresh failed;
			// nothing valid to hand out.
			return nil, refreshErr
		case errors.As(refreshErr, &netErr), errors.As(refreshErr, &authorityErr):
			// Transient failure with the current token still inside
			// its lifetime; serve it and let the scheduler retry.
			logging.Warn("Orchestrator", "Refresh failed for slot %s, serving current token until expiry: %v", slot, refreshErr)
		default:
			// Terminal: rejected refresh token, tenant mismatch, or
			// the record is gone. The slot state already reflects the
			// failure, so the old access token must not go out.
			return nil, refreshErr
		}
	}

	return &TokenInfo{
		Token:     auth.NewRedactedToken(record.AccessToken),
		ExpiresAt: record.ExpiresAt,
		User:      record.User,
		TenantID:  record.TenantID,
	}, nil
}

// loadRecord loads the slot's persisted record, translating store errors
// into the consumer-facing taxonomy.
func (o *Orchestrator) loadRecord(s *slotState) (*tokenstore.TokenRecord, error) {
	record, err := o.store.Load(s.slot)
	if err == nil {
		return record, nil
	}
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, &auth.AuthRequiredError{Slot: s.slot, Reason: "no token on record"}
	}
	logging.Warn("Orchestrator", "Token record for slot %s is unreadable: %v", s.slot, err)
	return nil, &auth.AuthRequiredError{Slot: s.slot, Reason: "stored token record is unreadable"}
}

// refreshSlot performs a deduplicated refresh for the slot. Concurrent
// callers share a single exchange and all receive the same record.
func (o *Orchestrator) refreshSlot(ctx context.Context, s *slotState) (*tokenstore.TokenRecord, error) {
	v, err, _ := o.refreshGroup.Do(string(s.slot), func() (interface{}, error) {
		return o.doRefresh(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tokenstore.TokenRecord), nil
}

// doRefresh is the single-flighted refresh body. Any state change is
// notified after the slot lock is released so a listener can call back
// into the orchestrator.
func (o *Orchestrator) doRefresh(ctx context.Context, s *slotState) (*tokenstore.TokenRecord, error) {
	record, changed, err := o.refreshLocked(ctx, s)
	if changed {
		o.notify(s)
	}
	return record, err
}

// refreshLocked holds the slot's operation mutex across the exchange so a
// sign-out observes either the pre-refresh record or the post-refresh one,
// never a half-applied state. The bool reports whether observable state
// changed.
func (o *Orchestrator) refreshLocked(ctx context.Context, s *slotState) (*tokenstore.TokenRecord, bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	// Re-load under the lock: a concurrent sign-out or completed flow may
	// have changed the record since the caller decided to refresh.
	record, err := o.loadRecord(s)
	if err != nil {
		return nil, false, err
	}

	tenant := o.cfg.TenantFor(s.slot)
	if record.TenantID != tenant.TenantID {
		mismatch := &auth.TenantMismatchError{Slot: s.slot, Expected: tenant.TenantID, Actual: record.TenantID}
		logging.Error("Orchestrator", mismatch, "SECURITY_AUDIT: tenant mismatch before refresh slot=%s expected=%s actual=%s, destroying record",
			s.slot, tenant.TenantID, record.TenantID)
		_ = o.store.Clear(s.slot)
		s.setFailed(auth.StateError, auth.FlowStatusNone, mismatch.Error())
		return nil, true, mismatch
	}

	// A concurrent caller may have refreshed between the caller's read and
	// this critical section; if the re-loaded record is already outside
	// the threshold there is nothing to do.
	if !record.ExpiresWithin(o.cfg.Auth.RefreshThreshold.Std(), o.clock.Now()) {
		return record, false, nil
	}

	fresh, err := o.client.Refresh(ctx, tenant, record.RefreshToken)
	if err != nil {
		var refreshErr *devicecode.RefreshError
		if errors.As(err, &refreshErr) {
			// Terminal: the refresh token is dead. Keeping the
			// record would only retry a revoked credential.
			logging.Warn("Orchestrator", "SECURITY_AUDIT: refresh token rejected slot=%s code=%s, clearing record",
				s.slot, refreshErr.Code)
			_ = o.store.Clear(s.slot)
			s.setFailed(auth.StateExpired, auth.FlowStatusNone, "refresh token rejected, sign in again")
			return nil, true, err
		}
		return nil, false, err
	}

	if fresh.TenantID != tenant.TenantID {
		mismatch := &auth.TenantMismatchError{Slot: s.slot, Expected: tenant.TenantID, Actual: fresh.TenantID}
		logging.Error("Orchestrator", mismatch, "SECURITY_AUDIT: tenant mismatch on refreshed token slot=%s expected=%s actual=%s, token discarded",
			s.slot, tenant.TenantID, fresh.TenantID)
		_ = o.store.Clear(s.slot)
		s.setFailed(auth.StateError, auth.FlowStatusNone, mismatch.Error())
		return nil, true, mismatch
	}

	if err := o.store.Save(s.slot, fresh); err != nil {
		// The rotated refresh token now exists only in memory; the next
		// refresh from the stale on-disk record will fail terminally.
		logging.Error("Orchestrator", err, "Failed to persist refreshed token for slot %s", s.slot)
		return nil, false, err
	}

	prev := s.currentState()
	s.setAuthenticated(auth.FlowStatusNone, fresh.User, fresh.TenantID, fresh.ExpiresAt)
	return fresh, prev != auth.StateAuthenticated, nil
}

// SignOut cancels any in-progress flow, waits for an in-flight refresh to
// settle, and destroys the slot's persisted record. The slot always ends in
// the not-authenticated state, even if the deletion itself failed.
func (o *Orchestrator) SignOut(slot auth.Slot) error {
	s, err := o.slotFor(slot)
	if err != nil {
		return err
	}

	// endSession first: the poll loop stops promptly, and bumping the
	// generation discards any result it already has in hand.
	s.endSession()

	s.opMu.Lock()
	clearErr := o.store.Clear(slot)
	s.reset()
	s.opMu.Unlock()

	logging.Info("Orchestrator", "SECURITY_AUDIT: slot signed out slot=%s", slot)
	o.notify(s)
	return clearErr
}

// SignOutAll signs out both slots.
func (o *Orchestrator) SignOutAll() error {
	var errs []error
	for _, slot := range auth.Slots() {
		if err := o.SignOut(slot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AwaitFlow blocks until the slot's device-code flow resolves (or ctx is
// cancelled) and returns the final flow status. If no flow is in progress it
// returns immediately.
func (o *Orchestrator) AwaitFlow(ctx context.Context, slot auth.Slot) (auth.FlowStatus, error) {
	s, err := o.slotFor(slot)
	if err != nil {
		return auth.FlowStatusNone, err
	}

	changed := make(chan struct{}, 1)
	unsubscribe := o.Subscribe(func(e Event) {
		if e.Slot != slot {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		snap := s.snapshot()
		if snap.State != auth.StateAuthenticating.String() {
			return snap.FlowStatus, nil
		}
		select {
		case <-ctx.Done():
			return auth.FlowStatusNone, ctx.Err()
		case <-changed:
		}
	}
}
