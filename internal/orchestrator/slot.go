package orchestrator

import (
	"context"
	"sync"
	"time"

	"skymap/pkg/auth"
)

// slotState is the in-memory state machine for one tenant slot.
//
// Two locks with distinct jobs: opMu serializes mutating operations
// (sign-in start, flow completion, refresh, sign-out) and is held across
// authority I/O during a refresh, so a sign-out cannot clear the store while
// an exchange is mid-flight. mu guards the observable fields and is never
// held across I/O, so Status stays responsive.
type slotState struct {
	slot auth.Slot

	opMu sync.Mutex

	mu         sync.Mutex
	state      auth.State
	flow       auth.FlowStatus
	gen        int
	cancelPoll context.CancelFunc
	user       string
	tenantID   string
	expiresAt  time.Time
	lastError  string
}

func newSlotState(slot auth.Slot) *slotState {
	return &slotState{
		slot:  slot,
		state: auth.StateNotAuthenticated,
	}
}

// snapshot returns the observable status without blocking on in-flight
// operations.
func (s *slotState) snapshot() auth.SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := auth.SlotStatus{
		Slot:       s.slot,
		State:      s.state.String(),
		FlowStatus: s.flow,
		User:       s.user,
		TenantID:   s.tenantID,
		Error:      s.lastError,
	}
	if !s.expiresAt.IsZero() {
		t := s.expiresAt
		status.ExpiresAt = &t
	}
	return status
}

func (s *slotState) currentState() auth.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// currentGen returns the active session generation. A poll loop compares its
// own generation against this before applying a result.
func (s *slotState) currentGen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// beginSession supersedes any active session: cancels its poll loop, bumps
// the generation so late results are discarded, and moves the slot to
// authenticating. Returns the new generation.
func (s *slotState) beginSession(cancel context.CancelFunc) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelPoll != nil {
		s.cancelPoll()
	}
	s.gen++
	s.cancelPoll = cancel
	s.state = auth.StateAuthenticating
	s.flow = auth.FlowStatusPending
	s.user = ""
	s.tenantID = ""
	s.expiresAt = time.Time{}
	s.lastError = ""
	return s.gen
}

// endSession invalidates the active session without starting a new one.
func (s *slotState) endSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
	s.gen++
}

// setAuthenticated applies a successful acquisition or refresh.
func (s *slotState) setAuthenticated(flow auth.FlowStatus, user, tenantID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = auth.StateAuthenticated
	if flow != auth.FlowStatusNone {
		s.flow = flow
	}
	s.cancelPoll = nil
	s.user = user
	s.tenantID = tenantID
	s.expiresAt = expiresAt
	s.lastError = ""
}

// setFailed applies a failed flow or a terminal refresh failure.
func (s *slotState) setFailed(state auth.State, flow auth.FlowStatus, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	if flow != auth.FlowStatusNone {
		s.flow = flow
	}
	s.cancelPoll = nil
	s.expiresAt = time.Time{}
	s.lastError = reason
}

// reset returns the slot to its initial state.
func (s *slotState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = auth.StateNotAuthenticated
	s.flow = auth.FlowStatusNone
	s.cancelPoll = nil
	s.user = ""
	s.tenantID = ""
	s.expiresAt = time.Time{}
	s.lastError = ""
}
