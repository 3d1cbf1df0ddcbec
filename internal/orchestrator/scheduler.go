package orchestrator

import (
	"context"
	"sync"
	"time"

	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

// RunRefreshScheduler proactively refreshes authenticated slots whose tokens
// are inside the refresh threshold. It runs until ctx is cancelled and is
// meant to be started once, as its own goroutine.
//
// The scheduler shares the singleflight group with on-read refreshes, so a
// scheduler tick and a concurrent GetValidToken never double-exchange the
// same refresh token.
func (o *Orchestrator) RunRefreshScheduler(ctx context.Context) {
	interval := o.cfg.Auth.RefreshInterval.Std()
	threshold := o.cfg.Auth.RefreshThreshold.Std()

	logging.Info("Orchestrator", "Refresh scheduler started interval=%s threshold=%s", interval, threshold)
	for {
		if err := o.clock.Sleep(ctx, interval); err != nil {
			logging.Info("Orchestrator", "Refresh scheduler stopped")
			return
		}

		var wg sync.WaitGroup
		for _, slot := range auth.Slots() {
			s := o.slots[slot]
			if !o.needsRefresh(s, threshold) {
				continue
			}
			wg.Add(1)
			go func(s *slotState) {
				defer wg.Done()
				if _, err := o.refreshSlot(ctx, s); err != nil {
					logging.Warn("Orchestrator", "Scheduled refresh failed for slot %s: %v", s.slot, err)
				}
			}(s)
		}
		wg.Wait()
	}
}

// needsRefresh reports whether the slot holds a token inside the refresh
// threshold, judged from the in-memory snapshot so an idle slot costs no
// disk read per tick.
func (o *Orchestrator) needsRefresh(s *slotState, threshold time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != auth.StateAuthenticated || s.expiresAt.IsZero() {
		return false
	}
	return !o.clock.Now().Add(threshold).Before(s.expiresAt)
}
