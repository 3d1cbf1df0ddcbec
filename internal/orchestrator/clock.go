package orchestrator

import (
	"context"
	"time"
)

// Clock abstracts time for the poll loop and refresh scheduler so tests can
// simulate waiting without real delays.
type Clock interface {
	Now() time.Time

	// Sleep waits for d or until ctx is cancelled, in which case it
	// returns the context error.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
