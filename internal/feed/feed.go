// Package feed delivers canonical deal snapshots to the editing
// session. Three sources are supported: polling the local store on an
// interval, watching a drop directory for JSON snapshot files, and
// subscribing to a websocket stream of snapshot frames. All sources
// implement Feed and emit deal.Deal values on a caller-supplied
// channel; the session applies each one through its merge engine.
package feed

import (
	"context"
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// Feed is a source of canonical deal snapshots. Run blocks until the
// context is canceled or the source fails permanently; transient
// failures are retried internally with backoff.
type Feed interface {
	Run(ctx context.Context, snapshots chan<- deal.Deal) error
}

// Backoff tuning shared by all feed sources.
const (
	initialBackoff    = 5 * time.Second
	backoffMultiplier = 2
	maxBackoffSteps   = 6 // 5s * 2^6 = 320s cap
)

// advanceBackoff doubles the backoff up to the cap.
func advanceBackoff(backoff time.Duration, steps int) (time.Duration, int) {
	if steps >= maxBackoffSteps {
		return backoff, steps
	}

	return backoff * backoffMultiplier, steps + 1
}

// sleep waits for the given duration or until the context is canceled.
// Returns the context error on cancellation so callers can exit their
// retry loops.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// send delivers one snapshot, giving up only on cancellation.
// Blocking send: snapshots must not be dropped, since a skipped frame
// would leave the draft stale until the next one arrives.
func send(ctx context.Context, snapshots chan<- deal.Deal, d deal.Deal) error {
	select {
	case snapshots <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
