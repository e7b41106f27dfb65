package feed

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// Sink receives each canonical snapshot. *engine.Session satisfies it.
type Sink interface {
	ApplySnapshot(incoming deal.Deal)
}

// snapshotBuffer absorbs short bursts from the feed so the source is
// not blocked on the sink's merge lock.
const snapshotBuffer = 4

// Runner connects a Feed to a Sink: one goroutine runs the feed, a
// second applies each emitted snapshot. Run blocks until the context
// is canceled or the feed fails permanently.
type Runner struct {
	feed   Feed
	sink   Sink
	logger *slog.Logger

	// OnApply, when set, is called after each snapshot is applied.
	// Used by the watch command to refresh its display.
	OnApply func(deal.Deal)
}

// NewRunner wires a feed to a sink.
func NewRunner(f Feed, sink Sink, logger *slog.Logger) *Runner {
	return &Runner{
		feed:   f,
		sink:   sink,
		logger: logger,
	}
}

// Run starts the feed and apply loops and waits for both to finish.
func (r *Runner) Run(ctx context.Context) error {
	snapshots := make(chan deal.Deal, snapshotBuffer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(snapshots)

		return r.feed.Run(gctx, snapshots)
	})

	g.Go(func() error {
		for d := range snapshots {
			r.sink.ApplySnapshot(d)

			r.logger.Debug("snapshot applied",
				slog.String("deal_id", d.ID),
				slog.Int("lenders", len(d.Lenders)),
			)

			if r.OnApply != nil {
				r.OnApply(d)
			}
		}

		return nil
	})

	return g.Wait()
}
