package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// Fetcher loads the canonical deal by ID. *store.SQLiteStore satisfies
// it.
type Fetcher interface {
	FetchDeal(ctx context.Context, id string) (*deal.Deal, error)
}

// minPollInterval guards against hammering the store with a
// misconfigured sub-second interval.
const minPollInterval = time.Second

// Poller re-fetches the canonical deal on a fixed interval. Fetch
// failures back off exponentially and never stop the loop; the next
// successful fetch resets the cadence.
type Poller struct {
	fetcher  Fetcher
	dealID   string
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a polling feed for one deal.
func NewPoller(fetcher Fetcher, dealID string, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		dealID:   dealID,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is canceled. Always returns nil on
// cancellation so errgroup teardown is clean.
func (p *Poller) Run(ctx context.Context, snapshots chan<- deal.Deal) error {
	interval := p.interval
	if interval < minPollInterval {
		p.logger.Warn("poll interval below minimum, clamping",
			slog.Duration("requested", interval),
			slog.Duration("minimum", minPollInterval),
		)

		interval = minPollInterval
	}

	p.logger.Info("poll feed starting",
		slog.String("deal_id", p.dealID),
		slog.Duration("interval", interval),
	)

	backoff := initialBackoff
	steps := 0

	for {
		d, err := p.fetcher.FetchDeal(ctx, p.dealID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			p.logger.Warn("poll fetch failed, backing off",
				slog.String("deal_id", p.dealID),
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)

			if sleep(ctx, backoff) != nil {
				return nil
			}

			backoff, steps = advanceBackoff(backoff, steps)

			continue
		}

		if err := send(ctx, snapshots, *d); err != nil {
			return nil
		}

		backoff = initialBackoff
		steps = 0

		if sleep(ctx, interval) != nil {
			return nil
		}
	}
}
