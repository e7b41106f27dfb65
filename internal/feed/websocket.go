package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/coder/websocket"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// WebsocketFeed subscribes to a stream of JSON snapshot frames pushed
// by the deal server. Each text frame is one full deal.Deal. Dropped
// connections are re-dialed with exponential backoff; a successfully
// read frame resets the backoff.
type WebsocketFeed struct {
	url    string
	dealID string
	logger *slog.Logger
}

// NewWebsocketFeed creates a websocket feed for one deal.
func NewWebsocketFeed(url, dealID string, logger *slog.Logger) *WebsocketFeed {
	return &WebsocketFeed{
		url:    url,
		dealID: dealID,
		logger: logger,
	}
}

// Run dials and reads until the context is canceled. Always returns
// nil on cancellation so errgroup teardown is clean.
func (f *WebsocketFeed) Run(ctx context.Context, snapshots chan<- deal.Deal) error {
	f.logger.Info("websocket feed starting",
		slog.String("url", f.url),
		slog.String("deal_id", f.dealID),
	)

	backoff := initialBackoff
	steps := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		frames, err := f.readConnection(ctx, snapshots)
		if ctx.Err() != nil {
			return nil
		}

		if frames > 0 {
			backoff = initialBackoff
			steps = 0
		}

		f.logger.Warn("websocket connection lost, reconnecting",
			slog.String("error", err.Error()),
			slog.Int64("frames_read", frames),
			slog.Duration("backoff", backoff),
		)

		if sleep(ctx, backoff) != nil {
			return nil
		}

		backoff, steps = advanceBackoff(backoff, steps)
	}
}

// readConnection dials once and reads frames until the connection
// fails. Returns the number of frames read and the terminating error.
func (f *WebsocketFeed) readConnection(ctx context.Context, snapshots chan<- deal.Deal) (int64, error) {
	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return 0, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Snapshot frames are full deal payloads; the default 32KiB read
	// limit is too small for deals with long note histories.
	conn.SetReadLimit(8 << 20)

	var frames int64

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return frames, err
		}

		var d deal.Deal
		if err := json.Unmarshal(raw, &d); err != nil {
			f.logger.Warn("skipping malformed snapshot frame",
				slog.String("error", err.Error()))

			continue
		}

		if d.ID != f.dealID {
			f.logger.Debug("ignoring frame for other deal", slog.String("deal_id", d.ID))

			continue
		}

		if err := send(ctx, snapshots, d); err != nil {
			return frames, err
		}

		frames++
	}
}
