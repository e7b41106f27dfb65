package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jturner-5thline/dealdesk/internal/config"
	"github.com/jturner-5thline/dealdesk/internal/deal"
	"github.com/jturner-5thline/dealdesk/internal/engine"
	"github.com/jturner-5thline/dealdesk/internal/feed"
	"github.com/jturner-5thline/dealdesk/internal/store"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <deal-id>",
		Short: "Follow the canonical snapshot feed for a deal",
		Long: "Opens an editing session for the deal and applies every canonical " +
			"snapshot from the configured feed (poll, directory, or websocket), " +
			"printing the reconciled state after each refresh. Runs until interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
}

// watchNotifier surfaces session events on stderr.
type watchNotifier struct {
	logger *slog.Logger
}

func (n *watchNotifier) PersistFailed(op string, err error) {
	n.logger.Warn("persist failed, draft kept",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

func (n *watchNotifier) LenderRemoved(bufferID string, l deal.Lender) {
	n.logger.Info("lender removed",
		slog.String("buffer_id", bufferID),
		slog.String("name", l.Name),
	)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	dealID := args[0]

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	session := engine.NewSession(dealID, st, &watchNotifier{logger: logger}, logger, sessionOptions())
	defer session.Close()

	// Seed the session with the current store state so the first
	// display does not wait for the feed.
	if d, err := st.FetchDeal(cmd.Context(), dealID); err == nil {
		session.ApplySnapshot(*d)
	} else {
		logger.Warn("no local copy yet, waiting for feed",
			slog.String("deal_id", dealID),
			slog.String("error", err.Error()),
		)
	}

	src, err := buildFeed(resolvedCfg, st, dealID, logger)
	if err != nil {
		return err
	}

	runner := feed.NewRunner(src, session, logger)
	runner.OnApply = func(deal.Deal) {
		if draft, ok := session.Draft(); ok {
			statusf("refreshed %s: %d lenders, header %s\n",
				draft.Name, len(draft.Lenders), tierLabel(session.HeaderTier()))
		}
	}

	ctx := shutdownContext(cmd.Context(), logger)

	if draft, ok := session.Draft(); ok {
		printDeal(os.Stdout, draft, sessionOptions().Calendar, sessionOptions().ListTiers)
	}

	statusf("watching deal %s via %s feed (ctrl-c to stop)\n", dealID, resolvedCfg.Feed.Mode)

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("feed stopped: %w", err)
	}

	return nil
}

// buildFeed constructs the configured snapshot feed.
func buildFeed(cfg *config.Config, st *store.SQLiteStore, dealID string, logger *slog.Logger) (feed.Feed, error) {
	switch cfg.Feed.Mode {
	case config.FeedModePoll:
		return feed.NewPoller(st, dealID, cfg.Feed.Interval(), logger), nil
	case config.FeedModeDirectory:
		return feed.NewDirectoryFeed(cfg.Feed.SnapshotDir, dealID, logger), nil
	case config.FeedModeWebsocket:
		return feed.NewWebsocketFeed(cfg.Feed.WebsocketURL, dealID, logger), nil
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Feed.Mode)
	}
}
