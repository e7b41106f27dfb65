package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// DirectoryFeed watches a drop directory for JSON deal snapshots. An
// external exporter writes one file per refresh; the feed decodes each
// newly written file, emits snapshots matching its deal ID, and skips
// the rest. Chmod-only events are ignored, and half-written files
// (decode failures) are logged and skipped rather than killing the
// watch; the exporter's next write supersedes them.
type DirectoryFeed struct {
	dir    string
	dealID string
	logger *slog.Logger
}

// NewDirectoryFeed creates a directory feed for one deal.
func NewDirectoryFeed(dir, dealID string, logger *slog.Logger) *DirectoryFeed {
	return &DirectoryFeed{
		dir:    dir,
		dealID: dealID,
		logger: logger,
	}
}

// Run watches the drop directory until the context is canceled. It
// first replays any snapshot already present so a session starting
// after the exporter still sees the latest state.
func (f *DirectoryFeed) Run(ctx context.Context, snapshots chan<- deal.Deal) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating directory watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.dir); err != nil {
		return fmt.Errorf("watching snapshot dir %s: %w", f.dir, err)
	}

	f.logger.Info("directory feed starting",
		slog.String("dir", f.dir),
		slog.String("deal_id", f.dealID),
	)

	f.replayExisting(ctx, snapshots)

	errBackoff := initialBackoff
	steps := 0

	for {
		select {
		case <-ctx.Done():
			return nil

		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !fsEvent.Has(fsnotify.Create) && !fsEvent.Has(fsnotify.Write) {
				continue
			}

			f.handleFile(ctx, fsEvent.Name, snapshots)

			errBackoff = initialBackoff
			steps = 0

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			f.logger.Warn("directory watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			// Backoff prevents a tight loop under sustained watcher
			// errors such as kernel buffer overflow.
			if sleep(ctx, errBackoff) != nil {
				return nil
			}

			errBackoff, steps = advanceBackoff(errBackoff, steps)
		}
	}
}

// replayExisting emits the snapshots already sitting in the drop
// directory, in name order.
func (f *DirectoryFeed) replayExisting(ctx context.Context, snapshots chan<- deal.Deal) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		f.logger.Warn("cannot list snapshot dir", slog.String("error", err.Error()))

		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		f.handleFile(ctx, filepath.Join(f.dir, entry.Name()), snapshots)
	}
}

// handleFile decodes one snapshot file and emits it if it matches the
// watched deal.
func (f *DirectoryFeed) handleFile(ctx context.Context, path string, snapshots chan<- deal.Deal) {
	if !strings.HasSuffix(path, ".json") {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		f.logger.Warn("cannot read snapshot file",
			slog.String("path", path), slog.String("error", err.Error()))

		return
	}

	var d deal.Deal
	if err := json.Unmarshal(raw, &d); err != nil {
		f.logger.Warn("skipping unreadable snapshot file",
			slog.String("path", path), slog.String("error", err.Error()))

		return
	}

	if d.ID != f.dealID {
		f.logger.Debug("ignoring snapshot for other deal",
			slog.String("path", path), slog.String("deal_id", d.ID))

		return
	}

	if send(ctx, snapshots, d) != nil {
		return
	}

	f.logger.Debug("directory feed emitted snapshot", slog.String("path", path))
}
