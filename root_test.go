package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/config"
	"github.com/jturner-5thline/dealdesk/internal/feed"
	"github.com/jturner-5thline/dealdesk/internal/prefs"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests must set
// globals AFTER newRootCmd() returns, or use cmd.SetArgs() + cmd.Execute().

func withFlags(t *testing.T, verbose, quiet bool, cfg *config.Config) {
	t.Helper()

	oldVerbose, oldQuiet, oldCfg := flagVerbose, flagQuiet, resolvedCfg

	t.Cleanup(func() {
		flagVerbose, flagQuiet, resolvedCfg = oldVerbose, oldQuiet, oldCfg
	})

	flagVerbose = verbose
	flagQuiet = quiet
	resolvedCfg = cfg
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.LogLevel = "warn"
	withFlags(t, false, false, cfg)

	logger := buildLogger()
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_VerboseWinsOverConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.LogLevel = "error"
	withFlags(t, true, false, cfg)

	logger := buildLogger()
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietSuppressesInfo(t *testing.T) {
	withFlags(t, false, true, config.DefaultConfig())

	logger := buildLogger()
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestSessionOptions_MapsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.CommitAckInterval = "2s"
	cfg.Staleness.YellowDays = 4
	cfg.Staleness.HeaderDangerAt = 12
	withFlags(t, false, false, cfg)

	opts := sessionOptions()
	assert.Equal(t, 2*time.Second, opts.CommitAckInterval)
	assert.Equal(t, 800*time.Millisecond, opts.DebounceQuiet)
	assert.Equal(t, 4, opts.Calendar.YellowDays)
	assert.Equal(t, 5, opts.Calendar.RedDays)
	assert.Equal(t, 3, opts.ListTiers.WarnAfter)
	assert.Equal(t, 12, opts.HeaderTiers.DangerAt)
}

func TestBuildFeed_SelectsConfiguredMode(t *testing.T) {
	logger := slog.Default()

	cfg := config.DefaultConfig()
	f, err := buildFeed(cfg, nil, "deal-1", logger)
	require.NoError(t, err)
	assert.IsType(t, &feed.Poller{}, f)

	cfg.Feed.Mode = config.FeedModeDirectory
	cfg.Feed.SnapshotDir = t.TempDir()
	f, err = buildFeed(cfg, nil, "deal-1", logger)
	require.NoError(t, err)
	assert.IsType(t, &feed.DirectoryFeed{}, f)

	cfg.Feed.Mode = config.FeedModeWebsocket
	cfg.Feed.WebsocketURL = "wss://example.com/feed"
	f, err = buildFeed(cfg, nil, "deal-1", logger)
	require.NoError(t, err)
	assert.IsType(t, &feed.WebsocketFeed{}, f)

	cfg.Feed.Mode = "telegraph"
	_, err = buildFeed(cfg, nil, "deal-1", logger)
	assert.Error(t, err)
}

func TestApplyPref(t *testing.T) {
	p := prefs.DefaultViewPrefs()

	require.NoError(t, applyPref(&p, "show_inactive", "true"))
	assert.True(t, p.ShowInactive)

	require.NoError(t, applyPref(&p, "sort_key", "updated_at"))
	assert.Equal(t, "updated_at", p.SortKey)

	err := applyPref(&p, "show_inactive", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "true/false")

	err = applyPref(&p, "font_size", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preference")
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"show", "watch", "import", "note", "lender", "activity", "prefs", "config"} {
		assert.Contains(t, names, want)
	}
}
