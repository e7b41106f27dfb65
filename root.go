package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jturner-5thline/dealdesk/internal/config"
	"github.com/jturner-5thline/dealdesk/internal/engine"
	"github.com/jturner-5thline/dealdesk/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by
// PersistentPreRunE. Available to all subcommands after the root
// pre-run phase completes.
var resolvedCfg *config.Config

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dealdesk",
		Short:   "Deal pipeline tracker",
		Long:    "A deal and lender outreach tracker with live reconciliation against a canonical snapshot feed.",
		Version: version,
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newNoteCmd())
	cmd.AddCommand(newLenderCmd())
	cmd.AddCommand(newActivityCmd())
	cmd.AddCommand(newPrefsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override
// chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig() error {
	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config
// and CLI flags. Config-file log level provides the baseline; --verbose
// and --quiet override it because CLI flags always win. Format "auto"
// picks text on a terminal and JSON otherwise.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.Logging.LogFormat
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	if format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openStore opens the configured SQLite database.
func openStore(logger *slog.Logger) (*store.SQLiteStore, error) {
	st, err := store.NewStore(resolvedCfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening deal store: %w", err)
	}

	return st, nil
}

// sessionOptions maps the resolved config onto engine options.
func sessionOptions() engine.Options {
	return engine.Options{
		CommitAckInterval: resolvedCfg.Session.AckInterval(),
		DebounceQuiet:     resolvedCfg.Session.DebounceInterval(),
		Calendar: engine.CalendarPolicy{
			YellowDays: resolvedCfg.Staleness.YellowDays,
			RedDays:    resolvedCfg.Staleness.RedDays,
		},
		ListTiers: engine.BusinessDayPolicy{
			WarnAfter: resolvedCfg.Staleness.ListWarnAfter,
			DangerAt:  resolvedCfg.Staleness.ListDangerAt,
		},
		HeaderTiers: engine.BusinessDayPolicy{
			WarnAfter: resolvedCfg.Staleness.HeaderWarnAfter,
			DangerAt:  resolvedCfg.Staleness.HeaderDangerAt,
		},
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
