package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(resolvedCfg)
	}

	fmt.Printf("store:\n  path: %s\n", resolvedCfg.Store.Path)
	fmt.Printf("session:\n  commit_ack_interval: %s\n  debounce_quiet: %s\n",
		resolvedCfg.Session.CommitAckInterval, resolvedCfg.Session.DebounceQuiet)
	fmt.Printf("staleness:\n  yellow_days: %d\n  red_days: %d\n  list tiers: warn >%d, danger >=%d\n  header tiers: warn >%d, danger >=%d\n",
		resolvedCfg.Staleness.YellowDays, resolvedCfg.Staleness.RedDays,
		resolvedCfg.Staleness.ListWarnAfter, resolvedCfg.Staleness.ListDangerAt,
		resolvedCfg.Staleness.HeaderWarnAfter, resolvedCfg.Staleness.HeaderDangerAt)
	fmt.Printf("feed:\n  mode: %s\n", resolvedCfg.Feed.Mode)

	switch resolvedCfg.Feed.Mode {
	case "poll":
		fmt.Printf("  poll_interval: %s\n", resolvedCfg.Feed.PollInterval)
	case "directory":
		fmt.Printf("  snapshot_dir: %s\n", resolvedCfg.Feed.SnapshotDir)
	case "websocket":
		fmt.Printf("  websocket_url: %s\n", resolvedCfg.Feed.WebsocketURL)
	}

	fmt.Printf("logging:\n  log_level: %s\n  log_format: %s\n",
		resolvedCfg.Logging.LogLevel, resolvedCfg.Logging.LogFormat)

	return nil
}
