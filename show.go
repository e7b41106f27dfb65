package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jturner-5thline/dealdesk/internal/engine"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <deal-id>",
		Short: "Display a deal with per-lender staleness",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	d, err := st.FetchDeal(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetching deal %s: %w", args[0], err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(d)
	}

	calendar := engine.CalendarPolicy{
		YellowDays: resolvedCfg.Staleness.YellowDays,
		RedDays:    resolvedCfg.Staleness.RedDays,
	}
	tiers := engine.BusinessDayPolicy{
		WarnAfter: resolvedCfg.Staleness.ListWarnAfter,
		DangerAt:  resolvedCfg.Staleness.ListDangerAt,
	}

	printDeal(os.Stdout, *d, calendar, tiers)

	return nil
}
