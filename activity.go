package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// defaultActivityLimit caps the number of entries shown without --limit.
const defaultActivityLimit = 50

func newActivityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity <deal-id>",
		Short: "Show the audit trail for a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivity(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultActivityLimit, "maximum entries to show")

	return cmd
}

func runActivity(cmd *cobra.Command, dealID string, limit int) error {
	logger := buildLogger()

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListActivity(cmd.Context(), dealID, limit)
	if err != nil {
		return fmt.Errorf("listing activity for %s: %w", dealID, err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(records)
	}

	for _, rec := range records {
		fmt.Fprintf(os.Stdout, "%-13s %-16s %s\n",
			formatTime(rec.CreatedAt), rec.Type, rec.Description)
	}

	return nil
}
