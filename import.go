package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Load a JSON deal snapshot into the local store",
		Long: "Reads a canonical deal snapshot exported as JSON and writes it to " +
			"the local database, replacing any existing copy of the same deal.",
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading snapshot file: %w", err)
	}

	var d deal.Deal
	if err := json.Unmarshal(raw, &d); err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", args[0], err)
	}

	if d.ID == "" {
		return fmt.Errorf("snapshot %s has no deal ID", args[0])
	}

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveDeal(cmd.Context(), d); err != nil {
		return fmt.Errorf("saving deal %s: %w", d.ID, err)
	}

	statusf("imported deal %s (%s) with %d lenders\n", d.Name, d.ID, len(d.Lenders))

	return nil
}
