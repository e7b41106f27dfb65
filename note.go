package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jturner-5thline/dealdesk/internal/engine"
)

func newNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <deal-id> <lender-id> <text>...",
		Short: "Commit a note on a lender",
		Long: "Replaces the lender's draft note and commits it. If the lender had " +
			"a previously committed note, that value is archived to the note " +
			"history before the new text takes over.",
		Args: cobra.MinimumNArgs(3),
		RunE: runNote,
	}
}

func runNote(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	dealID, lenderID := args[0], args[1]
	text := strings.Join(args[2:], " ")

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	d, err := st.FetchDeal(cmd.Context(), dealID)
	if err != nil {
		return fmt.Errorf("fetching deal %s: %w", dealID, err)
	}

	session := engine.NewSession(dealID, st, &watchNotifier{logger: logger}, logger, sessionOptions())
	defer session.Close()

	session.ApplySnapshot(*d)

	// Mark the stored note as committed so divergence archives it.
	if l := d.FindLender(lenderID); l != nil && l.Notes != "" {
		if err := session.NoteKeystroke(lenderID, l.Notes); err != nil {
			return err
		}

		if err := session.CommitNote(lenderID); err != nil {
			return err
		}
	}

	if err := session.NoteKeystroke(lenderID, text); err != nil {
		return fmt.Errorf("editing note: %w", err)
	}

	if err := session.CommitNote(lenderID); err != nil {
		return fmt.Errorf("committing note: %w", err)
	}

	statusf("note committed on lender %s\n", lenderID)

	return nil
}
