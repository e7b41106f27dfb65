package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jturner-5thline/dealdesk/internal/prefs"
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Manage view preferences",
	}

	cmd.AddCommand(newPrefsShowCmd())
	cmd.AddCommand(newPrefsSetCmd())

	return cmd
}

func newPrefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display saved view preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			st, err := openStore(logger)
			if err != nil {
				return err
			}
			defer st.Close()

			mgr, err := prefs.NewManager(cmd.Context(), st, logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(mgr.Current())
		},
	}
}

func newPrefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one view preference and save",
		Long: "Keys: lenders_expanded, notes_expanded, show_inactive, show_passed, " +
			"sort_key, sort_descending. The save is skipped when the value is " +
			"already in effect.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			st, err := openStore(logger)
			if err != nil {
				return err
			}
			defer st.Close()

			mgr, err := prefs.NewManager(cmd.Context(), st, logger)
			if err != nil {
				return err
			}

			p := mgr.Current()
			if err := applyPref(&p, args[0], args[1]); err != nil {
				return err
			}

			mgr.Update(p)

			wrote, err := mgr.Save(cmd.Context())
			if err != nil {
				return err
			}

			if wrote {
				statusf("preferences saved\n")
			} else {
				statusf("no change\n")
			}

			return nil
		},
	}
}

// applyPref sets one named field on the preference object.
func applyPref(p *prefs.ViewPrefs, key, value string) error {
	boolField := func(target *bool) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("preference %s wants true/false, got %q", key, value)
		}

		*target = v

		return nil
	}

	switch key {
	case "lenders_expanded":
		return boolField(&p.LendersExpanded)
	case "notes_expanded":
		return boolField(&p.NotesExpanded)
	case "show_inactive":
		return boolField(&p.ShowInactive)
	case "show_passed":
		return boolField(&p.ShowPassed)
	case "sort_descending":
		return boolField(&p.SortDescending)
	case "sort_key":
		p.SortKey = value

		return nil
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
}
