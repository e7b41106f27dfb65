package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jturner-5thline/dealdesk/internal/deal"
	"github.com/jturner-5thline/dealdesk/internal/engine"
)

func newLenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lender",
		Short: "Manage a deal's lender list",
	}

	cmd.AddCommand(newLenderAddCmd())
	cmd.AddCommand(newLenderRemoveCmd())
	cmd.AddCommand(newLenderStageCmd())
	cmd.AddCommand(newLenderTrackingCmd())

	return cmd
}

// withSession opens the store, seeds a session from the stored deal,
// runs fn, and tears everything down in order.
func withSession(cmd *cobra.Command, dealID string, fn func(*engine.Session) error) error {
	logger := buildLogger()

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

	return fn(session)
}

func newLenderAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <deal-id> <name>",
		Short: "Add a lender to a deal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, args[0], func(s *engine.Session) error {
				l, err := s.AddLender(deal.NewLender{Name: args[1]})
				if err != nil {
					return fmt.Errorf("adding lender: %w", err)
				}

				statusf("added lender %s (%s)\n", l.Name, l.ID)

				return nil
			})
		},
	}
}

func newLenderRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <deal-id> <lender-id>",
		Short: "Remove a lender from a deal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, args[0], func(s *engine.Session) error {
				bufferID, err := s.RemoveLender(args[1])
				if err != nil {
					return fmt.Errorf("removing lender: %w", err)
				}

				statusf("removed lender %s (restore token %s, valid this session only)\n",
					args[1], bufferID)

				return nil
			})
		},
	}
}

func newLenderStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <deal-id> <lender-id> <stage> [substage]",
		Short: "Move a lender to a workflow stage",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			substage := ""
			if len(args) == 4 {
				substage = args[3]
			}

			return withSession(cmd, args[0], func(s *engine.Session) error {
				if err := s.UpdateLenderStage(args[1], deal.Stage(args[2]), substage); err != nil {
					return fmt.Errorf("updating stage: %w", err)
				}

				statusf("lender %s -> %s\n", args[1], args[2])

				return nil
			})
		},
	}
}

func newLenderTrackingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tracking <deal-id> <lender-id> <status>",
		Short: "Set a lender's tracking status (active, inactive, passed)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, args[0], func(s *engine.Session) error {
				if err := s.UpdateLenderTracking(args[1], deal.TrackingStatus(args[2])); err != nil {
					return fmt.Errorf("updating tracking: %w", err)
				}

				statusf("lender %s tracking -> %s\n", args[1], args[2])

				return nil
			})
		},
	}
}
