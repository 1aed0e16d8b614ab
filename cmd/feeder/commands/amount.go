package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

func newAmountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amount",
		Short: "Manage the feeding amount",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <Little|Just Right|A Lot>",
		Short: "Choose how much food is dispensed per feeding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.Join(args, " ")
			if _, err := entities.FeedingAmountByLabel(label); err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.warnVolatile()

			amount, err := a.scheduleService().SetFeedingAmount(cmd.Context(), label)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Feeding amount: %s (%d s)\n", amount.Label, amount.Duration)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the feeding amount and the available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			current, err := a.scheduleService().FeedingAmount(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, p := range entities.FeedingAmounts() {
				marker := " "
				if p.Label == current.Label {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %-10s %2d s\n", marker, p.Label, p.Duration)
			}
			if current.Duration != amountDuration(current.Label) {
				fmt.Fprintf(w, "custom duration: %d s\n", current.Duration)
			}
			return nil
		},
	})

	return cmd
}

func amountDuration(label string) int {
	p, err := entities.FeedingAmountByLabel(label)
	if err != nil {
		return 0
	}
	return p.Duration
}
