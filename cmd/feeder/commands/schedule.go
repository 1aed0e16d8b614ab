package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/repository"
)

const defaultUpcomingCount = 8

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage the feeding schedule",
		Long: `Set the first feeding time and the interval, or show upcoming feedings.

Examples:
  feeder schedule set --time "8:00 AM"
  feeder schedule set --time 20:30 --interval 4
  feeder schedule interval 3
  feeder schedule show --count 5`,
	}

	cmd.AddCommand(newScheduleSetCmd())
	cmd.AddCommand(newScheduleIntervalCmd())
	cmd.AddCommand(newScheduleShowCmd())

	return cmd
}

func newScheduleSetCmd() *cobra.Command {
	var (
		at       string
		interval int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the first feeding time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			anchor, err := entities.ParseTimeOfDay(at)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.warnVolatile()

			svc := a.scheduleService()
			ctx := cmd.Context()

			if cmd.Flags().Changed("interval") {
				_, err := svc.SetInterval(ctx, entities.Interval(interval))
				if err != nil && !errors.Is(err, repository.ErrAnchorNotFound) {
					return err
				}
			}

			if _, err := svc.SetAnchor(ctx, anchor); err != nil {
				return err
			}

			return printSchedule(cmd, a, defaultUpcomingCount)
		},
	}

	cmd.Flags().StringVarP(&at, "time", "t", "", `first feeding time, "8:00 AM" or "20:00"`)
	cmd.Flags().IntVarP(&interval, "interval", "i", 0, "hours between feedings (1-6)")
	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func newScheduleIntervalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interval <hours>",
		Short: "Set the hours between feedings (1-6)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", entities.ErrInvalidInterval, args[0])
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.warnVolatile()

			_, err = a.scheduleService().SetInterval(cmd.Context(), entities.Interval(hours))
			if errors.Is(err, repository.ErrAnchorNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "Interval saved. No feeding time set yet, use: feeder schedule set --time \"8:00 AM\"")
				return nil
			}
			if err != nil {
				return err
			}

			return printSchedule(cmd, a, defaultUpcomingCount)
		},
	}
}

func newScheduleShowCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the schedule and upcoming feeding times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			err = printSchedule(cmd, a, count)
			if errors.Is(err, repository.ErrScheduleNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No feeding schedule set.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", defaultUpcomingCount, "number of upcoming feedings to list")

	return cmd
}

func printSchedule(cmd *cobra.Command, a *app, count int) error {
	svc := a.scheduleService()

	s, err := svc.Current(cmd.Context())
	if err != nil {
		return err
	}
	upcoming, err := svc.Upcoming(cmd.Context(), count)
	if err != nil {
		return err
	}

	writeSchedule(cmd.OutOrStdout(), s, upcoming)
	return nil
}

func writeSchedule(w io.Writer, s *entities.Schedule, upcoming []entities.TimeOfDay) {
	fmt.Fprintf(w, "First feeding: %s\n", s.Anchor.Format12())
	fmt.Fprintf(w, "Interval:      %d h\n", int(s.Interval))
	fmt.Fprintf(w, "Next feeding:  %s\n", s.NextInstant.Format12())

	if len(upcoming) == 0 {
		return
	}
	fmt.Fprintln(w, "Upcoming:")
	for i, t := range upcoming {
		fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, t.Format12(), t)
	}
}
