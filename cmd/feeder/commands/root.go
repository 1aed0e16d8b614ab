package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the feeder command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "feeder",
		Short: "Fish feeding schedule service",
		Long: `feeder keeps a recurring fish feeding schedule in a real-time store and
alerts when a feeding is due.

Configuration is read from ./config/config.yaml and the environment
(.env is loaded first). Secrets come from the environment only:
TELEGRAM_API_TOKEN and DATABASE_URL.

Examples:
  feeder run                                  # Run the feeding monitor
  feeder schedule set --time "8:00 AM" -i 3   # Feed at 8:00 AM, then every 3 hours
  feeder schedule show                        # Show upcoming feeding times
  feeder amount set "Just Right"              # Choose the feeding amount`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional.
			_ = godotenv.Load()
			return nil
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newScheduleCmd())
	root.AddCommand(newAmountCmd())

	return root
}
