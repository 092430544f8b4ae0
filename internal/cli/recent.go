package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"token-admission/internal/app"
)

var (
	recentLimit int
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Display recent admission attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recentLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.RecentOptions{
			Limit: recentLimit,
		}

		return getApp().Recent(cmd.Context(), opts)
	},
}

func init() {
	recentCmd.Flags().IntVar(&recentLimit, "limit", 20, "Number of attempts to display")
}
