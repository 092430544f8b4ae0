package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"token-admission/internal/app"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Resolve a free-text query into ranked token candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if len(query) < 2 {
			return fmt.Errorf("query must be at least 2 characters")
		}

		opts := app.SearchOptions{
			Query: query,
		}

		return getApp().Search(cmd.Context(), opts)
	},
}
