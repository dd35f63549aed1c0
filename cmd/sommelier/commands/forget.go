package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/logging"
)

// NewForgetCmd constructs `sommelier forget`, which deletes a user's stored
// conversation history.
func NewForgetCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete a user's conversation history",
		Long: `Delete every stored message of --user from the history database
(SOMMELIER_HISTORY_DB, default ~/.sommelier/history.db). Cached embeddings
are kept.

Example:
  sommelier forget --user 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if userID == 0 {
				return fmt.Errorf("forget: --user is required")
			}

			history := openHistory(logging.FromContext(ctx))
			if history == nil {
				return fmt.Errorf("forget: history store is unavailable")
			}
			defer func() { _ = history.Close() }()

			if err := history.Forget(ctx, userID); err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "history of user %d deleted\n", userID)
			return err //nolint:wrapcheck // CLI entry point
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User ID whose history to delete")

	return cmd
}
