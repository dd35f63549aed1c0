package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/cart"
	"github.com/54b3r/sommelier-go/internal/logging"
)

// NewAskCmd constructs the `sommelier ask` command, which sends a single
// question to the agent and streams the answer to stdout.
func NewAskCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the sommelier a question",
		Long: `Ask the sommelier agent a question about wine.

The turn runs with the history of --user, so follow-up questions keep
their context. The cart lives only for this invocation.

Examples:
  sommelier ask "красное вино до 1000 рублей"
  sommelier ask --user 42 "что-нибудь к стейку из Аргентины?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			history := openHistory(log)
			if history != nil {
				defer func() { _ = history.Close() }()
			}

			catalogStore, err := openCatalog(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = catalogStore.Close() }()

			emb, err := buildEmbedder(log, history, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			sommelier, err := buildAgent(ctx, log, buildSearch(catalogStore, emb, nil), cart.New(nil), history)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			if err := sommelier.Stream(ctx, userID, strings.Join(args, " "), out); err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			_, err = fmt.Fprintln(out)
			return err //nolint:wrapcheck // CLI entry point
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 1, "User ID whose history the turn uses")

	return cmd
}
