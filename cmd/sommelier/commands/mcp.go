package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/cart"
	"github.com/54b3r/sommelier-go/internal/logging"
	"github.com/54b3r/sommelier-go/internal/mcpserver"
)

// NewMCPCmd constructs `sommelier mcp`, which exposes the search and cart
// tools to external agents over the Model Context Protocol.
func NewMCPCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the sommelier tools over MCP",
		Long: `Serve search_wines_by_attributes, search_wines_by_query and
add_wine_to_cart over the Model Context Protocol. The default transport
is stdio; --http serves streamable HTTP on the given address instead.
The cart tool takes an explicit user_id.

Examples:
  sommelier mcp
  sommelier mcp --http 127.0.0.1:8090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			catalogStore, err := openCatalog(log)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer func() { _ = catalogStore.Close() }()

			emb, err := buildEmbedder(log, nil, nil)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}

			srv := mcpserver.New(buildSearch(catalogStore, emb, nil), cart.New(nil), log)

			if addr != "" {
				return srv.ListenAndServe(ctx, addr) //nolint:wrapcheck // mcpserver wraps its own errors
			}
			return srv.RunStdio(ctx) //nolint:wrapcheck // mcpserver wraps its own errors
		},
	}

	cmd.Flags().StringVar(&addr, "http", "", "Serve streamable HTTP on this address instead of stdio")

	return cmd
}
