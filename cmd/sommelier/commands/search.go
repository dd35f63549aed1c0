package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/logging"
	"github.com/54b3r/sommelier-go/internal/search"
)

// NewSearchCmd constructs `sommelier search`, which runs the catalog
// searches directly, without the LLM.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the wine catalog without the agent",
	}
	cmd.AddCommand(newSearchAttrsCmd(), newSearchQueryCmd())
	return cmd
}

func newSearchAttrsCmd() *cobra.Command {
	var q search.AttributeQuery
	var minPrice, maxPrice float64

	cmd := &cobra.Command{
		Use:   "attrs",
		Short: "Filter wines by color, country, price and acidity",
		Long: `Filter the catalog by exact attributes. At least one filter is required.

Examples:
  sommelier search attrs --color красное --max-price 1000
  sommelier search attrs --country Италия --acidity сухое --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min-price") {
				q.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max-price") {
				q.MaxPrice = &maxPrice
			}
			return runSearch(cmd, func(s *search.Service) search.Result {
				return s.ByAttributes(cmd.Context(), q)
			})
		},
	}

	cmd.Flags().StringVar(&q.Color, "color", "", "Wine color, e.g. красное, белое, розовое")
	cmd.Flags().StringVar(&q.Country, "country", "", "Country of origin (full-text match)")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "Minimum price, inclusive")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum price, inclusive")
	cmd.Flags().StringVar(&q.Acidity, "acidity", "", "Sweetness level, e.g. сухое, полусладкое")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", search.DefaultLimit, "Maximum number of wines")

	return cmd
}

func newSearchQueryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "query [description]",
		Short: "Find wines matching a free-text description",
		Long: `Run a hybrid dense and BM25 search over wine descriptions.

Examples:
  sommelier search query "фруктовое вино к рыбе"
  sommelier search query -n 5 "терпкое с нотами вишни"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return runSearch(cmd, func(s *search.Service) search.Result {
				return s.ByQuery(cmd.Context(), text, limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum number of wines")

	return cmd
}

// runSearch wires a search.Service, runs fn and prints the result text the
// agent would see.
func runSearch(cmd *cobra.Command, fn func(*search.Service) search.Result) error {
	log := logging.FromContext(cmd.Context())

	catalogStore, err := openCatalog(log)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer func() { _ = catalogStore.Close() }()

	emb, err := buildEmbedder(log, nil, nil)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	text, err := fn(buildSearch(catalogStore, emb, nil)).Text()
	if err != nil {
		return err //nolint:wrapcheck // already prefixed by the search package
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err //nolint:wrapcheck // CLI entry point
}
