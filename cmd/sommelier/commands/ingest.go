package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/sommelier-go/internal/embedder"
	"github.com/54b3r/sommelier-go/internal/ingestion"
	"github.com/54b3r/sommelier-go/internal/logging"
)

// NewIngestCmd constructs the `sommelier ingest` command, which loads a wine
// catalog file into the Qdrant collection.
func NewIngestCmd() *cobra.Command {
	var files []string
	var batchSize int
	var concurrency int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a wine catalog into the Qdrant collection",
		Long: `Embed and index a wine catalog (JSON array or CSV with a header row).

The collection is created on first run with a dense vector sized for the
embedding backend and a BM25 sparse vector, plus payload indexes for
Color, Acidity, Country and Price. Re-ingesting the same file overwrites
points instead of duplicating them.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: wines)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_*          Embedding backend overrides (see README)

Examples:
  sommelier ingest --file wines.json
  sommelier ingest --file red.csv --file white.csv --batch 64`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if len(files) == 0 {
				return fmt.Errorf("ingest: at least one --file is required")
			}

			var records []ingestion.Record
			for _, f := range files {
				rs, err := ingestion.LoadFile(f)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				log.Info("catalog file loaded", slog.String("file", f), slog.Int("records", len(rs)))
				records = append(records, rs...)
			}

			history := openHistory(log)
			if history != nil {
				defer func() { _ = history.Close() }()
			}

			emb, err := buildEmbedder(log, history, nil)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			catalogStore, err := openCatalog(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = catalogStore.Close() }()

			pipeline, err := ingestion.NewPipeline(emb, catalogStore, &ingestion.Config{
				Dimensions:  embedder.DefaultDimensions(embedder.Backend()),
				BatchSize:   batchSize,
				Concurrency: concurrency,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.Int("records", len(records)))

			stats, err := pipeline.Ingest(ctx, records, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed after %d wines: %w", stats.Upserted, err)
			}

			log.Info("ingestion complete",
				slog.Bool("collection_created", stats.Created),
				slog.Int("upserted", stats.Upserted),
				slog.Int("skipped", stats.Skipped),
			)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Catalog file to ingest, .json or .csv (repeatable)")
	cmd.Flags().IntVar(&batchSize, "batch", 0, "Wines embedded per request (default 32)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Batches in flight (default 4)")

	return cmd
}
