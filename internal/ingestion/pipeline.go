// Package ingestion loads a wine catalog file into the catalog store: it
// creates the collection and payload indexes, embeds each description and
// upserts the points with deterministic IDs.
// This pipeline is invoked by the `sommelier ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/54b3r/sommelier-go/internal/catalog"
	"github.com/54b3r/sommelier-go/internal/embedder"
)

// pointNamespace scopes catalog point IDs so they never collide with UUIDs
// minted elsewhere.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sommelier/catalog"))

// Store is the subset of *catalog.QdrantStore the pipeline writes through.
type Store interface {
	EnsureCollection(ctx context.Context, dim uint64) (bool, error)
	Upsert(ctx context.Context, points []catalog.Point) error
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// Dimensions is the embedding size the collection is created with.
	// Required.
	Dimensions int

	// BatchSize is the number of records embedded and upserted together.
	// Defaults to 32 if zero.
	BatchSize int

	// Concurrency is the number of batches in flight. Defaults to 4 if zero.
	Concurrency int
}

// Stats summarises an ingestion run.
type Stats struct {
	// Created is true when the collection did not exist before the run.
	Created bool
	// Upserted is the number of points written.
	Upserted int
	// Skipped is the number of records without a name.
	Skipped int
}

// Pipeline orchestrates the embed → upsert flow for a set of catalog
// records.
type Pipeline struct {
	// embedder converts descriptions into dense vectors.
	embedder embedder.Embedder

	// store persists the embedded points.
	store Store

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(emb embedder.Embedder, store Store, cfg *Config) (*Pipeline, error) {
	if emb == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil || cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("ingestion: embedding dimensions must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Pipeline{embedder: emb, store: store, cfg: cfg}, nil
}

// Ingest creates the collection if needed, then embeds and upserts records
// in batches. Records without a name are skipped. Progress is reported via
// the optional progress callback, which may be called concurrently.
func (p *Pipeline) Ingest(ctx context.Context, records []Record, progress func(msg string)) (Stats, error) {
	if progress == nil {
		progress = func(string) {}
	}

	var stats Stats
	created, err := p.store.EnsureCollection(ctx, uint64(p.cfg.Dimensions))
	if err != nil {
		return stats, fmt.Errorf("ingestion: %w", err)
	}
	stats.Created = created
	if created {
		progress("created collection")
	}

	wines := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			stats.Skipped++
			continue
		}
		wines = append(wines, r)
	}

	var upserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for start := 0; start < len(wines); start += p.cfg.BatchSize {
		batch := wines[start:min(start+p.cfg.BatchSize, len(wines))]
		g.Go(func() error {
			n, err := p.ingestBatch(gctx, batch)
			if err != nil {
				return err
			}
			total := upserted.Add(int64(n))
			progress(fmt.Sprintf("upserted %d/%d wines", total, len(wines)))
			return nil
		})
	}
	err = g.Wait()
	stats.Upserted = int(upserted.Load())
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// ingestBatch embeds and upserts one batch, returning the number of points
// written.
func (p *Pipeline) ingestBatch(ctx context.Context, batch []Record) (int, error) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = embeddingText(r.Wine())
	}

	vecs, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("ingestion: embedding failed for %q: %w", batch[0].Name, err)
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("ingestion: embedder returned %d vectors for %d wines", len(vecs), len(batch))
	}

	points := make([]catalog.Point, len(batch))
	for i, r := range batch {
		if len(vecs[i]) != p.cfg.Dimensions {
			return 0, fmt.Errorf("ingestion: %q embedded to %d dimensions, collection expects %d",
				r.Name, len(vecs[i]), p.cfg.Dimensions)
		}
		w := r.Wine()
		points[i] = catalog.Point{
			ID:          PointID(w),
			Wine:        w,
			PriceNumber: r.PriceNumber(),
			Dense:       vecs[i],
		}
	}

	if err := p.store.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("ingestion: %w", err)
	}
	return len(points), nil
}

// embeddingText is what gets embedded for a wine: its description, or its
// name when the description is empty.
func embeddingText(w catalog.Wine) string {
	if w.Description != "" {
		return w.Description
	}
	return w.Name
}

// PointID derives a stable UUID from the wine's identity so re-ingesting the
// same catalog overwrites rather than duplicates.
func PointID(w catalog.Wine) string {
	key := strings.ToLower(strings.Join([]string{w.Name, w.Country, w.Volume}, "|"))
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}
