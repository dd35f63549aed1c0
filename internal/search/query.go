package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/sommelier-go/internal/catalog"
	"github.com/54b3r/sommelier-go/internal/embedder"
	"github.com/54b3r/sommelier-go/internal/logging"
)

// ByQuery embeds text and runs a hybrid dense plus BM25 query fused with
// reciprocal rank fusion. limit defaults to 3 and is capped at 10.
//
// An embedding failure is logged and recovered into a fixed message; the
// store is not queried. A store failure is Fatal.
func (s *Service) ByQuery(ctx context.Context, text string, limit int) Result {
	start := time.Now()
	r := s.byQuery(ctx, text, limit)
	s.cfg.Metrics.observe("query", r, time.Since(start).Seconds())
	return r
}

func (s *Service) byQuery(ctx context.Context, text string, limit int) Result {
	log := logging.FromContext(ctx)
	limit = clampLimit(limit, DefaultLimit, MaxQueryLimit)

	embedCtx, cancelEmbed := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	dense, err := embedder.EmbedOne(embedCtx, s.embedder, text)
	cancelEmbed()
	if err != nil {
		log.ErrorContext(ctx, "search: embedding failed", slog.Any("error", err))
		return recovered(MsgEmbeddingFailed)
	}

	storeCtx, cancelStore := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancelStore()

	wines, err := s.store.HybridQuery(storeCtx, catalog.HybridQuery{
		Text:  text,
		Dense: dense,
		Limit: limit,
	})
	if err != nil {
		log.ErrorContext(ctx, "search: hybrid query failed", slog.Any("error", err))
		return fatal(fmt.Errorf("%w: %w", ErrStore, err))
	}

	log.DebugContext(ctx, "search: hybrid query",
		slog.Int("limit", limit),
		slog.Int("hits", len(wines)),
	)
	if len(wines) == 0 {
		return empty(MsgNoQueryMatches)
	}
	return found(wines)
}
