package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/sommelier-go/internal/catalog"
	"github.com/54b3r/sommelier-go/internal/logging"
)

// AttributeQuery selects wines by structured attributes. Empty strings and
// nil bounds are unset. At least one filter field must be set.
type AttributeQuery struct {
	// Color is matched exactly after lower-casing.
	Color string
	// Country is matched as full text, so partial names and codes work.
	Country string
	// MinPrice is the inclusive lower price bound.
	MinPrice *float64
	// MaxPrice is the inclusive upper price bound.
	MaxPrice *float64
	// Acidity is matched exactly as given.
	Acidity string
	// Limit caps the number of hits (default 3, at most 30).
	Limit int
}

// BuildFilter converts q into a conjunctive catalog filter. The filter is
// empty when no field is set.
func BuildFilter(q AttributeQuery) catalog.Filter {
	var f catalog.Filter
	if q.Color != "" {
		f.Must = append(f.Must, catalog.Exact(catalog.FieldColor, strings.ToLower(q.Color)))
	}
	if q.Country != "" {
		f.Must = append(f.Must, catalog.Text(catalog.FieldCountry, q.Country))
	}
	if q.Acidity != "" {
		f.Must = append(f.Must, catalog.Exact(catalog.FieldAcidity, q.Acidity))
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		f.Must = append(f.Must, catalog.Range(catalog.FieldPrice, q.MinPrice, q.MaxPrice))
	}
	return f
}

// ByAttributes scans the catalog with a filter built from q. An empty filter
// is rejected without touching the store.
func (s *Service) ByAttributes(ctx context.Context, q AttributeQuery) Result {
	start := time.Now()
	r := s.byAttributes(ctx, q)
	s.cfg.Metrics.observe("attributes", r, time.Since(start).Seconds())
	return r
}

func (s *Service) byAttributes(ctx context.Context, q AttributeQuery) Result {
	log := logging.FromContext(ctx)

	filter := BuildFilter(q)
	if filter.IsEmpty() {
		return recovered(MsgNeedFilter)
	}
	limit := clampLimit(q.Limit, DefaultLimit, MaxAttrLimit)

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	wines, err := s.store.Scroll(storeCtx, filter, limit)
	if err != nil {
		log.ErrorContext(ctx, "search: attribute scroll failed",
			slog.Int("conditions", len(filter.Must)),
			slog.Any("error", err),
		)
		return fatal(fmt.Errorf("%w: %w", ErrStore, err))
	}

	log.DebugContext(ctx, "search: attribute scroll",
		slog.Int("conditions", len(filter.Must)),
		slog.Int("limit", limit),
		slog.Int("hits", len(wines)),
	)
	if len(wines) == 0 {
		return empty(MsgNoAttrMatches)
	}
	return found(wines)
}
