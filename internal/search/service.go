package search

import (
	"errors"
	"time"

	"github.com/54b3r/sommelier-go/internal/catalog"
	"github.com/54b3r/sommelier-go/internal/embedder"
)

// ErrStore marks a catalog store failure. Fatal results wrap it.
var ErrStore = errors.New("search: catalog store failure")

// Limits.
const (
	DefaultLimit  = 3
	MaxAttrLimit  = 30
	MaxQueryLimit = 10
)

// Default timeouts.
const (
	DefaultEmbedTimeout = 15 * time.Second
	DefaultStoreTimeout = 10 * time.Second
)

// Config holds the tunables for a Service.
type Config struct {
	// EmbedTimeout bounds each embedding call (default: 15s).
	EmbedTimeout time.Duration
	// StoreTimeout bounds each catalog store call (default: 10s).
	StoreTimeout time.Duration
	// Metrics records search outcomes. Optional.
	Metrics *Metrics
}

// Service runs attribute and semantic searches against a catalog store.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	store    catalog.Store
	embedder embedder.Embedder
	cfg      Config
}

// New returns a Service. Zero timeouts fall back to the defaults.
func New(store catalog.Store, emb embedder.Embedder, cfg Config) *Service {
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &Service{store: store, embedder: emb, cfg: cfg}
}

// clampLimit returns def for non-positive limits and upper for limits above it.
func clampLimit(limit, def, upper int) int {
	if limit <= 0 {
		return def
	}
	if limit > upper {
		return upper
	}
	return limit
}
