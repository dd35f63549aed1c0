package catalog

import "context"

// DefaultCollection is the Qdrant collection holding the wine catalog.
const DefaultCollection = "wines"

// Named vectors on every catalog point.
const (
	// DenseVector is the cosine dense embedding of the description.
	DenseVector = "dense"
	// SparseVector is the BM25 sparse vector computed by the store.
	SparseVector = "bm25"
	// BM25Model is the server-side inference model for SparseVector.
	BM25Model = "qdrant/bm25"
)

// HybridQuery is a fused dense plus lexical query.
type HybridQuery struct {
	// Text is the raw user query, used for the BM25 sub-query.
	Text string

	// Dense is the embedding of Text, used for the nearest-neighbour sub-query.
	Dense []float32

	// Limit is the number of fused results to return.
	Limit int
}

// Store is the catalog read path consumed by the search layer.
type Store interface {
	// Scroll returns up to limit records matching filter, unranked.
	Scroll(ctx context.Context, filter Filter, limit int) ([]Wine, error)

	// HybridQuery runs the dense and BM25 sub-queries and returns up to
	// q.Limit records ranked by reciprocal rank fusion.
	HybridQuery(ctx context.Context, q HybridQuery) ([]Wine, error)
}

// Point is a catalog record ready for upsert.
type Point struct {
	// ID is a UUID string, stable across re-ingestion of the same record.
	ID string

	// Wine is the record payload.
	Wine Wine

	// PriceNumber is the numeric price stored for range filtering. Nil
	// leaves Price as text.
	PriceNumber *float64

	// Dense is the embedding of the description.
	Dense []float32
}
