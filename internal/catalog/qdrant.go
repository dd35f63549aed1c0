package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/status"
)

// QdrantConfig holds connection parameters for the catalog collection.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection name (default: wines).
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements Store backed by a Qdrant collection.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client, safe for concurrent use.
	client *qdrant.Client

	// collection is the resolved collection name.
	collection string
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore connects to Qdrant. It does not create the collection;
// call EnsureCollection from the ingestion path for that.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, collection: cfg.Collection}, nil
}

// Collection returns the collection name this store reads.
func (s *QdrantStore) Collection() string { return s.collection }

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// HealthCheck reports whether the Qdrant server is reachable.
func (s *QdrantStore) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("catalog: health check failed (%s): %w", status.Code(err), err)
	}
	return nil
}

// Scroll implements Store.
func (s *QdrantStore) Scroll(ctx context.Context, filter Filter, limit int) ([]Wine, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: scroll failed (%s): %w", status.Code(err), err)
	}

	wines := make([]Wine, 0, len(points))
	for _, p := range points {
		wines = append(wines, wineFromPayload(p.GetPayload()))
	}
	return wines, nil
}

// HybridQuery implements Store. Both sub-queries travel in one request as
// prefetches and Qdrant fuses them with RRF before applying the limit.
func (s *QdrantStore) HybridQuery(ctx context.Context, q HybridQuery) ([]Wine, error) {
	points, err := s.client.Query(ctx, hybridRequest(s.collection, q))
	if err != nil {
		return nil, fmt.Errorf("catalog: hybrid query failed (%s): %w", status.Code(err), err)
	}

	wines := make([]Wine, 0, len(points))
	for _, p := range points {
		wines = append(wines, wineFromPayload(p.GetPayload()))
	}
	return wines, nil
}

// hybridRequest builds the fused dense plus BM25 query.
func hybridRequest(collection string, q HybridQuery) *qdrant.QueryPoints {
	return &qdrant.QueryPoints{
		CollectionName: collection,
		Prefetch: []*qdrant.PrefetchQuery{
			{
				Query: qdrant.NewQueryDense(q.Dense),
				Using: qdrant.PtrOf(DenseVector),
			},
			{
				Query: qdrant.NewQueryNearest(qdrant.NewVectorInputDocument(&qdrant.Document{
					Text:  q.Text,
					Model: BM25Model,
				})),
				Using: qdrant.PtrOf(SparseVector),
			},
		},
		Query:       qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Limit:       qdrant.PtrOf(uint64(q.Limit)),
		WithPayload: qdrant.NewWithPayload(true),
	}
}

// toQdrantFilter converts a Filter into Qdrant "must" conditions. An empty
// filter converts to nil so the scroll is unfiltered.
func toQdrantFilter(f Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		switch c.Kind {
		case MatchExact:
			must = append(must, qdrant.NewMatch(c.Field, c.Value))
		case MatchText:
			must = append(must, qdrant.NewMatchText(c.Field, c.Value))
		case MatchRange:
			must = append(must, qdrant.NewRange(c.Field, &qdrant.Range{
				Gte: c.Gte,
				Lte: c.Lte,
			}))
		}
	}
	return &qdrant.Filter{Must: must}
}

// wineFromPayload decodes a point payload. Missing keys become "".
func wineFromPayload(p map[string]*qdrant.Value) Wine {
	return Wine{
		Name:        valueText(p[FieldName]),
		Country:     valueText(p[FieldCountry]),
		Color:       valueText(p[FieldColor]),
		Acidity:     valueText(p[FieldAcidity]),
		Price:       valueText(p[FieldPrice]),
		Volume:      valueText(p[FieldVolume]),
		Description: valueText(p[FieldDescription]),
	}
}

// valueText renders a scalar payload value as text. Whole doubles render
// without a fractional part so a price of 1500 prints as "1500".
func valueText(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(k.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(k.DoubleValue, 'f', -1, 64)
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	}
	return ""
}
