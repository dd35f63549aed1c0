package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/sommelier-go/internal/store"
)

// CacheStore is the key-value persistence the cache needs. Get returns
// store.ErrNotFound for a miss.
type CacheStore interface {
	GetEmbedding(ctx context.Context, key string) ([]byte, error)
	PutEmbedding(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder wraps an Embedder and memoises vectors by model and text.
// Cache read and write failures are logged and otherwise ignored; the inner
// embedder is the source of truth.
type CachedEmbedder struct {
	inner  Embedder
	store  CacheStore
	model  string
	total  *prometheus.CounterVec
	logger *slog.Logger
}

// NewCacheCounter registers the embedding cache counter, labelled by result
// ("hit" or "miss").
func NewCacheCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	return promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "sommelier_embedding_cache_total",
		Help: "Embedding cache lookups by result.",
	}, []string{"result"})
}

// NewCached returns a caching decorator around inner. model namespaces the
// keys so switching models never serves stale vectors. total may be nil.
func NewCached(inner Embedder, s CacheStore, model string, total *prometheus.CounterVec, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{inner: inner, store: s, model: model, total: total, logger: logger}
}

// Embed implements Embedder. Only cache misses reach the inner embedder, in
// a single batch.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		keys[i] = c.key(t)
		if vec, ok := c.get(ctx, keys[i]); ok {
			c.inc("hit")
			out[i] = vec
			continue
		}
		c.inc("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder: expected %d embeddings, got %d", len(missTexts), len(vecs))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.put(ctx, keys[i], vecs[j])
	}
	return out, nil
}

func (c *CachedEmbedder) inc(result string) {
	if c.total != nil {
		c.total.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.model + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.GetEmbedding(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.WarnContext(ctx, "embedder: cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	vec, err := decodeVector(data)
	if err != nil {
		c.logger.WarnContext(ctx, "embedder: corrupt cache entry", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) put(ctx context.Context, key string, vec []float32) {
	if err := c.store.PutEmbedding(ctx, key, encodeVector(vec)); err != nil {
		c.logger.WarnContext(ctx, "embedder: cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding: len=%d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
