// Package embedder turns free text into dense vectors for semantic search.
// Backends: Ollama, OpenAI and Azure OpenAI, all through go-openai.
// A SQLite-backed cache can wrap any backend.
package embedder

import (
	"context"
	"fmt"
)

// Embedder converts a batch of texts into embeddings. The returned slice is
// parallel to the input. Implementations are safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder: expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}
