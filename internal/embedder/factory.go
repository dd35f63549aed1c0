package embedder

import (
	"fmt"
	"os"

	"github.com/54b3r/sommelier-go/internal/config"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// Backend returns the effective embedding backend: EMBEDDING_PROVIDER, else
// MODEL_PROVIDER when it names an embedding-capable backend, else ollama.
func Backend() string {
	if b := os.Getenv("EMBEDDING_PROVIDER"); b != "" {
		return b
	}
	switch p := os.Getenv("MODEL_PROVIDER"); p {
	case "openai", "azure":
		return p
	}
	return "ollama"
}

// Model returns the effective embedding model name for the resolved backend.
func Model() string {
	if m := os.Getenv("EMBEDDING_MODEL"); m != "" {
		return m
	}
	if Backend() == "ollama" {
		return defaultOllamaModel
	}
	return defaultOpenAIModel
}

// DefaultDimensions returns the embedding vector size for the given backend.
// EMBEDDING_DIMENSIONS always takes precedence when set. The catalog
// collection is created with this size.
func DefaultDimensions(backend string) int {
	if v := config.EnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	if backend == "ollama" {
		return defaultOllamaDimensions
	}
	return defaultOpenAIDimensions
}

// NewFromEnv constructs an Embedder for the resolved backend.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER, else MODEL_PROVIDER if openai/azure, else ollama
//  2. Per-backend credentials are inherited from the chat provider's env vars
//  3. EMBEDDING_MODEL overrides the default model
//  4. EMBEDDING_API_KEY overrides the inherited API key
//  5. EMBEDDING_ENDPOINT overrides the inherited endpoint
//  6. EMBEDDING_DIMENSIONS requests a reduced vector size (openai/azure)
func NewFromEnv() (Embedder, error) {
	backend := Backend()
	model := Model()

	switch backend {
	case "ollama":
		host := config.EnvOr("EMBEDDING_ENDPOINT", config.EnvOr("OLLAMA_HOST", "http://localhost:11434"))
		return NewOllamaEmbedder(OllamaConfig{Host: host, Model: model}), nil

	case "openai":
		apiKey := config.EnvOr("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     apiKey,
			BaseURL:    config.EnvOr("EMBEDDING_ENDPOINT", os.Getenv("OPENAI_BASE_URL")),
			Model:      model,
			Dimensions: config.EnvInt("EMBEDDING_DIMENSIONS", 0),
		}), nil

	case "azure":
		apiKey := config.EnvOr("EMBEDDING_API_KEY", os.Getenv("AZURE_OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := config.EnvOr("EMBEDDING_ENDPOINT", os.Getenv("AZURE_OPENAI_ENDPOINT"))
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     apiKey,
			BaseURL:    endpoint,
			Model:      model,
			Dimensions: config.EnvInt("EMBEDDING_DIMENSIONS", 0),
			Azure:      true,
			APIVersion: config.EnvOr("AZURE_OPENAI_API_VERSION", "2024-10-21"),
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: ollama, openai, azure)", backend)
	}
}
