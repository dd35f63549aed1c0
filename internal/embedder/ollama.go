package embedder

import "strings"

// OllamaEmbedder embeds with a local Ollama server through its
// OpenAI-compatible /v1/embeddings endpoint. No API key is required.
type OllamaEmbedder struct {
	*OpenAIEmbedder
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama server base URL, without the /v1 suffix.
	Host string
	// Model is the embedding model name.
	Model string
}

// ollamaPlaceholderKey satisfies the client; Ollama ignores it.
const ollamaPlaceholderKey = "ollama"

// NewOllamaEmbedder constructs an OllamaEmbedder.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	e := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:  ollamaPlaceholderKey,
		BaseURL: strings.TrimRight(cfg.Host, "/") + "/v1",
		Model:   cfg.Model,
	})
	e.label = "ollama embedder"
	return &OllamaEmbedder{OpenAIEmbedder: e}
}
