// Package provider selects and constructs the chat model that drives tool
// routing. Supported backends: Ollama, OpenAI, Azure OpenAI, Volcengine Ark,
// Google Gemini.
package provider

import (
	"fmt"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API or an OpenAI-compatible endpoint.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	Host  string
	Model string
}

// ProviderOpenAI holds OpenAI settings. BaseURL is optional.
type ProviderOpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderArk holds Volcengine Ark settings. BaseURL is optional.
type ProviderArk struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	APIKey string
	Model  string
}

// SharedTuning holds generation parameters common to all backends.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Config holds all provider-level configuration. Only the section matching
// Backend is consulted.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ark         ProviderArk
	Gemini      ProviderGemini
	Tuning      SharedTuning
}

// Validate reports the first missing setting for the selected backend, named
// by its environment variable so the operator knows what to set.
func (c *Config) Validate() error {
	var missing string
	switch c.Backend {
	case BackendOllama:
		switch {
		case c.Ollama.Host == "":
			missing = "OLLAMA_HOST"
		case c.Ollama.Model == "":
			missing = "OLLAMA_MODEL"
		}
	case BackendOpenAI:
		switch {
		case c.OpenAI.APIKey == "":
			missing = "OPENAI_API_KEY"
		case c.OpenAI.Model == "":
			missing = "OPENAI_MODEL"
		}
	case BackendAzure:
		switch {
		case c.AzureOpenAI.APIKey == "":
			missing = "AZURE_OPENAI_API_KEY"
		case c.AzureOpenAI.Endpoint == "":
			missing = "AZURE_OPENAI_ENDPOINT"
		case c.AzureOpenAI.Deployment == "":
			missing = "AZURE_OPENAI_DEPLOYMENT"
		}
	case BackendArk:
		switch {
		case c.Ark.APIKey == "":
			missing = "ARK_API_KEY"
		case c.Ark.Model == "":
			missing = "ARK_MODEL"
		}
	case BackendGemini:
		switch {
		case c.Gemini.APIKey == "":
			missing = "GOOGLE_API_KEY"
		case c.Gemini.Model == "":
			missing = "GEMINI_MODEL"
		}
	default:
		return fmt.Errorf("provider: unknown backend %q (valid values: ollama, openai, azure, ark, gemini)", c.Backend)
	}
	if missing != "" {
		return fmt.Errorf("provider: %s is required for %s backend", missing, c.Backend)
	}
	return nil
}
