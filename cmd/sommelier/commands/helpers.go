package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/sommelier-go/internal/agent"
	"github.com/54b3r/sommelier-go/internal/catalog"
	"github.com/54b3r/sommelier-go/internal/config"
	"github.com/54b3r/sommelier-go/internal/embedder"
	"github.com/54b3r/sommelier-go/internal/provider"
	"github.com/54b3r/sommelier-go/internal/search"
	"github.com/54b3r/sommelier-go/internal/store"
	"github.com/54b3r/sommelier-go/internal/tools"
)

// qdrantConfigFromEnv reads the QDRANT_* variables.
func qdrantConfigFromEnv() catalog.QdrantConfig {
	return catalog.QdrantConfig{
		Host:       config.EnvOr("QDRANT_HOST", "localhost"),
		Port:       config.EnvInt("QDRANT_PORT", 6334),
		Collection: config.EnvOr("QDRANT_COLLECTION", catalog.DefaultCollection),
		APIKey:     config.EnvOr("QDRANT_API_KEY", ""),
		UseTLS:     config.EnvBool("QDRANT_TLS"),
	}
}

// openCatalog connects to the Qdrant catalog collection.
func openCatalog(log *slog.Logger) (*catalog.QdrantStore, error) {
	cfg := qdrantConfigFromEnv()
	st, err := catalog.NewQdrantStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("collection", st.Collection()),
	)
	return st, nil
}

// openHistory opens the SQLite store behind conversation history and the
// embedding cache. SOMMELIER_HISTORY_DB overrides the default path
// (~/.sommelier/history.db); "disabled" turns it off. Failures are logged
// and yield nil so the agent runs stateless.
func openHistory(log *slog.Logger) *store.SQLiteStore {
	dbPath := config.EnvOr("SOMMELIER_HISTORY_DB", "")
	if dbPath == "disabled" {
		log.Info("history: disabled via SOMMELIER_HISTORY_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs
}

// buildEmbedder constructs the embedder for the configured backend. With
// EMBEDDING_CACHE=true and a history store, vectors are cached in SQLite.
func buildEmbedder(log *slog.Logger, cache *store.SQLiteStore, reg prometheus.Registerer) (embedder.Embedder, error) {
	embedder.WarnMisconfiguration(log)

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("backend", embedder.Backend()),
		slog.String("model", embedder.Model()),
	)

	if cache == nil || !config.EnvBool("EMBEDDING_CACHE") {
		return emb, nil
	}
	log.Info("embedder: caching vectors in history store")
	return embedder.NewCached(emb, cache, embedder.Model(), embedder.NewCacheCounter(reg), log), nil
}

// buildSearch wires a search.Service with timeouts from SEARCH_*_TIMEOUT.
func buildSearch(st catalog.Store, emb embedder.Embedder, reg prometheus.Registerer) *search.Service {
	return search.New(st, emb, search.Config{
		EmbedTimeout: config.EnvDuration("SEARCH_EMBED_TIMEOUT", search.DefaultEmbedTimeout),
		StoreTimeout: config.EnvDuration("SEARCH_STORE_TIMEOUT", search.DefaultStoreTimeout),
		Metrics:      search.NewMetrics(reg),
	})
}

// buildAgent constructs the sommelier agent over the configured chat model.
// history may be nil.
func buildAgent(ctx context.Context, log *slog.Logger, s tools.Searcher, c tools.Cart, history *store.SQLiteStore) (*agent.Sommelier, error) {
	providerCfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)

	cfg := &agent.Config{
		ChatModel: chatModel,
		Tools:     tools.All(s, c),
	}
	// A nil *SQLiteStore must not become a non-nil interface.
	if history != nil {
		cfg.History = history
	}

	a, err := agent.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise agent: %w", err)
	}
	return a, nil
}
