package server

import (
	"context"
	"fmt"
)

// healthChecker is satisfied by *catalog.QdrantStore.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// QdrantPinger probes the catalog's Qdrant instance using its native
// HealthCheck RPC.
type QdrantPinger struct {
	// store is the catalog store to probe.
	store healthChecker
}

// NewQdrantPinger constructs a QdrantPinger for the given catalog store.
func NewQdrantPinger(store healthChecker) *QdrantPinger {
	return &QdrantPinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if err := p.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// dbPinger is satisfied by *store.SQLiteStore.
type dbPinger interface {
	Ping(ctx context.Context) error
}

// HistoryPinger probes the SQLite conversation store.
type HistoryPinger struct {
	db dbPinger
}

// NewHistoryPinger constructs a HistoryPinger for the given store.
func NewHistoryPinger(db dbPinger) *HistoryPinger {
	return &HistoryPinger{db: db}
}

// Name returns the dependency label used in readiness responses.
func (p *HistoryPinger) Name() string { return "history" }

// Ping runs a trivial query against the database.
func (p *HistoryPinger) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}
