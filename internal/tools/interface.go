// Package tools exposes the catalog searches and the cart to the agent as
// Eino tools. Each tool replies with plain text; only a catalog store
// failure is returned as an error.
package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"

	"github.com/54b3r/sommelier-go/internal/search"
)

// RetrievalTool is the capability every sommelier tool provides: a stable
// name and description plus Eino's invokable tool contract, so the agent can
// log and route calls without type assertions.
type RetrievalTool interface {
	tool.InvokableTool

	// Name returns the unique tool name registered with the agent.
	Name() string

	// Description returns the LLM-facing description of what the tool does.
	Description() string
}

// Searcher is the subset of search.Service the search tools need.
type Searcher interface {
	ByAttributes(ctx context.Context, q search.AttributeQuery) search.Result
	ByQuery(ctx context.Context, text string, limit int) search.Result
}

// Cart is the subset of cart.Store the cart tool needs.
type Cart interface {
	Add(userID int64, name, details string) string
}

// All returns the three sommelier tools in a stable order.
func All(s Searcher, c Cart) []RetrievalTool {
	return []RetrievalTool{
		NewAttributesTool(s),
		NewQueryTool(s),
		NewCartTool(c),
	}
}

// BaseTools adapts tools for registration with an Eino ToolsNode.
func BaseTools(ts []RetrievalTool) []tool.BaseTool {
	out := make([]tool.BaseTool, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}

type userIDKey struct{}

// WithUserID returns a context carrying the chat user the current turn
// belongs to. The cart tool reads it.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFrom returns the chat user carried by ctx.
func UserIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}
