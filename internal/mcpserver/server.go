// Package mcpserver exposes the sommelier tools to external agents over the
// Model Context Protocol, on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/sommelier-go/internal/tools"
	"github.com/54b3r/sommelier-go/internal/version"
)

const serverName = "sommelier"

// CartArgs is the input of add_wine_to_cart over MCP. Unlike the chat agent,
// an external caller names the user explicitly.
type CartArgs struct {
	UserID      int64  `json:"user_id,omitempty" jsonschema:"identifier of the user whose cart receives the wine"`
	WineName    string `json:"wine_name" jsonschema:"wine name"`
	WineDetails string `json:"wine_details,omitempty" jsonschema:"extra details such as country, price or volume"`
}

// Server wraps an MCP server that serves the three sommelier tools.
type Server struct {
	server *mcp.Server
	log    *slog.Logger

	byAttributes tools.RetrievalTool
	byQuery      tools.RetrievalTool
	addToCart    tools.RetrievalTool
}

// New builds the MCP server around the given searcher and cart.
func New(s tools.Searcher, c tools.Cart, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	srv := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		}, &mcp.ServerOptions{Logger: log}),
		log:          log,
		byAttributes: tools.NewAttributesTool(s),
		byQuery:      tools.NewQueryTool(s),
		addToCart:    tools.NewCartTool(c),
	}

	mcp.AddTool(srv.server, &mcp.Tool{
		Name:        srv.byAttributes.Name(),
		Description: srv.byAttributes.Description(),
	}, srv.handleByAttributes)

	mcp.AddTool(srv.server, &mcp.Tool{
		Name:        srv.byQuery.Name(),
		Description: srv.byQuery.Description(),
	}, srv.handleByQuery)

	mcp.AddTool(srv.server, &mcp.Tool{
		Name:        srv.addToCart.Name(),
		Description: srv.addToCart.Description(),
	}, srv.handleAddToCart)

	return srv
}

// Run serves a single session on transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// RunStdio serves on stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler serving this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// ListenAndServe serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mcpserver: listening", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("mcpserver: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcpserver: shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) handleByAttributes(ctx context.Context, _ *mcp.CallToolRequest, in tools.AttributesInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, s.byAttributes, in), nil, nil
}

func (s *Server) handleByQuery(ctx context.Context, _ *mcp.CallToolRequest, in tools.QueryInput) (*mcp.CallToolResult, any, error) {
	return s.invoke(ctx, s.byQuery, in), nil, nil
}

func (s *Server) handleAddToCart(ctx context.Context, _ *mcp.CallToolRequest, in CartArgs) (*mcp.CallToolResult, any, error) {
	if in.UserID == 0 {
		return errorResult("user_id is required"), nil, nil
	}
	ctx = tools.WithUserID(ctx, in.UserID)
	return s.invoke(ctx, s.addToCart, tools.CartInput{
		WineName:    in.WineName,
		WineDetails: in.WineDetails,
	}), nil, nil
}

// invoke runs t with in re-encoded as its JSON arguments, so MCP callers go
// through exactly the code path the chat agent uses.
func (s *Server) invoke(ctx context.Context, t tools.RetrievalTool, in any) *mcp.CallToolResult {
	args, err := json.Marshal(in)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err))
	}
	text, err := t.InvokableRun(ctx, string(args))
	if err != nil {
		s.log.Error("mcpserver: tool failed",
			slog.String("tool", t.Name()),
			slog.Any("error", err),
		)
		return errorResult(err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
