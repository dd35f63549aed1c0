package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/sommelier-go/internal/cart"
	"github.com/54b3r/sommelier-go/internal/throttle"
	"github.com/54b3r/sommelier-go/internal/userlock"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds one /api/chat turn (default: 2m).
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on
	// /api/chat (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// streamer runs one chat turn and writes the answer to w.
// *agent.Sommelier satisfies it; tests inject a fake.
type streamer interface {
	Stream(ctx context.Context, userID int64, text string, w io.Writer) error
}

// carts is the cart view behind /api/cart. *cart.Store satisfies it.
type carts interface {
	Items(userID int64) []cart.Item
	Show(userID int64) string
	Clear(userID int64) string
}

// Server is the HTTP front end for the sommelier agent and carts.
type Server struct {
	// chat runs /api/chat turns.
	chat streamer
	// carts backs /api/cart.
	carts carts
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors for this server.
	metrics *serverMetrics
	// limiter holds the per-IP chat buckets; closed when Start returns.
	limiter *throttle.Limiter
	// turns serialises chat turns of the same user_id.
	turns *userlock.Set
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// UserID identifies whose history and cart the turn uses.
	UserID int64 `json:"user_id"`
	// Message is the user's natural language query.
	Message string `json:"message"`
}

// cartItem is one entry of cartResponse.
type cartItem struct {
	Name    string `json:"name"`
	Details string `json:"details,omitempty"`
}

// cartResponse is the JSON response for GET /api/cart.
type cartResponse struct {
	UserID int64      `json:"user_id"`
	Items  []cartItem `json:"items"`
	// Text is the cart as the chat transport renders it.
	Text string `json:"text"`
}

// clearResponse is the JSON response for DELETE /api/cart.
type clearResponse struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}
