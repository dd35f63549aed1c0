// Package server implements the HTTP API that exposes the sommelier agent
// over SSE, the per-user carts, health probes and Prometheus metrics.
// The server is started by the `sommelier serve --http` CLI command.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/sommelier-go/internal/agent"
	"github.com/54b3r/sommelier-go/internal/logging"
	"github.com/54b3r/sommelier-go/internal/throttle"
	"github.com/54b3r/sommelier-go/internal/userlock"
)

// thinkingText is sent as the first SSE event of every chat turn.
const thinkingText = "Сомелье в раздумье..."

// New constructs a Server from the chat agent, the cart store and config.
func New(chat streamer, c carts, cfg *Config) (*Server, error) {
	if chat == nil {
		return nil, fmt.Errorf("server: agent must not be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("server: cart store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must outlast the longest chat turn.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = agent.DefaultTurnTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		chat:    chat,
		carts:   c,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
		turns:   userlock.New(),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the request mux. Health probes and /metrics are open; the
// rest of /api/* sits behind bearer auth, and chat is rate limited per IP.
func (s *Server) routes() http.Handler {
	s.limiter = throttle.New(throttle.Config{Rate: s.cfg.RateLimit, Burst: s.cfg.RateBurst})

	protect := func(h http.HandlerFunc) http.Handler {
		return requireAPIKey(s.cfg.APIKey, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", s.instrument("chat", rateLimit(s.limiter, s.metrics.rateLimitedTotal, protect(s.handleChat))))
	mux.Handle("GET /api/cart", s.instrument("cart_show", protect(s.handleCartShow)))
	mux.Handle("DELETE /api/cart", s.instrument("cart_clear", protect(s.handleCartClear)))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	if s.cfg.APIKey == "" {
		s.log.Warn("server: API key not set, authentication disabled")
	}
	return requestLogger(s.log, mux)
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	defer s.limiter.Close()

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.log.Info("server: stopped")
		return nil
	}
}

// handleChat handles POST /api/chat. The reply is streamed as Server-Sent
// Events: a "thinking" event, data frames, then "done". A failed turn emits
// an "error" event carrying the user-facing apology.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers so the client receives a streaming response.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()
	start := time.Now()

	fmt.Fprintf(w, "event: thinking\ndata: %s\n\n", thinkingText)
	flusher.Flush()

	// Turns of one user run one at a time.
	unlock := s.turns.Lock(req.UserID)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	sw := &sseWriter{w: w, flusher: flusher}
	outcome := "ok"
	if err := s.chat.Stream(ctx, req.UserID, req.Message, sw); err != nil {
		outcome = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		log.Error("chat: turn failed",
			slog.Int64("user_id", req.UserID),
			slog.String("outcome", outcome),
			slog.Any("error", err),
		)
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", agent.Apology)
		flusher.Flush()
	}

	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	// Signal stream completion.
	fmt.Fprintf(w, "event: done\ndata: [DONE]\n\n")
	flusher.Flush()
}

// handleCartShow handles GET /api/cart?user_id=.
func (s *Server) handleCartShow(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	items := s.carts.Items(userID)
	resp := cartResponse{UserID: userID, Items: make([]cartItem, 0, len(items)), Text: s.carts.Show(userID)}
	for _, it := range items {
		resp.Items = append(resp.Items, cartItem{Name: it.Name, Details: it.Details})
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

// handleCartClear handles DELETE /api/cart?user_id=.
func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, clearResponse{UserID: userID, Message: s.carts.Clear(userID)})
}

// userIDParam parses the user_id query parameter, writing 400 on failure.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "user_id must be a non-zero integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(ctx).Error("encode response", slog.Any("error", err))
	}
}

// sseWriter wraps an http.ResponseWriter to emit Server-Sent Event data frames.
type sseWriter struct {
	// w is the underlying response writer.
	w http.ResponseWriter

	// flusher flushes buffered data to the client after each write.
	flusher http.Flusher
}

// Write formats p as one or more SSE data lines and flushes to the client.
// Each newline in p is prefixed with "data: " so multi-line chunks never
// break the SSE frame boundary.
func (s *sseWriter) Write(p []byte) (n int, err error) {
	chunk := strings.TrimRight(string(bytes.Clone(p)), "\n")
	lines := strings.Split(chunk, "\n")
	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	if _, err = fmt.Fprint(s.w, buf.String()); err != nil {
		return 0, err
	}
	s.flusher.Flush()
	return len(p), nil
}
