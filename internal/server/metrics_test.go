package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ChatOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		chat    *fakeStreamer
		timeout time.Duration
		outcome string
	}{
		{name: "answered", chat: &fakeStreamer{response: "Риоха, 1200 ₽"}, outcome: "ok"},
		{name: "agent failed", chat: &fakeStreamer{err: errors.New("model down")}, outcome: "error"},
		{name: "turn timed out", chat: &fakeStreamer{block: true}, timeout: 10 * time.Millisecond, outcome: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newChatTestServer(tt.chat)
			if tt.timeout > 0 {
				s.cfg.ChatTimeout = tt.timeout
			}

			postChat(s, `{"user_id":5,"message":"вино к паэлье"}`)

			for _, o := range []string{"ok", "error", "timeout"} {
				want := 0.0
				if o == tt.outcome {
					want = 1
				}
				if got := testutil.ToFloat64(s.metrics.chatRequestsTotal.WithLabelValues(o)); got != want {
					t.Errorf("requests_total{outcome=%q} = %v, want %v", o, got, want)
				}
			}
			if got := testutil.CollectAndCount(s.metrics.chatDurationSeconds); got != 1 {
				t.Errorf("duration series = %d, want 1", got)
			}
			if got := testutil.ToFloat64(s.metrics.chatActiveStreams); got != 0 {
				t.Errorf("active_streams = %v after the turn, want 0", got)
			}
		})
	}
}

func TestMetrics_RejectedChatIsNotATurn(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	postChat(s, `{"user_id":5,"message":"   "}`)

	if got := testutil.CollectAndCount(s.metrics.chatRequestsTotal); got != 0 {
		t.Errorf("a 400 must not count as a chat turn, got %d series", got)
	}
}

func TestMetrics_InstrumentLabelsHandlerAndCode(t *testing.T) {
	t.Parallel()
	s, _ := newRoutedServer(t, "secret")
	h := s.Handler()

	for _, path := range []string{"/api/health", "/api/health", "/api/cart?user_id=9"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(s.metrics.httpRequestsTotal.WithLabelValues("GET", "health", "200")); got != 2 {
		t.Errorf("health 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.metrics.httpRequestsTotal.WithLabelValues("GET", "cart_show", "401")); got != 1 {
		t.Errorf("cart_show 401 = %v, want 1", got)
	}
}

func TestMetrics_Endpoint(t *testing.T) {
	t.Parallel()
	s, _ := newRoutedServer(t, "")
	h := s.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(w.Body)
	for _, name := range []string{"sommelier_http_requests_total", "sommelier_chat_active_streams"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition is missing %s", name)
		}
	}
}
