package server

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/54b3r/sommelier-go/internal/logging"
	"github.com/54b3r/sommelier-go/internal/throttle"
	"github.com/prometheus/client_golang/prometheus"
)

// rateLimit charges each request to its client IP's bucket. Requests over
// budget get 429 with Retry-After set to the whole seconds until the next
// token. rejected, when non-nil, counts the refusals.
func rateLimit(lim *throttle.Limiter, rejected prometheus.Counter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ok, wait := lim.Allow(ip); !ok {
			logging.FromContext(r.Context()).Warn("server: rate limit exceeded",
				slog.String("ip", ip),
				slog.Duration("retry_after", wait),
			)
			if rejected != nil {
				rejected.Inc()
			}
			w.Header().Set("Retry-After", strconv.Itoa(throttle.RetryAfterSeconds(wait)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr. Forwarding headers are not
// trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
