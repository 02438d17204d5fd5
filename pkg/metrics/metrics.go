// Package metrics exposes the Prometheus metrics of igstream over HTTP.
//
// Metrics are registered with promauto in the packages that update them, so
// importing those packages is enough for them to appear here.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the registry every igstream metric is registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns a mux serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	return mux
}

// Server serves Handler on an address for the lifetime of a run.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and starts serving in the background.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	s := &Server{
		srv: &http.Server{Handler: Handler(), ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("component", "metrics").Msg("Metrics server failed")
		}
	}()
	log.Info().Str("component", "metrics").Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Metrics:
//
// Requests (pkg/client):
//   - igstream_requests_total{endpoint, status} (Counter)
//   - igstream_request_duration_seconds{endpoint} (Histogram)
//   - igstream_errors_total{class} (Counter): client, server, rate_limit, network
//
// Retries (pkg/client):
//   - igstream_retries_total{error_class} (Counter)
//   - igstream_retry_backoff_seconds{error_class} (Histogram)
//   - igstream_retry_exhausted_total{error_class} (Counter)
//
// Rate limit (pkg/ratelimit):
//   - igstream_rate_limit_waits_total (Counter): requests delayed for spacing or cooldown
//   - igstream_rate_limit_wait_seconds (Histogram)
//   - igstream_rate_limit_cooldowns_total (Counter): cooldowns started after a 429
//
// Pagination (pkg/pagination):
//   - igstream_pages_fetched_total{kind} (Counter)
//   - igstream_edges_fetched_total{kind} (Counter)
//   - igstream_nodes_skipped_total{kind} (Counter): malformed nodes
//
// Streams (pkg/stream):
//   - igstream_elements_streamed_total (Counter)
//   - igstream_filter_early_exits_total (Counter)
//   - igstream_duplicates_suppressed_total (Counter)
//
// Lookup cache (pkg/cache):
//   - igstream_cache_hits_total{kind} (Counter): post, user
//   - igstream_cache_misses_total{kind} (Counter)
//   - igstream_cache_errors_total{operation} (Counter): get, set, delete
//
// Example queries:
//
//	# Pages per minute by feed kind
//	sum by (kind) (rate(igstream_pages_fetched_total[1m])) * 60
//
//	# Share of requests answered with 429
//	sum(rate(igstream_requests_total{status="429"}[5m])) / sum(rate(igstream_requests_total[5m]))
//
//	# P95 request latency
//	histogram_quantile(0.95, rate(igstream_request_duration_seconds_bucket[5m]))
