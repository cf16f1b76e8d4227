package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_search_requests_total",
			Help: "Total number of search queries issued, by outcome",
		},
		[]string{"outcome"},
	)

	SearchResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prospector_search_results_total",
			Help: "Total number of organic results returned by the search provider",
		},
	)

	PageVisitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_page_visits_total",
			Help: "Total number of prospect page visits",
		},
		[]string{"domain", "status", "challenge"},
	)

	PageVisitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospector_page_visit_duration_seconds",
			Help:    "Duration of prospect page visits in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"domain"},
	)

	PageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_page_bytes_total",
			Help: "Total bytes downloaded across all page visits",
		},
		[]string{"domain"},
	)

	ProxyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_proxy_failures_total",
			Help: "Total number of page visits that failed through a proxy",
		},
		[]string{"proxy"},
	)

	ProspectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prospector_prospects_total",
			Help: "Total number of prospect rows emitted",
		},
	)
)

// RecordSearch counts one query and the results it produced.
func RecordSearch(results int, err error) {
	if err != nil {
		SearchRequestsTotal.WithLabelValues("failed").Inc()
		return
	}
	SearchRequestsTotal.WithLabelValues("ok").Inc()
	SearchResultsTotal.Add(float64(results))
}

// Visit carries the fields of a page visit that feed the metrics.
type Visit struct {
	StatusCode int
	Failed     bool
	Challenge  string
	Bytes      int
	Duration   time.Duration
}

// RecordVisit updates the page visit metrics for domain.
func RecordVisit(domain string, v Visit) {
	status := strconv.Itoa(v.StatusCode)
	if v.Failed && v.StatusCode == 0 {
		status = "error"
	}

	PageVisitsTotal.WithLabelValues(domain, status, v.Challenge).Inc()
	PageVisitDuration.WithLabelValues(domain).Observe(v.Duration.Seconds())
	PageBytesTotal.WithLabelValues(domain).Add(float64(v.Bytes))
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds the metrics endpoint on port (0 picks a free port).
func Listen(port int) (*Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics: listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until the server is stopped. A clean Stop returns nil.
func (s *Server) Serve() error {
	slog.Debug("metrics server listening", "addr", s.Addr())
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
