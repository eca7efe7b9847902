// Package clientmetrics exposes live run counters in the Prometheus text
// format so a long benchmark can be scraped while it runs.
package clientmetrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/torosent/burl/internal/metrics"
)

const namespace = "burl"

// ClientMetrics records outcomes into Prometheus collectors. It implements
// runner.Observer.
type ClientMetrics struct {
	gatherer prometheus.Gatherer

	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  prometheus.Histogram
	bytes    prometheus.Counter
	progress prometheus.Gauge
	rps      prometheus.Gauge
}

// New registers the run collectors on a private registry.
func New() *ClientMetrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the run collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *ClientMetrics {
	factory := promauto.With(reg)
	return &ClientMetrics{
		gatherer: g,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Measured requests by outcome and status code",
			}, []string{"outcome", "code"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_errors_total",
				Help:      "Transport failures by error kind",
			}, []string{"kind"},
		),
		latency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request latency including the response body",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
			},
		),
		bytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_bytes_total",
				Help:      "Response body bytes received",
			},
		),
		progress: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_progress_ratio",
				Help:      "Fraction of the configured run that has completed",
			},
		),
		rps: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_per_second",
				Help:      "Average request rate since the run started",
			},
		),
	}
}

// Observe records one measured outcome.
func (m *ClientMetrics) Observe(o metrics.Outcome) {
	outcome := "success"
	if !o.Success {
		outcome = "failure"
	}
	code := "none"
	if o.HasStatus() {
		code = strconv.Itoa(o.StatusCode)
	}
	m.requests.WithLabelValues(outcome, code).Inc()
	if o.Error != "" {
		m.errors.WithLabelValues(string(o.Error)).Inc()
	}
	m.latency.Observe(o.Latency.Seconds())
	if o.Bytes > 0 {
		m.bytes.Add(float64(o.Bytes))
	}
}

// Progress updates the run gauges. Its signature matches runner.ProgressFunc.
func (m *ClientMetrics) Progress(snap metrics.Snapshot, progress float64) {
	m.progress.Set(progress)
	m.rps.Set(snap.CurrentRPS)
}

// Handler serves the registry in the exposition format.
func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{DisableCompression: true})
}

// Server serves /metrics on a listener until its context is canceled.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
}

// Listen binds addr and prepares the metrics endpoint. Call Serve to start it.
func (m *ClientMetrics) Listen(addr string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until ctx is done, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.ln)
	}()
	s.logger.Info("metrics endpoint listening", zap.String("addr", s.Addr()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
