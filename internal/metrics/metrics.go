// Package metrics exposes orrery's Prometheus instrumentation.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ask outcomes
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeBadRequest  = "bad_request"
	OutcomeRateLimited = "rate_limited"
)

type MetricsCollector struct {
	askDuration *prometheus.HistogramVec
	asksTotal   *prometheus.CounterVec
	selections  *prometheus.CounterVec
	frames      prometheus.Counter
	wsClients   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetricsCollector creates the collectors and registers them on reg.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewMetricsCollector(reg *prometheus.Registry) *MetricsCollector {
	m := &MetricsCollector{
		askDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orrery_ask_duration_seconds",
				Help:    "Time spent answering a conversation message",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"body", "outcome"},
		),
		asksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orrery_asks_total",
				Help: "Total number of conversation messages handled",
			},
			[]string{"body", "outcome"},
		),
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orrery_selections_total",
				Help: "Total number of bodies selected by picking",
			},
			[]string{"body"},
		),
		frames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orrery_frames_total",
				Help: "Total simulation frames stepped",
			},
		),
		wsClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "orrery_ws_clients",
				Help: "Connected snapshot stream clients",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(m.askDuration)
	reg.MustRegister(m.asksTotal)
	reg.MustRegister(m.selections)
	reg.MustRegister(m.frames)
	reg.MustRegister(m.wsClients)

	return m
}

func (m *MetricsCollector) RecordAsk(body, outcome string, duration time.Duration) {
	m.askDuration.WithLabelValues(body, outcome).Observe(duration.Seconds())
	m.asksTotal.WithLabelValues(body, outcome).Inc()
}

func (m *MetricsCollector) RecordSelection(body string) {
	m.selections.WithLabelValues(body).Inc()
}

func (m *MetricsCollector) RecordFrame() {
	m.frames.Inc()
}

func (m *MetricsCollector) ClientConnected() {
	m.wsClients.Inc()
}

func (m *MetricsCollector) ClientDisconnected() {
	m.wsClients.Dec()
}

// Handler serves the registry in the Prometheus text format
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ServeMetrics serves /metrics on addr until ctx is done
func (m *MetricsCollector) ServeMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.Serve(ctx, ln)
}

// Serve serves /metrics on ln until ctx is done. It closes ln.
func (m *MetricsCollector) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
