package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame counters for the current session
	FramesCaptured  atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesDropped   atomic.Uint64
	FramesRendered  atomic.Uint64

	// Error counters
	ReadErrors      atomic.Uint64
	InferenceErrors atomic.Uint64
	RenderErrors    atomic.Uint64

	// Latency tracking
	InferenceLatencyMs atomic.Uint64

	// Session state
	SessionActive atomic.Uint64 // 0 = idle/stopped, 1 = running
	TrackedCars   atomic.Uint64
	OccupiedSlots atomic.Uint64
	TotalSlots    atomic.Uint64

	violations *prometheus.CounterVec
	inference  prometheus.Histogram

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) gauge(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.gauge("parking_frames_captured_total", "Frames captured in the current session", &m.FramesCaptured)
	m.gauge("parking_frames_processed_total", "Frames that completed inference in the current session", &m.FramesProcessed)
	m.gauge("parking_frames_dropped_total", "Frames skipped by inference because it lagged capture", &m.FramesDropped)
	m.gauge("parking_frames_rendered_total", "Frames rendered in the current session", &m.FramesRendered)

	m.gauge("parking_read_errors_total", "Source read errors", &m.ReadErrors)
	m.gauge("parking_inference_errors_total", "Per-frame detector errors", &m.InferenceErrors)
	m.gauge("parking_render_errors_total", "Render errors", &m.RenderErrors)

	m.gauge("parking_inference_latency_ms", "Latest inference latency in milliseconds", &m.InferenceLatencyMs)

	m.gauge("parking_session_active", "Session running (0=no, 1=yes)", &m.SessionActive)
	m.gauge("parking_tracked_cars", "Objects tracked in the latest state", &m.TrackedCars)
	m.gauge("parking_slots_occupied", "Occupied slots in the latest state", &m.OccupiedSlots)
	m.gauge("parking_slots_total", "Defined parking slots", &m.TotalSlots)

	m.violations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_violations_total",
		Help: "Violation records created, by type",
	}, []string{"type"})
	m.registry.MustRegister(m.violations)

	m.inference = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_inference_duration_seconds",
		Help:    "Detector latency per frame",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})
	m.registry.MustRegister(m.inference)
}

// ObserveInference records one detector call
func (m *Metrics) ObserveInference(d time.Duration) {
	m.InferenceLatencyMs.Store(uint64(d.Milliseconds()))
	m.inference.Observe(d.Seconds())
}

// IncViolation counts a new violation record
func (m *Metrics) IncViolation(violationType string) {
	m.violations.WithLabelValues(violationType).Inc()
}

// ResetSession zeroes the per-session counters
func (m *Metrics) ResetSession() {
	m.FramesCaptured.Store(0)
	m.FramesProcessed.Store(0)
	m.FramesDropped.Store(0)
	m.FramesRendered.Store(0)
	m.TrackedCars.Store(0)
	m.OccupiedSlots.Store(0)
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
