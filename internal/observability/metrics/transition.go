package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TransitionMetrics contains Prometheus metrics for the transition engine.
type TransitionMetrics struct {
	BlendDuration      prometheus.Histogram
	TransitionsTotal   *prometheus.CounterVec
	FallbackFramesTotal prometheus.Counter
	registry           *prometheus.Registry
}

// NewTransitionMetrics creates a new instance of TransitionMetrics registered to registry.
func NewTransitionMetrics(registry *prometheus.Registry) (*TransitionMetrics, error) {
	m := &TransitionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register transition metrics: %w", err)
	}
	return m, nil
}

func (m *TransitionMetrics) initMetrics() {
	m.BlendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transition_blend_duration_seconds",
		Help:    "Time spent blending one program frame",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	m.TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transitions_total",
		Help: "Completed transitions by type",
	}, []string{"type"})

	m.FallbackFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transition_fallback_frames_total",
		Help: "Frames returned unblended due to invalid source buffers",
	})
}

// Describe implements the prometheus.Collector interface.
func (m *TransitionMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.BlendDuration.Desc()
	m.TransitionsTotal.Describe(ch)
	ch <- m.FallbackFramesTotal.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *TransitionMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.BlendDuration
	m.TransitionsTotal.Collect(ch)
	ch <- m.FallbackFramesTotal
}

// ObserveBlendDuration records the wall time of one blend pass in seconds.
func (m *TransitionMetrics) ObserveBlendDuration(seconds float64) {
	m.BlendDuration.Observe(seconds)
}

// IncrementTransitions counts one completed transition of the given type.
func (m *TransitionMetrics) IncrementTransitions(transitionType string) {
	m.TransitionsTotal.WithLabelValues(transitionType).Inc()
}

// IncrementFallbackFrames counts one unblended fallback frame.
func (m *TransitionMetrics) IncrementFallbackFrames() {
	m.FallbackFramesTotal.Inc()
}
