// Package metrics provides custom Prometheus metrics for the screener components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MotionMetrics contains all Prometheus metrics related to motion detection.
type MotionMetrics struct {
	SpikesDetected  *prometheus.CounterVec
	DifferenceScore *prometheus.GaugeVec
	Baseline        *prometheus.GaugeVec
	registry        *prometheus.Registry
}

// NewMotionMetrics creates a new instance of MotionMetrics registered to registry.
func NewMotionMetrics(registry *prometheus.Registry) (*MotionMetrics, error) {
	m := &MotionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register motion metrics: %w", err)
	}
	return m, nil
}

func (m *MotionMetrics) initMetrics() {
	m.SpikesDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_spikes_total",
		Help: "Total number of swing spikes detected per stream",
	}, []string{"stream"})

	m.DifferenceScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "motion_difference_score",
		Help: "Most recent frame difference score (SAD) per stream",
	}, []string{"stream"})

	m.Baseline = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "motion_baseline_ema",
		Help: "Current EMA noise baseline per stream",
	}, []string{"stream"})
}

// Describe implements the prometheus.Collector interface.
func (m *MotionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.SpikesDetected.Describe(ch)
	m.DifferenceScore.Describe(ch)
	m.Baseline.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *MotionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.SpikesDetected.Collect(ch)
	m.DifferenceScore.Collect(ch)
	m.Baseline.Collect(ch)
}

// IncrementSpikes increments the spike counter for a stream.
func (m *MotionMetrics) IncrementSpikes(stream string) {
	m.SpikesDetected.WithLabelValues(stream).Inc()
}

// ObserveScore records the most recent difference score for a stream.
func (m *MotionMetrics) ObserveScore(stream string, score float64) {
	m.DifferenceScore.WithLabelValues(stream).Set(score)
}

// SetBaseline records the current EMA baseline for a stream.
func (m *MotionMetrics) SetBaseline(stream string, ema float64) {
	m.Baseline.WithLabelValues(stream).Set(ema)
}
