package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SwitcherMetrics contains Prometheus metrics for the switch bus and controller.
type SwitcherMetrics struct {
	CutsTotal       *prometheus.CounterVec
	ActiveSource    prometheus.Gauge
	ControllerState prometheus.Gauge
	SequencesTotal  *prometheus.CounterVec
	registry        *prometheus.Registry
}

// NewSwitcherMetrics creates a new instance of SwitcherMetrics registered to registry.
func NewSwitcherMetrics(registry *prometheus.Registry) (*SwitcherMetrics, error) {
	m := &SwitcherMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register switcher metrics: %w", err)
	}
	return m, nil
}

func (m *SwitcherMetrics) initMetrics() {
	m.CutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "switcher_cuts_total",
		Help: "Total number of program cuts by reason",
	}, []string{"reason"})

	m.ActiveSource = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "switcher_active_source",
		Help: "Currently active program source index (0 golfer, 1 simulator)",
	})

	m.ControllerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autocut_controller_state",
		Help: "Auto-cut controller state as an ordinal",
	})

	m.SequencesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swing_sequences_total",
		Help: "Total number of swing sequences by disposition (completed, discarded)",
	}, []string{"disposition"})
}

// Describe implements the prometheus.Collector interface.
func (m *SwitcherMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CutsTotal.Describe(ch)
	ch <- m.ActiveSource.Desc()
	ch <- m.ControllerState.Desc()
	m.SequencesTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *SwitcherMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CutsTotal.Collect(ch)
	ch <- m.ActiveSource
	ch <- m.ControllerState
	m.SequencesTotal.Collect(ch)
}

// IncrementCuts counts one cut with the given reason.
func (m *SwitcherMetrics) IncrementCuts(reason string) {
	m.CutsTotal.WithLabelValues(reason).Inc()
}

// SetActiveSource records the active program source index.
func (m *SwitcherMetrics) SetActiveSource(index int) {
	m.ActiveSource.Set(float64(index))
}

// SetControllerState records the controller state ordinal.
func (m *SwitcherMetrics) SetControllerState(state int) {
	m.ControllerState.Set(float64(state))
}

// IncrementSequences counts one sequence with the given disposition.
func (m *SwitcherMetrics) IncrementSequences(disposition string) {
	m.SequencesTotal.WithLabelValues(disposition).Inc()
}
