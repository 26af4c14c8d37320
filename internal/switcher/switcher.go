// Package switcher holds the authoritative active program source and fans
// source changes out to subscribers. Delivery is synchronous and in order:
// every listener runs to completion before CutToSource returns, so downstream
// bookkeeping is consistent before the next frame is processed.
package switcher

import (
	"log/slog"
	"time"

	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/observability/metrics"
)

// Program source indices. The switcher recognizes exactly two sources.
const (
	SourceGolfer    = 0
	SourceSimulator = 1
)

// Cut reason strings, carried verbatim on change notifications. The sequence
// recorder keys its disposition logic off these values.
const (
	ReasonSwingDetected = "swing_detected"
	ReasonBallLanded    = "ball_landed"
	ReasonPracticeSwing = "practice_swing"
	ReasonTimeout       = "timeout"
	ReasonManual        = "manual"
)

// State is a read-only snapshot of the switcher.
type State struct {
	ActiveSourceIndex int       // 0 = golfer camera, 1 = simulator
	GolfModeEnabled   bool      // auto switching enabled
	LastCutTime       time.Time // timestamp of the most recent valid cut
}

// SourceChange describes one completed cut.
type SourceChange struct {
	PreviousIndex int
	NewIndex      int
	Reason        string
	Timestamp     time.Time
}

// ChangeFunc receives source change notifications.
type ChangeFunc func(change SourceChange)

// Clock supplies timestamps; injected so tests can simulate time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Service is the switch bus. Single writer; not safe for concurrent use,
// callers serialize access (see the processing loop in director).
type Service struct {
	state       State
	subscribers []ChangeFunc
	clock       Clock
	log         *slog.Logger
	metrics     *metrics.SwitcherMetrics
}

// NewService creates a switch bus with the golfer camera active.
func NewService(clock Clock, m *metrics.SwitcherMetrics) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		state:   State{ActiveSourceIndex: SourceGolfer},
		clock:   clock,
		log:     logging.ForService("switcher"),
		metrics: m,
	}
}

// Subscribe registers a change listener. Listeners are invoked synchronously
// in registration order on every valid cut.
func (s *Service) Subscribe(fn ChangeFunc) {
	if fn != nil {
		s.subscribers = append(s.subscribers, fn)
	}
}

// CutToSource switches program output to the given source. An out-of-range
// index is a silent no-op: no state change, no event. Cutting to the already
// active source still updates the cut time and fires the event.
func (s *Service) CutToSource(index int, reason string) {
	if index != SourceGolfer && index != SourceSimulator {
		s.log.Debug("ignoring cut to out-of-range source", "index", index, "reason", reason)
		return
	}

	now := s.clock.Now()
	change := SourceChange{
		PreviousIndex: s.state.ActiveSourceIndex,
		NewIndex:      index,
		Reason:        reason,
		Timestamp:     now,
	}
	s.state.ActiveSourceIndex = index
	s.state.LastCutTime = now

	s.log.Info("program cut",
		"from", change.PreviousIndex,
		"to", change.NewIndex,
		"reason", reason)
	if s.metrics != nil {
		s.metrics.IncrementCuts(reason)
		s.metrics.SetActiveSource(index)
	}

	for _, fn := range s.subscribers {
		fn(change)
	}
}

// SetGolfMode toggles the golf-mode flag on the snapshot.
func (s *Service) SetGolfMode(enabled bool) {
	s.state.GolfModeEnabled = enabled
}

// State returns a copy of the current switcher state.
func (s *Service) State() State {
	return s.state
}
