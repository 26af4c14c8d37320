// Package sequence materializes swing sequences from switch bus notifications.
//
// A cut to the simulator during an active session opens a sequence; the cut
// back closes it, except for practice swings which are discarded outright and
// release their sequence number for the next real swing.
package sequence

import (
	"log/slog"
	"time"

	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/observability/metrics"
	"github.com/screener/screener-go/internal/session"
	"github.com/screener/screener-go/internal/switcher"
)

// DetectionMethod tells how a sequence's swing was detected.
type DetectionMethod string

const (
	MethodManual DetectionMethod = "manual"
	MethodAuto   DetectionMethod = "auto"
)

// ExportStatus tracks a completed sequence through clip extraction.
type ExportStatus string

const (
	StatusPending    ExportStatus = "pending"
	StatusExtracting ExportStatus = "extracting"
	StatusCompleted  ExportStatus = "completed"
	StatusFailed     ExportStatus = "failed"
)

// SwingSequence is one recorded swing: the span between the cut to the
// simulator (in-point) and the cut back (out-point).
type SwingSequence struct {
	Number       int             // monotonic per session
	SessionID    string          //
	InPoint      time.Time       // when the cut to the simulator occurred
	OutPoint     *time.Time      // when the cut back occurred, nil while open
	Method       DetectionMethod //
	ExportStatus ExportStatus    // set to pending on completion
	ClipPath     string          // exported file reference, set by the exporter
	Reason       string          // cut-back reason, empty while open
}

// SequenceFunc receives sequence lifecycle notifications.
type SequenceFunc func(seq *SwingSequence)

// Recorder listens to switch bus change notifications and owns all sequence
// state. Not safe for concurrent use; driven from the processing loop.
type Recorder struct {
	clock   switcher.Clock
	log     *slog.Logger
	tracker *session.Tracker
	metrics *metrics.SwitcherMetrics

	sequences []*SwingSequence
	active    *SwingSequence
	counter   int

	onStarted   SequenceFunc
	onCompleted SequenceFunc
}

// NewRecorder creates a recorder bound to the given session tracker.
func NewRecorder(tracker *session.Tracker, clock switcher.Clock, m *metrics.SwitcherMetrics) *Recorder {
	if clock == nil {
		clock = switcher.SystemClock()
	}
	return &Recorder{
		clock:   clock,
		log:     logging.ForService("sequence"),
		tracker: tracker,
		metrics: m,
	}
}

// SetStartedHandler registers the SequenceStarted consumer.
func (r *Recorder) SetStartedHandler(fn SequenceFunc) { r.onStarted = fn }

// SetCompletedHandler registers the SequenceCompleted consumer.
func (r *Recorder) SetCompletedHandler(fn SequenceFunc) { r.onCompleted = fn }

// HandleSourceChange is the switch bus subscription target.
func (r *Recorder) HandleSourceChange(change switcher.SourceChange) {
	switch {
	case change.PreviousIndex == switcher.SourceGolfer && change.NewIndex == switcher.SourceSimulator:
		r.openSequence(change)
	case change.PreviousIndex == switcher.SourceSimulator && change.NewIndex == switcher.SourceGolfer:
		r.closeSequence(change)
	}
}

func (r *Recorder) openSequence(change switcher.SourceChange) {
	if !r.tracker.IsActive() {
		r.log.Debug("cut to simulator outside a session, not recording")
		return
	}
	if r.active != nil {
		// Invariant: at most one open sequence per session. A second cut
		// to the simulator while one is open keeps the existing sequence.
		r.log.Warn("cut to simulator with a sequence already open", "number", r.active.Number)
		return
	}

	method := MethodAuto
	if change.Reason == switcher.ReasonManual {
		method = MethodManual
	}

	r.counter++
	seq := &SwingSequence{
		Number:    r.counter,
		SessionID: r.tracker.Current().ID,
		InPoint:   change.Timestamp,
		Method:    method,
	}
	r.sequences = append(r.sequences, seq)
	r.active = seq
	r.tracker.IncrementSwingCount()

	r.log.Info("sequence started", "number", seq.Number, "method", method)
	if r.onStarted != nil {
		r.onStarted(seq)
	}
}

func (r *Recorder) closeSequence(change switcher.SourceChange) {
	if r.active == nil {
		return
	}
	seq := r.active

	if change.Reason == switcher.ReasonPracticeSwing {
		// Discard: drop the sequence and roll the counter back so the
		// next real swing reuses the number. No completion event fires.
		r.sequences = r.sequences[:len(r.sequences)-1]
		r.counter--
		r.active = nil
		r.tracker.DecrementSwingCount()
		r.log.Info("practice swing discarded", "number", seq.Number)
		if r.metrics != nil {
			r.metrics.IncrementSequences("discarded")
		}
		return
	}

	r.finalize(seq, change.Timestamp, change.Reason)
}

func (r *Recorder) finalize(seq *SwingSequence, at time.Time, reason string) {
	out := at
	seq.OutPoint = &out
	seq.ExportStatus = StatusPending
	seq.Reason = reason
	r.active = nil

	r.log.Info("sequence completed",
		"number", seq.Number,
		"reason", reason,
		"duration", out.Sub(seq.InPoint))
	if r.metrics != nil {
		r.metrics.IncrementSequences("completed")
	}
	if r.onCompleted != nil {
		r.onCompleted(seq)
	}
}

// StartSession clears all prior sequences and counters for a fresh session.
func (r *Recorder) StartSession() {
	r.sequences = nil
	r.active = nil
	r.counter = 0
}

// StopSession forcibly finalizes an open sequence at the current time. An
// unfinished sequence is never silently dropped.
func (r *Recorder) StopSession() {
	if r.active == nil {
		return
	}
	r.log.Warn("session stopped with open sequence, force closing", "number", r.active.Number)
	r.finalize(r.active, r.clock.Now(), "session_stopped")
}

// Sequences returns the recorded sequences for the current session.
func (r *Recorder) Sequences() []*SwingSequence {
	return r.sequences
}

// Active returns the open sequence, or nil.
func (r *Recorder) Active() *SwingSequence {
	return r.active
}

// Count returns the number of recorded sequences.
func (r *Recorder) Count() int {
	return len(r.sequences)
}
