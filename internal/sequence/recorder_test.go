package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screener/screener-go/internal/session"
	"github.com/screener/screener-go/internal/switcher"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestRecorder(t *testing.T) (*Recorder, *session.Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	tracker := session.NewTracker(clock)
	return NewRecorder(tracker, clock, nil), tracker, clock
}

func cutToSim(clock *fakeClock, reason string) switcher.SourceChange {
	return switcher.SourceChange{
		PreviousIndex: switcher.SourceGolfer,
		NewIndex:      switcher.SourceSimulator,
		Reason:        reason,
		Timestamp:     clock.now,
	}
}

func cutToGolfer(clock *fakeClock, reason string) switcher.SourceChange {
	return switcher.SourceChange{
		PreviousIndex: switcher.SourceSimulator,
		NewIndex:      switcher.SourceGolfer,
		Reason:        reason,
		Timestamp:     clock.now,
	}
}

func TestOpenAndCompleteSequence(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	var started, completed []*SwingSequence
	r.SetStartedHandler(func(s *SwingSequence) { started = append(started, s) })
	r.SetCompletedHandler(func(s *SwingSequence) { completed = append(completed, s) })

	inPoint := clock.now
	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))

	require.NotNil(t, r.Active())
	assert.Equal(t, 1, r.Active().Number)
	assert.Equal(t, MethodAuto, r.Active().Method)
	assert.Equal(t, inPoint, r.Active().InPoint)
	assert.Nil(t, r.Active().OutPoint)
	require.Len(t, started, 1)
	assert.Equal(t, 1, tracker.Current().SwingCount)

	clock.advance(8 * time.Second)
	r.HandleSourceChange(cutToGolfer(clock, switcher.ReasonBallLanded))

	assert.Nil(t, r.Active())
	require.Len(t, completed, 1)
	seq := completed[0]
	require.NotNil(t, seq.OutPoint)
	assert.Equal(t, clock.now, *seq.OutPoint)
	assert.Equal(t, StatusPending, seq.ExportStatus)
	assert.Equal(t, switcher.ReasonBallLanded, seq.Reason)
	assert.Equal(t, 1, r.Count())
}

func TestManualCutOpensManualSequence(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonManual))
	require.NotNil(t, r.Active())
	assert.Equal(t, MethodManual, r.Active().Method)
}

func TestPracticeSwingDiscarded(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	var completed int
	r.SetCompletedHandler(func(*SwingSequence) { completed++ })

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	assert.Equal(t, 1, tracker.Current().SwingCount)

	clock.advance(time.Second)
	r.HandleSourceChange(cutToGolfer(clock, switcher.ReasonPracticeSwing))

	assert.Nil(t, r.Active())
	assert.Zero(t, r.Count())
	assert.Zero(t, completed, "a discarded sequence fires no completion event")
	assert.Zero(t, tracker.Current().SwingCount)
}

func TestNumberingAcrossDiscards(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	// Swing 1 completes.
	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	clock.advance(5 * time.Second)
	r.HandleSourceChange(cutToGolfer(clock, switcher.ReasonBallLanded))

	// A practice swing is discarded; its number is released.
	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	assert.Equal(t, 2, r.Active().Number)
	clock.advance(time.Second)
	r.HandleSourceChange(cutToGolfer(clock, switcher.ReasonPracticeSwing))

	// The next real swing reuses number 2.
	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	assert.Equal(t, 2, r.Active().Number)
	clock.advance(5 * time.Second)
	r.HandleSourceChange(cutToGolfer(clock, switcher.ReasonBallLanded))

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	assert.Equal(t, 3, r.Active().Number)

	// Two completed swings plus the one still open; the practice swing
	// rolled its count back.
	assert.Equal(t, 3, tracker.Current().SwingCount)
}

func TestNoSequenceOutsideSession(t *testing.T) {
	r, _, clock := newTestRecorder(t)

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	assert.Nil(t, r.Active())
	assert.Zero(t, r.Count())
}

func TestDoubleOpenKeepsExistingSequence(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	first := r.Active()

	// Same-source cut while open must not open a second sequence.
	r.HandleSourceChange(cutToSim(clock, switcher.ReasonManual))
	assert.Same(t, first, r.Active())
	assert.Equal(t, 1, r.Count())
}

func TestCloseWithoutOpenIsNoOp(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	r.HandleSourceChange(cutToGolfer(clock, switcher.ReasonManual))
	assert.Zero(t, r.Count())
}

func TestStopSessionForceFinalizes(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	var completed []*SwingSequence
	r.SetCompletedHandler(func(s *SwingSequence) { completed = append(completed, s) })

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	clock.advance(3 * time.Second)
	r.StopSession()

	assert.Nil(t, r.Active())
	require.Len(t, completed, 1)
	assert.Equal(t, "session_stopped", completed[0].Reason)
	require.NotNil(t, completed[0].OutPoint)
	assert.Equal(t, clock.now, *completed[0].OutPoint)
}

func TestStartSessionResetsState(t *testing.T) {
	r, tracker, clock := newTestRecorder(t)
	tracker.StartSession("alice")
	r.StartSession()

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	clock.advance(time.Second)
	r.HandleSourceChange(cutToGolfer(clock, switcher.ReasonBallLanded))
	require.Equal(t, 1, r.Count())

	tracker.StartSession("bob")
	r.StartSession()
	assert.Zero(t, r.Count())

	r.HandleSourceChange(cutToSim(clock, switcher.ReasonSwingDetected))
	assert.Equal(t, 1, r.Active().Number, "numbering restarts per session")
}
