package switcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func TestCutToSource(t *testing.T) {
	clock := newFakeClock()
	s := NewService(clock, nil)

	var changes []SourceChange
	s.Subscribe(func(c SourceChange) { changes = append(changes, c) })

	require.Equal(t, SourceGolfer, s.State().ActiveSourceIndex)

	s.CutToSource(SourceSimulator, ReasonSwingDetected)

	state := s.State()
	assert.Equal(t, SourceSimulator, state.ActiveSourceIndex)
	assert.Equal(t, clock.now, state.LastCutTime)

	require.Len(t, changes, 1)
	assert.Equal(t, SourceGolfer, changes[0].PreviousIndex)
	assert.Equal(t, SourceSimulator, changes[0].NewIndex)
	assert.Equal(t, ReasonSwingDetected, changes[0].Reason)
	assert.Equal(t, clock.now, changes[0].Timestamp)
}

func TestCutToOutOfRangeSourceIsNoOp(t *testing.T) {
	s := NewService(newFakeClock(), nil)

	var fired int
	s.Subscribe(func(SourceChange) { fired++ })

	for _, index := range []int{-1, 2, 17} {
		s.CutToSource(index, ReasonManual)
	}

	assert.Equal(t, SourceGolfer, s.State().ActiveSourceIndex)
	assert.True(t, s.State().LastCutTime.IsZero())
	assert.Zero(t, fired)
}

func TestCutToSameSourceStillFiresEvent(t *testing.T) {
	clock := newFakeClock()
	s := NewService(clock, nil)

	var changes []SourceChange
	s.Subscribe(func(c SourceChange) { changes = append(changes, c) })

	s.CutToSource(SourceGolfer, ReasonManual)

	require.Len(t, changes, 1)
	assert.Equal(t, SourceGolfer, changes[0].PreviousIndex)
	assert.Equal(t, SourceGolfer, changes[0].NewIndex)
	assert.Equal(t, clock.now, s.State().LastCutTime)
}

func TestSubscribersInvokedInOrder(t *testing.T) {
	s := NewService(newFakeClock(), nil)

	var order []int
	s.Subscribe(func(SourceChange) { order = append(order, 1) })
	s.Subscribe(func(SourceChange) { order = append(order, 2) })
	s.Subscribe(func(SourceChange) { order = append(order, 3) })

	s.CutToSource(SourceSimulator, ReasonBallLanded)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSetGolfMode(t *testing.T) {
	s := NewService(newFakeClock(), nil)
	assert.False(t, s.State().GolfModeEnabled)

	s.SetGolfMode(true)
	assert.True(t, s.State().GolfModeEnabled)

	s.SetGolfMode(false)
	assert.False(t, s.State().GolfModeEnabled)
}
