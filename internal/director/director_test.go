package director

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screener/screener-go/internal/autocut"
	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/frame"
	"github.com/screener/screener-go/internal/switcher"
)

const (
	testWidth  = 32
	testHeight = 32
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

// testSettings disables every outward service so the test exercises the
// processing core alone.
func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Main.Name = "test"
	s.Realtime.Video = conf.VideoSettings{
		Width:           testWidth,
		Height:          testHeight,
		FPS:             30,
		BufferSeconds:   2,
		GolferSource:    "golfer",
		SimulatorSource: "simulator",
	}
	s.Realtime.Detector = conf.DetectorSettings{
		AnalysisWidth:           8,
		AnalysisHeight:          8,
		FrameSkip:               1,
		ComparisonGap:           1,
		SmoothingAlpha:          0.5,
		SpikeMultiplier:         2.0,
		MinSpikeFloor:           100,
		ROI:                     conf.ROISettings{Left: 0, Top: 0, Width: 1, Height: 1},
		IdleSimilarityThreshold: 100,
		ConsecutiveIdleFrames:   3,
	}
	s.Realtime.AutoCut = conf.AutoCutSettings{
		MaxSimulatorDurationSeconds: 30,
		PostLandingDelaySeconds:     1.5,
		CooldownDurationSeconds:     2,
		PracticeSwingTimeoutSeconds: 3,
	}
	s.Realtime.Transition = conf.TransitionSettings{DurationMs: 500, Workers: 1}
	return s
}

func uniformFrame(luma byte) []byte {
	pixels := make([]byte, frame.UYVYSize(testWidth, testHeight))
	for i := 0; i+1 < len(pixels); i += 2 {
		pixels[i] = frame.UYVYNeutralChroma
		pixels[i+1] = luma
	}
	return pixels
}

func newTestDirector(t *testing.T) (*Director, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	d, err := New(testSettings(), clock)
	require.NoError(t, err)
	return d, clock
}

func TestFullSwingCycle(t *testing.T) {
	d, clock := newTestDirector(t)

	_, err := d.StartSession("alice")
	require.NoError(t, err)
	require.NoError(t, d.SetGolfMode(true))

	// Calibrate the simulator idle reference off a buffered frame.
	idleScreen := uniformFrame(50)
	require.NoError(t, d.SubmitSimulatorFrame(idleScreen))
	d.step()
	require.NoError(t, d.CalibrateIdleReference())

	// Warm the golfer detector, then swing.
	black := uniformFrame(16)
	for i := 0; i < 4; i++ {
		require.NoError(t, d.SubmitGolferFrame(black))
	}
	d.step()
	require.Equal(t, switcher.SourceGolfer, d.SwitcherState().ActiveSourceIndex)

	require.NoError(t, d.SubmitGolferFrame(uniformFrame(255)))
	d.step()

	assert.Equal(t, switcher.SourceSimulator, d.SwitcherState().ActiveSourceIndex)
	assert.Equal(t, autocut.StateFollowingShot.String(), d.ControllerState())
	require.NotNil(t, d.recorder.Active())
	assert.Equal(t, 1, d.recorder.Active().Number)
	assert.Equal(t, 1, d.tracker.Current().SwingCount)

	// The shot flies; the simulator stays busy for a while.
	clock.advance(5 * time.Second)
	require.NoError(t, d.SubmitSimulatorFrame(uniformFrame(200)))
	d.step()
	assert.Equal(t, autocut.StateFollowingShot.String(), d.ControllerState())

	// Three consecutive idle frames confirm the reset.
	for i := 0; i < 3; i++ {
		require.NoError(t, d.SubmitSimulatorFrame(idleScreen))
	}
	d.step()
	assert.Equal(t, autocut.StateResetDetected.String(), d.ControllerState())

	// After the post-landing delay the cut back completes the sequence.
	clock.advance(1500 * time.Millisecond)
	d.step()

	assert.Equal(t, switcher.SourceGolfer, d.SwitcherState().ActiveSourceIndex)
	assert.Equal(t, autocut.StateCooldown.String(), d.ControllerState())
	assert.Nil(t, d.recorder.Active())
	require.Equal(t, 1, d.recorder.Count())
	seq := d.recorder.Sequences()[0]
	assert.Equal(t, switcher.ReasonBallLanded, seq.Reason)
	require.NotNil(t, seq.OutPoint)

	// Cooldown expires back into WaitingForSwing.
	clock.advance(2 * time.Second)
	d.step()
	assert.Equal(t, autocut.StateWaitingForSwing.String(), d.ControllerState())
}

func TestPracticeSwingDiscardedEndToEnd(t *testing.T) {
	d, clock := newTestDirector(t)

	_, err := d.StartSession("alice")
	require.NoError(t, err)
	require.NoError(t, d.SetGolfMode(true))

	idleScreen := uniformFrame(50)
	require.NoError(t, d.SubmitSimulatorFrame(idleScreen))
	d.step()
	require.NoError(t, d.CalibrateIdleReference())

	black := uniformFrame(16)
	for i := 0; i < 4; i++ {
		require.NoError(t, d.SubmitGolferFrame(black))
	}
	require.NoError(t, d.SubmitGolferFrame(uniformFrame(255)))
	d.step()
	require.Equal(t, 1, d.tracker.Current().SwingCount)

	// The simulator idles again almost immediately: a practice swing.
	clock.advance(500 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.SubmitSimulatorFrame(idleScreen))
	}
	d.step()
	require.Equal(t, autocut.StateResetDetected.String(), d.ControllerState())

	clock.advance(1500 * time.Millisecond)
	d.step()

	assert.Equal(t, switcher.SourceGolfer, d.SwitcherState().ActiveSourceIndex)
	assert.Zero(t, d.recorder.Count(), "practice swings leave no sequence behind")
	assert.Zero(t, d.tracker.Current().SwingCount)
}

func TestManualCutOpensSequence(t *testing.T) {
	d, clock := newTestDirector(t)

	_, err := d.StartSession("alice")
	require.NoError(t, err)

	require.NoError(t, d.RequestCut(switcher.SourceSimulator, switcher.ReasonManual))
	require.NotNil(t, d.recorder.Active())
	assert.Equal(t, "manual", string(d.recorder.Active().Method))

	clock.advance(4 * time.Second)
	require.NoError(t, d.RequestCut(switcher.SourceGolfer, switcher.ReasonManual))
	assert.Nil(t, d.recorder.Active())
	assert.Equal(t, 1, d.recorder.Count())
}

func TestSessionGuards(t *testing.T) {
	d, _ := newTestDirector(t)

	_, err := d.StopSession()
	assert.Error(t, err, "stop without a session")

	_, err = d.StartSession("alice")
	require.NoError(t, err)
	_, err = d.StartSession("bob")
	assert.Error(t, err, "second concurrent session")

	info, err := d.StopSession()
	require.NoError(t, err)
	assert.NotNil(t, info.EndTime)
}

func TestStopSessionFinalizesOpenSequence(t *testing.T) {
	d, clock := newTestDirector(t)

	_, err := d.StartSession("alice")
	require.NoError(t, err)

	require.NoError(t, d.RequestCut(switcher.SourceSimulator, switcher.ReasonManual))
	clock.advance(3 * time.Second)

	_, err = d.StopSession()
	require.NoError(t, err)

	require.Equal(t, 1, d.recorder.Count())
	seq := d.recorder.Sequences()[0]
	assert.Equal(t, "session_stopped", seq.Reason)
	require.NotNil(t, seq.OutPoint)
}

func TestCalibrateWithoutFramesFails(t *testing.T) {
	d, _ := newTestDirector(t)
	assert.Error(t, d.CalibrateIdleReference())
}

func TestTickInterval(t *testing.T) {
	broadcastFPS := 59.94
	tests := []struct {
		name string
		fps  float64
		want time.Duration
	}{
		{"30 fps", 30, time.Second / 30},
		{"broadcast 59.94", 59.94, time.Duration(float64(time.Second) / broadcastFPS)},
		{"sub-hertz rate", 0.5, 2 * time.Second},
		{"zero falls back", 0, 16 * time.Millisecond},
		{"negative falls back", -30, 16 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tickInterval(tt.fps))
		})
	}
}
