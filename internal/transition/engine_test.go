package transition

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screener/screener-go/internal/frame"
)

func testEngine(workers int) *Engine {
	return NewEngine(Config{
		Width:      4,
		Height:     4,
		DurationMs: 100,
		Workers:    workers,
	}, nil)
}

func filled(size int, v byte) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestPassthroughWhenIdle(t *testing.T) {
	e := testEngine(1)
	size := frame.BGRASize(4, 4)
	e.UpdateProgramFrame(filled(size, 100))

	out := e.GetProgramFrame()
	require.Len(t, out, size)
	assert.Equal(t, filled(size, 100), out)
	assert.False(t, e.Transitioning())
}

func TestTriggerCutSwapsInstantly(t *testing.T) {
	e := testEngine(1)
	size := frame.BGRASize(4, 4)
	e.UpdateProgramFrame(filled(size, 100))
	e.UpdatePreviewFrame(filled(size, 200))

	var completed []Type
	e.SetCompleteHandler(func(tt Type) { completed = append(completed, tt) })

	e.TriggerCut()

	assert.Equal(t, filled(size, 200), e.GetProgramFrame())
	assert.False(t, e.Transitioning())
	assert.Equal(t, []Type{TypeCut}, completed)
}

func TestDissolveMidpoint(t *testing.T) {
	e := testEngine(1)
	size := frame.BGRASize(4, 4)
	e.UpdateProgramFrame(filled(size, 100))
	e.UpdatePreviewFrame(filled(size, 200))

	e.TriggerAutoTransition(TypeDissolve)
	assert.True(t, e.Transitioning())

	// Progress 0: zero-copy passthrough of the program buffer.
	assert.Equal(t, filled(size, 100), e.GetProgramFrame())

	e.Tick(50)
	assert.InDelta(t, 0.5, e.Progress(), 1e-9)

	out := e.GetProgramFrame()
	// Fixed point k=128: (100*128 + 200*128) >> 8 = 150.
	assert.Equal(t, filled(size, 150), out)
}

func TestDissolveCompletion(t *testing.T) {
	e := testEngine(1)
	size := frame.BGRASize(4, 4)
	e.UpdateProgramFrame(filled(size, 100))
	e.UpdatePreviewFrame(filled(size, 200))

	var completed []Type
	e.SetCompleteHandler(func(tt Type) { completed = append(completed, tt) })

	e.TriggerAutoTransition(TypeDissolve)
	e.Tick(60)
	e.Tick(60)

	assert.False(t, e.Transitioning())
	assert.Zero(t, e.Progress())
	assert.Equal(t, filled(size, 200), e.GetProgramFrame())
	assert.Equal(t, []Type{TypeDissolve}, completed)
}

func TestDipToBlackHalves(t *testing.T) {
	e := testEngine(1)
	size := frame.BGRASize(4, 4)
	e.UpdateProgramFrame(filled(size, 100))
	e.UpdatePreviewFrame(filled(size, 200))

	e.TriggerAutoTransition(TypeDipToBlack)

	// First half: A fading to black. progress 0.25 -> k = 128.
	e.Tick(25)
	assert.Equal(t, filled(size, 50), e.GetProgramFrame())

	// Second half: black rising to B. progress 0.75 -> k = 128.
	e.Tick(50)
	assert.Equal(t, filled(size, 100), e.GetProgramFrame())
}

func TestManualPosition(t *testing.T) {
	e := testEngine(1)
	size := frame.BGRASize(4, 4)
	e.UpdateProgramFrame(filled(size, 100))
	e.UpdatePreviewFrame(filled(size, 200))

	e.SetManualPosition(0.5)
	assert.True(t, e.Transitioning())
	assert.Equal(t, filled(size, 150), e.GetProgramFrame())

	// Auto ticks are ignored under manual control.
	e.Tick(1000)
	assert.InDelta(t, 0.5, e.Progress(), 1e-9)

	// Out of range positions clamp.
	e.SetManualPosition(-0.3)
	assert.Zero(t, e.Progress())
	e.SetManualPosition(1.7)
	assert.False(t, e.Transitioning(), "reaching 1.0 completes the transition")
	assert.Equal(t, filled(size, 200), e.GetProgramFrame())
}

func TestUndersizedFramesRejected(t *testing.T) {
	e := testEngine(1)
	size := frame.BGRASize(4, 4)
	e.UpdateProgramFrame(filled(size, 100))

	e.UpdateProgramFrame(filled(size-1, 7))
	assert.Equal(t, filled(size, 100), e.GetProgramFrame(), "previous frame stays on air")

	e.UpdatePreviewFrame(filled(3, 7))
	e.TriggerAutoTransition(TypeDissolve)
	e.Tick(50)
	// Preview never received a valid frame: blending falls back to A.
	assert.Equal(t, filled(size, 100), e.GetProgramFrame())
}

func TestBlendMatchesAcrossWorkerCounts(t *testing.T) {
	size := frame.BGRASize(4, 4)
	a := make([]byte, size)
	b := make([]byte, size)
	for i := range a {
		a[i] = byte(i * 7)
		b[i] = byte(255 - i*5)
	}

	var outputs [][]byte
	for _, workers := range []int{1, 2, 8} {
		e := testEngine(workers)
		e.UpdateProgramFrame(a)
		e.UpdatePreviewFrame(b)
		e.TriggerAutoTransition(TypeDissolve)
		e.Tick(37)

		out := make([]byte, size)
		copy(out, e.GetProgramFrame())
		outputs = append(outputs, out)
	}

	for i := 1; i < len(outputs); i++ {
		assert.True(t, bytes.Equal(outputs[0], outputs[i]), "worker count %d diverged", i)
	}
}
