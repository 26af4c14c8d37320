// Package transition implements the on-air frame blender: instant cuts,
// timed dissolves and dip-to-black, and direct T-bar control.
//
// Blending is a pure per-pixel function with no cross-row dependency, so the
// engine splits the frame into row ranges and blends them on a small worker
// pool. GetProgramFrame is synchronous: all rows complete before it returns.
package transition

import (
	"log/slog"
	"sync"
	"time"

	"github.com/screener/screener-go/internal/frame"
	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/observability/metrics"
)

// Type enumerates the supported transitions.
type Type int

const (
	TypeCut Type = iota
	TypeDissolve
	TypeDipToBlack
)

// String returns the transition name for logs and metrics.
func (t Type) String() string {
	switch t {
	case TypeCut:
		return "cut"
	case TypeDissolve:
		return "dissolve"
	case TypeDipToBlack:
		return "dip_to_black"
	default:
		return "unknown"
	}
}

// Config sets the engine's fixed frame geometry and timing.
type Config struct {
	Width      int     // program frame width in pixels
	Height     int     // program frame height in pixels
	DurationMs float64 // auto transition duration
	Workers    int     // blend workers, at least 1
}

// CompleteFunc is invoked synchronously when a transition finishes.
type CompleteFunc func(t Type)

// Engine holds the two most-recent source frames as packed BGRA buffers of
// equal, configured dimensions. Not safe for concurrent use.
type Engine struct {
	cfg       Config
	frameSize int

	a      []byte // program
	b      []byte // preview / next
	bValid bool   // preview has received at least one valid frame
	out    []byte // blend output, disjoint from a and b

	transitioning bool
	ttype         Type
	progress      float64
	manual        bool

	onComplete CompleteFunc
	log        *slog.Logger
	metrics    *metrics.TransitionMetrics
}

// NewEngine creates an engine with both buffers black and no transition in flight.
func NewEngine(cfg Config, m *metrics.TransitionMetrics) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	size := frame.BGRASize(cfg.Width, cfg.Height)
	return &Engine{
		cfg:       cfg,
		frameSize: size,
		a:         make([]byte, size),
		b:         make([]byte, size),
		out:       make([]byte, size),
		log:       logging.ForService("transition"),
		metrics:   m,
	}
}

// SetCompleteHandler registers the transition-complete consumer.
func (e *Engine) SetCompleteHandler(fn CompleteFunc) {
	e.onComplete = fn
}

// UpdateProgramFrame stores the latest program-source frame. Undersized
// buffers are rejected: the previous frame stays on air, never an
// out-of-bounds read.
func (e *Engine) UpdateProgramFrame(pixels []byte) {
	if len(pixels) < e.frameSize {
		e.rejectFrame("program", len(pixels))
		return
	}
	copy(e.a, pixels[:e.frameSize])
}

// UpdatePreviewFrame stores the latest preview-source frame.
func (e *Engine) UpdatePreviewFrame(pixels []byte) {
	if len(pixels) < e.frameSize {
		e.rejectFrame("preview", len(pixels))
		return
	}
	copy(e.b, pixels[:e.frameSize])
	e.bValid = true
}

func (e *Engine) rejectFrame(which string, got int) {
	e.log.Debug("rejecting undersized frame", "buffer", which, "got", got, "want", e.frameSize)
	if e.metrics != nil {
		e.metrics.IncrementFallbackFrames()
	}
}

// TriggerCut swaps program and preview instantly and cancels any in-flight
// auto transition.
func (e *Engine) TriggerCut() {
	e.swap()
	e.transitioning = false
	e.manual = false
	e.progress = 0
	e.complete(TypeCut)
}

// TriggerAutoTransition begins a timed blend. A Cut type is redirected to
// TriggerCut. Progress restarts at 0 and advances from the next Tick.
func (e *Engine) TriggerAutoTransition(t Type) {
	if t == TypeCut {
		e.TriggerCut()
		return
	}
	e.ttype = t
	e.progress = 0
	e.transitioning = true
	e.manual = false
}

// Tick advances an auto transition linearly toward 1.0 over the configured
// duration. At or beyond 1.0 it performs the same swap-and-complete as a cut.
func (e *Engine) Tick(elapsedMs float64) {
	if !e.transitioning || e.manual {
		return
	}
	e.progress += elapsedMs / e.cfg.DurationMs
	if e.progress >= 1.0 {
		e.finish()
	}
}

// SetManualPosition is direct T-bar control, bypassing timing. Reaching 1.0
// completes the transition identically to an auto transition.
func (e *Engine) SetManualPosition(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if !e.transitioning {
		e.transitioning = true
		e.ttype = TypeDissolve
	}
	e.manual = true
	e.progress = p
	if e.progress >= 1.0 {
		e.finish()
	}
}

// Transitioning reports whether a transition is in flight.
func (e *Engine) Transitioning() bool {
	return e.transitioning
}

// Progress returns the current transition position in [0,1].
func (e *Engine) Progress() float64 {
	return e.progress
}

func (e *Engine) finish() {
	t := e.ttype
	e.swap()
	e.transitioning = false
	e.manual = false
	e.progress = 0
	e.complete(t)
}

func (e *Engine) swap() {
	e.a, e.b = e.b, e.a
	// The old program frame is now on preview; it is always usable content.
	e.bValid = true
}

func (e *Engine) complete(t Type) {
	e.log.Debug("transition complete", "type", t.String())
	if e.metrics != nil {
		e.metrics.IncrementTransitions(t.String())
	}
	if e.onComplete != nil {
		e.onComplete(t)
	}
}

// GetProgramFrame returns the blended program output. At progress 0 or when
// no transition is in flight it returns the program buffer unchanged
// (zero-copy passthrough); the same fallback applies when the preview buffer
// never received a valid frame.
func (e *Engine) GetProgramFrame() []byte {
	if !e.transitioning || e.progress == 0 {
		return e.a
	}
	if !e.bValid {
		if e.metrics != nil {
			e.metrics.IncrementFallbackFrames()
		}
		return e.a
	}

	start := time.Now()
	switch e.ttype {
	case TypeDissolve:
		e.blendRows(e.dissolveRows)
	case TypeDipToBlack:
		e.blendRows(e.dipRows)
	default:
		return e.a
	}
	if e.metrics != nil {
		e.metrics.ObserveBlendDuration(time.Since(start).Seconds())
	}
	return e.out
}

// blendRows splits the frame into contiguous row ranges and runs fn on each
// range concurrently. Output rows are disjoint across ranges, so no
// synchronization beyond the final wait is needed.
func (e *Engine) blendRows(fn func(rowStart, rowEnd int)) {
	workers := e.cfg.Workers
	if workers > e.cfg.Height {
		workers = e.cfg.Height
	}
	if workers <= 1 {
		fn(0, e.cfg.Height)
		return
	}

	var wg sync.WaitGroup
	rowsPer := (e.cfg.Height + workers - 1) / workers
	for start := 0; start < e.cfg.Height; start += rowsPer {
		end := start + rowsPer
		if end > e.cfg.Height {
			end = e.cfg.Height
		}
		wg.Add(1)
		go func(s, en int) {
			defer wg.Done()
			fn(s, en)
		}(start, end)
	}
	wg.Wait()
}

// dissolveRows cross-fades every byte linearly, fixed point scaled by 256.
func (e *Engine) dissolveRows(rowStart, rowEnd int) {
	k := int(e.progress * 256)
	if k > 256 {
		k = 256
	}
	inv := 256 - k
	rowBytes := e.cfg.Width * frame.BGRABytesPerPixel
	lo := rowStart * rowBytes
	hi := rowEnd * rowBytes
	for i := lo; i < hi; i++ {
		e.out[i] = byte((int(e.a[i])*inv + int(e.b[i])*k) >> 8)
	}
}

// dipRows fades A to black over the first half of the transition, then black
// up to B over the second half, each leg independently.
func (e *Engine) dipRows(rowStart, rowEnd int) {
	rowBytes := e.cfg.Width * frame.BGRABytesPerPixel
	lo := rowStart * rowBytes
	hi := rowEnd * rowBytes

	if e.progress < 0.5 {
		k := 256 - int(e.progress*2*256)
		if k < 0 {
			k = 0
		}
		for i := lo; i < hi; i++ {
			e.out[i] = byte((int(e.a[i]) * k) >> 8)
		}
		return
	}

	k := int((e.progress*2 - 1) * 256)
	if k > 256 {
		k = 256
	}
	for i := lo; i < hi; i++ {
		e.out[i] = byte((int(e.b[i]) * k) >> 8)
	}
}
