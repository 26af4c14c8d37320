// analysis_buffer.go: per-source ring buffers decoupling the capture
// callbacks from the serial processing loop. Capture threads write whole
// frames in; the processing loop pulls whole frames out.
package video

import (
	"log/slog"
	"sync"

	"github.com/smallnest/ringbuffer"

	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/logging"
)

const warningCapacityThreshold = 0.9 // 90% full

// AnalysisBufferPool owns one frame ring per capture source.
type AnalysisBufferPool struct {
	frameSize      int
	ringBuffers    map[string]*ringbuffer.RingBuffer
	warningCounter map[string]int
	mu             sync.RWMutex
	log            *slog.Logger
}

// NewAnalysisBufferPool initializes a ring per source, each holding
// framesPerRing frames of frameSize bytes.
func NewAnalysisBufferPool(frameSize, framesPerRing int, sources []string) (*AnalysisBufferPool, error) {
	if frameSize <= 0 || framesPerRing <= 0 {
		return nil, errors.Newf("invalid analysis buffer geometry: %d bytes x %d frames", frameSize, framesPerRing).
			Component("video").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(sources) == 0 {
		return nil, errors.NewStd("no capture sources provided")
	}

	p := &AnalysisBufferPool{
		frameSize:      frameSize,
		ringBuffers:    make(map[string]*ringbuffer.RingBuffer, len(sources)),
		warningCounter: make(map[string]int, len(sources)),
		log:            logging.ForService("video"),
	}
	for _, source := range sources {
		p.ringBuffers[source] = ringbuffer.New(frameSize * framesPerRing)
	}
	return p, nil
}

// WriteFrame writes one whole frame into the ring for a source. A full ring
// drops the frame: capture must never block on a slow processing loop.
func (p *AnalysisBufferPool) WriteFrame(source string, pixels []byte) error {
	p.mu.RLock()
	rb, exists := p.ringBuffers[source]
	p.mu.RUnlock()
	if !exists {
		return errors.Newf("no analysis buffer for source %q", source).
			Component("video").
			Category(errors.CategoryBuffer).
			Build()
	}
	if len(pixels) != p.frameSize {
		return errors.Newf("frame size mismatch for source %q: got %d, want %d", source, len(pixels), p.frameSize).
			Component("video").
			Category(errors.CategoryBuffer).
			Build()
	}

	capacityUsed := float64(rb.Length()) / float64(rb.Capacity())
	if capacityUsed > warningCapacityThreshold {
		p.mu.Lock()
		p.warningCounter[source]++
		n := p.warningCounter[source]
		p.mu.Unlock()
		if n%32 == 1 {
			p.log.Warn("analysis buffer nearly full", "source", source, "used", capacityUsed)
		}
	}

	if rb.Free() < p.frameSize {
		// Drop rather than block or split a frame across a wrap.
		return errors.Newf("analysis buffer full for source %q, dropping frame", source).
			Component("video").
			Category(errors.CategoryBuffer).
			Build()
	}
	if _, err := rb.Write(pixels); err != nil {
		return errors.New(err).
			Component("video").
			Category(errors.CategoryBuffer).
			Context("source", source).
			Build()
	}
	return nil
}

// ReadFrame pulls one whole frame into dst. ok is false when less than a
// full frame is buffered.
func (p *AnalysisBufferPool) ReadFrame(source string, dst []byte) (ok bool) {
	p.mu.RLock()
	rb, exists := p.ringBuffers[source]
	p.mu.RUnlock()
	if !exists || len(dst) < p.frameSize {
		return false
	}
	if rb.Length() < p.frameSize {
		return false
	}
	if _, err := rb.Read(dst[:p.frameSize]); err != nil {
		p.log.Warn("analysis buffer read failed", "source", source, "error", err)
		return false
	}
	return true
}

// Pending reports how many complete frames are buffered for a source.
func (p *AnalysisBufferPool) Pending(source string) int {
	p.mu.RLock()
	rb, exists := p.ringBuffers[source]
	p.mu.RUnlock()
	if !exists {
		return 0
	}
	return rb.Length() / p.frameSize
}

// FrameSize returns the fixed frame byte length of the pool.
func (p *AnalysisBufferPool) FrameSize() int {
	return p.frameSize
}
