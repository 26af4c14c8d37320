// capture_buffer.go: circular frame buffer with timestamp tracking, used for
// extracting clips of completed swing sequences.
package video

import (
	"log/slog"
	"sync"
	"time"

	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/switcher"
)

// CaptureBuffer is a circular buffer of whole frames with per-slot
// timestamps. WriteFrame may be called from a capture goroutine while
// ReadSegment runs on the export worker, so access is locked.
type CaptureBuffer struct {
	frameSize  int
	slots      int
	data       []byte
	timestamps []time.Time
	writeIndex int
	written    int // total frames ever written
	clock      switcher.Clock
	lock       sync.Mutex
	log        *slog.Logger
}

// NewCaptureBuffer sizes a buffer to hold durationSeconds of video at fps.
func NewCaptureBuffer(frameSize int, fps float64, durationSeconds int, clock switcher.Clock) (*CaptureBuffer, error) {
	if frameSize <= 0 || fps <= 0 || durationSeconds <= 0 {
		return nil, errors.Newf("invalid capture buffer geometry: %d bytes, %.2f fps, %d s", frameSize, fps, durationSeconds).
			Component("video").
			Category(errors.CategoryValidation).
			Build()
	}
	slots := int(fps*float64(durationSeconds)) + 1
	if clock == nil {
		clock = switcher.SystemClock()
	}
	return &CaptureBuffer{
		frameSize:  frameSize,
		slots:      slots,
		data:       make([]byte, frameSize*slots),
		timestamps: make([]time.Time, slots),
		clock:      clock,
		log:        logging.ForService("video"),
	}, nil
}

// WriteFrame stores one frame stamped with the current time, overwriting the
// oldest slot once the buffer has wrapped.
func (cb *CaptureBuffer) WriteFrame(pixels []byte) error {
	if len(pixels) < cb.frameSize {
		return errors.Newf("frame too small: got %d, want %d", len(pixels), cb.frameSize).
			Component("video").
			Category(errors.CategoryBuffer).
			Build()
	}

	cb.lock.Lock()
	defer cb.lock.Unlock()

	copy(cb.data[cb.writeIndex*cb.frameSize:], pixels[:cb.frameSize])
	cb.timestamps[cb.writeIndex] = cb.clock.Now()
	cb.writeIndex = (cb.writeIndex + 1) % cb.slots
	cb.written++
	return nil
}

// ReadSegment copies out all buffered frames whose timestamps fall in
// [start, end]. Frames older than the buffer's window are gone; requesting
// a fully aged-out span is an error.
func (cb *CaptureBuffer) ReadSegment(start, end time.Time) ([]byte, int, error) {
	if !end.After(start) {
		return nil, 0, errors.Newf("invalid segment: start %v, end %v", start, end).
			Component("video").
			Category(errors.CategoryValidation).
			Build()
	}

	cb.lock.Lock()
	defer cb.lock.Unlock()

	held := cb.written
	if held > cb.slots {
		held = cb.slots
	}
	if held == 0 {
		return nil, 0, errors.NewStd("capture buffer is empty")
	}

	// Walk from the oldest held frame forward, collecting the span.
	oldest := 0
	if cb.written > cb.slots {
		oldest = cb.writeIndex
	}

	var out []byte
	var frames int
	for i := 0; i < held; i++ {
		slot := (oldest + i) % cb.slots
		ts := cb.timestamps[slot]
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, cb.data[slot*cb.frameSize:(slot+1)*cb.frameSize]...)
		frames++
	}

	if frames == 0 {
		return nil, 0, errors.Newf("requested segment [%v, %v] is outside the buffer's window", start, end).
			Component("video").
			Category(errors.CategoryBuffer).
			Build()
	}
	return out, frames, nil
}

// FrameSize returns the byte length of one buffered frame.
func (cb *CaptureBuffer) FrameSize() int {
	return cb.frameSize
}
