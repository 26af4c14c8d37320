// source.go: frame source abstraction. Capture hardware integrations
// implement FrameSource; a synthetic generator backs benchmarks and tests.
package video

import (
	"context"
	"math/rand"
	"time"

	"github.com/screener/screener-go/internal/frame"
)

// FrameSource delivers packed UYVY frames to a submit callback until the
// context is canceled. Start blocks for the lifetime of the source.
type FrameSource interface {
	Name() string
	Start(ctx context.Context, submit func(pixels []byte) error) error
}

// SyntheticSource generates black UYVY frames at a fixed rate, with optional
// periodic luma bursts that register as motion.
type SyntheticSource struct {
	name        string
	width       int
	height      int
	fps         float64
	burstEvery  int // emit a bright burst every N frames, 0 disables
	burstFrames int // consecutive burst frames per event
	rng         *rand.Rand
}

// NewSyntheticSource creates a generator for width x height frames at fps.
func NewSyntheticSource(name string, width, height int, fps float64) *SyntheticSource {
	return &SyntheticSource{
		name:   name,
		width:  width,
		height: height,
		fps:    fps,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithMotionBursts configures a luma burst of burstFrames frames every
// every-th frame.
func (s *SyntheticSource) WithMotionBursts(every, burstFrames int) *SyntheticSource {
	s.burstEvery = every
	s.burstFrames = burstFrames
	return s
}

// Name returns the source label.
func (s *SyntheticSource) Name() string { return s.name }

// Start generates frames until the context is canceled.
func (s *SyntheticSource) Start(ctx context.Context, submit func(pixels []byte) error) error {
	interval := time.Duration(float64(time.Second) / s.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pixels := make([]byte, frame.UYVYSize(s.width, s.height))
	frame.FillUYVYBlack(pixels)

	counter := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			counter++
			s.paint(pixels, counter)
			if err := submit(pixels); err != nil {
				return err
			}
		}
	}
}

// paint fills the frame for the given counter value, bursting bright noise
// into the luma channel during burst windows.
func (s *SyntheticSource) paint(pixels []byte, counter int) {
	frame.FillUYVYBlack(pixels)
	if s.burstEvery <= 0 {
		return
	}
	phase := counter % s.burstEvery
	if phase >= s.burstFrames {
		return
	}
	for i := 1; i < len(pixels); i += 2 {
		pixels[i] = byte(128 + s.rng.Intn(100))
	}
}
