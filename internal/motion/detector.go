// Package motion implements the frame-difference swing and idle detector.
//
// The detector keeps a short ring of downsampled luma frames per stream,
// scores each new frame as the sum of absolute differences against the frame
// a configured gap back, and maintains an exponential moving average of that
// score as an adaptive noise baseline. A score far enough above the baseline
// is a swing spike. Idle classification compares frames against a separately
// calibrated reference frame instead of the adaptive baseline.
package motion

import (
	"log/slog"

	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/frame"
	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/observability/metrics"
)

// Config is the immutable detector configuration, shared by both streams.
type Config struct {
	AnalysisWidth           int       // downsample target width
	AnalysisHeight          int       // downsample target height
	FrameSkip               int       // analyze every Nth frame
	ComparisonGap           int       // compare frame i against frame i+gap
	SmoothingAlpha          float64   // EMA smoothing factor, in (0,1)
	SpikeMultiplier         float64   // spike when score > ema * multiplier
	MinSpikeFloor           int64     // absolute minimum spike threshold
	ROI                     frame.ROI // region of interest analyzed for motion
	IdleSimilarityThreshold int64     // SAD below this vs idle reference counts as idle
	ConsecutiveIdleFrames   int       // idle frames required to confirm a reset
}

// DefaultConfig returns a configuration tuned for a 1080p golfer camera.
func DefaultConfig() Config {
	return Config{
		AnalysisWidth:           64,
		AnalysisHeight:          36,
		FrameSkip:               1,
		ComparisonGap:           2,
		SmoothingAlpha:          0.1,
		SpikeMultiplier:         4.0,
		MinSpikeFloor:           8000,
		ROI:                     frame.FullROI(),
		IdleSimilarityThreshold: 3000,
		ConsecutiveIdleFrames:   15,
	}
}

// DetectionFunc is invoked synchronously when a spike is detected.
type DetectionFunc func(score int64, ema float64)

// Detector is a stateful per-stream frame-difference analyzer. It is not safe
// for concurrent use; callers drive ProcessFrame/CheckIdle serially.
type Detector struct {
	cfg  Config
	name string
	log  *slog.Logger

	// ring holds the most recent downsampled luma frames, length gap+1.
	ring     [][]byte
	ringHead int // index of the slot the next frame lands in
	ringLen  int // frames currently held, up to len(ring)

	ema       float64
	emaSeeded bool
	lastSAD   int64

	frameCounter int // raw frames seen, used for frame skipping

	idleRef       []byte
	idleScratch   []byte
	idleStreak    int
	lastIdleScore int64

	onDetection DetectionFunc
	metrics     *metrics.MotionMetrics
}

// NewDetector creates a detector for one stream. name labels log entries and
// metrics; fn may be nil when no detection event consumer exists.
func NewDetector(name string, cfg Config, fn DetectionFunc, m *metrics.MotionMetrics) *Detector {
	planeSize := cfg.AnalysisWidth * cfg.AnalysisHeight
	ring := make([][]byte, cfg.ComparisonGap+1)
	for i := range ring {
		ring[i] = make([]byte, planeSize)
	}
	return &Detector{
		cfg:         cfg,
		name:        name,
		log:         logging.ForService("motion").With("stream", name),
		ring:        ring,
		idleScratch: make([]byte, planeSize),
		onDetection: fn,
		metrics:     m,
	}
}

// ProcessFrame analyzes one packed UYVY frame and reports whether it spiked.
// Frames are numbered from the first call; only every FrameSkip-th frame is
// analyzed, the rest return false untouched.
func (d *Detector) ProcessFrame(pixels []byte, width, height int) bool {
	d.frameCounter++
	if d.cfg.FrameSkip > 1 && (d.frameCounter-1)%d.cfg.FrameSkip != 0 {
		return false
	}

	dst := d.ring[d.ringHead]
	if err := frame.DownsampleLuma(pixels, width, height, d.cfg.ROI, d.cfg.AnalysisWidth, d.cfg.AnalysisHeight, dst); err != nil {
		d.log.Warn("frame rejected", "error", err)
		return false
	}
	d.ringHead = (d.ringHead + 1) % len(d.ring)
	if d.ringLen < len(d.ring) {
		d.ringLen++
	}

	// Not enough history yet: no score, no EMA update.
	if d.ringLen < len(d.ring) {
		return false
	}

	newest := d.ring[(d.ringHead+len(d.ring)-1)%len(d.ring)]
	oldest := d.ring[d.ringHead] // next overwrite slot = frame gap steps back
	score, err := frame.SAD(newest, oldest)
	if err != nil {
		d.log.Warn("difference score failed", "error", err)
		return false
	}
	d.lastSAD = score
	if d.metrics != nil {
		d.metrics.ObserveScore(d.name, float64(score))
	}

	// Seed the baseline with the first computed score so the very first
	// comparison cannot register as a spike against a zero baseline.
	if !d.emaSeeded {
		d.ema = float64(score)
		d.emaSeeded = true
		return false
	}

	threshold := d.ema * d.cfg.SpikeMultiplier
	if floor := float64(d.cfg.MinSpikeFloor); threshold < floor {
		threshold = floor
	}

	if float64(score) > threshold {
		// A spike is not folded into the EMA: the swing must not
		// become part of the noise baseline.
		d.log.Debug("swing spike", "score", score, "ema", d.ema, "threshold", threshold)
		if d.metrics != nil {
			d.metrics.IncrementSpikes(d.name)
		}
		if d.onDetection != nil {
			d.onDetection(score, d.ema)
		}
		return true
	}

	d.ema = d.ema*(1-d.cfg.SmoothingAlpha) + float64(score)*d.cfg.SmoothingAlpha
	if d.metrics != nil {
		d.metrics.SetBaseline(d.name, d.ema)
	}
	return false
}

// CalibrateIdleReference captures the current frame's downsampled ROI as the
// fixed reference for idle classification and restarts the idle streak.
func (d *Detector) CalibrateIdleReference(pixels []byte, width, height int) error {
	ref := make([]byte, d.cfg.AnalysisWidth*d.cfg.AnalysisHeight)
	if err := frame.DownsampleLuma(pixels, width, height, d.cfg.ROI, d.cfg.AnalysisWidth, d.cfg.AnalysisHeight, ref); err != nil {
		return errors.New(err).
			Component("motion").
			Category(errors.CategoryDetection).
			Context("stream", d.name).
			Build()
	}
	d.idleRef = ref
	d.idleStreak = 0
	d.log.Info("idle reference calibrated", "plane_bytes", len(ref))
	return nil
}

// IsCalibrated reports whether an idle reference frame has been captured.
func (d *Detector) IsCalibrated() bool {
	return d.idleRef != nil
}

// CheckIdle classifies one frame against the calibrated idle reference.
// idle is true when this frame alone scored below the similarity threshold;
// confirmed is true once enough consecutive idle frames have been seen.
// Without a calibrated reference both results are always false.
func (d *Detector) CheckIdle(pixels []byte, width, height int) (idle, confirmed bool) {
	if d.idleRef == nil {
		return false, false
	}
	if err := frame.DownsampleLuma(pixels, width, height, d.cfg.ROI, d.cfg.AnalysisWidth, d.cfg.AnalysisHeight, d.idleScratch); err != nil {
		d.log.Warn("idle frame rejected", "error", err)
		return false, false
	}
	score, err := frame.SAD(d.idleScratch, d.idleRef)
	if err != nil {
		return false, false
	}
	d.lastIdleScore = score

	if score < d.cfg.IdleSimilarityThreshold {
		d.idleStreak++
	} else {
		// A single busy frame breaks the streak; transient stillness
		// mid-motion must not confirm a reset.
		d.idleStreak = 0
	}
	return score < d.cfg.IdleSimilarityThreshold, d.idleStreak >= d.cfg.ConsecutiveIdleFrames
}

// ResetIdleStreak clears the consecutive idle frame count without touching
// the calibrated reference.
func (d *Detector) ResetIdleStreak() {
	d.idleStreak = 0
}

// Reset clears all detection state: empty ring, zero EMA, zero last score.
// The calibrated idle reference survives a reset.
func (d *Detector) Reset() {
	d.ringHead = 0
	d.ringLen = 0
	d.ema = 0
	d.emaSeeded = false
	d.lastSAD = 0
	d.frameCounter = 0
	d.idleStreak = 0
}

// LastSAD returns the most recent raw difference score, for diagnostics.
func (d *Detector) LastSAD() int64 {
	return d.lastSAD
}

// CurrentEMA returns the current baseline value, for diagnostics.
func (d *Detector) CurrentEMA() float64 {
	return d.ema
}

// LastIdleScore returns the most recent score against the idle reference.
func (d *Detector) LastIdleScore() int64 {
	return d.lastIdleScore
}
