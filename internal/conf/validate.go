// validate.go: configuration validation.
package conf

import (
	"github.com/screener/screener-go/internal/errors"
)

// Validate checks settings for values the core cannot operate with.
func Validate(s *Settings) error {
	if err := validateVideo(&s.Realtime.Video); err != nil {
		return err
	}
	if err := validateDetector(&s.Realtime.Detector); err != nil {
		return err
	}
	if err := validateAutoCut(&s.Realtime.AutoCut); err != nil {
		return err
	}
	if err := validateTransition(&s.Realtime.Transition); err != nil {
		return err
	}
	return nil
}

func validateVideo(v *VideoSettings) error {
	if v.Width <= 0 || v.Height <= 0 {
		return confError("video dimensions must be positive, got %dx%d", v.Width, v.Height)
	}
	if v.FPS <= 0 {
		return confError("video fps must be positive, got %v", v.FPS)
	}
	if v.BufferSeconds <= 0 {
		return confError("video buffer depth must be positive, got %d seconds", v.BufferSeconds)
	}
	if v.GolferSource == v.SimulatorSource {
		return confError("golfer and simulator sources must differ, both are %q", v.GolferSource)
	}
	return nil
}

func validateDetector(d *DetectorSettings) error {
	if d.AnalysisWidth <= 0 || d.AnalysisHeight <= 0 {
		return confError("analysis resolution must be positive, got %dx%d", d.AnalysisWidth, d.AnalysisHeight)
	}
	if d.FrameSkip < 1 {
		return confError("frame skip must be at least 1, got %d", d.FrameSkip)
	}
	if d.ComparisonGap < 1 {
		return confError("comparison gap must be at least 1, got %d", d.ComparisonGap)
	}
	if d.SmoothingAlpha <= 0 || d.SmoothingAlpha >= 1 {
		return confError("smoothing alpha must be in (0,1), got %v", d.SmoothingAlpha)
	}
	if d.SpikeMultiplier <= 1 {
		return confError("spike multiplier must be greater than 1, got %v", d.SpikeMultiplier)
	}
	if d.MinSpikeFloor < 0 {
		return confError("minimum spike floor must not be negative, got %d", d.MinSpikeFloor)
	}
	if d.ROI.Left < 0 || d.ROI.Top < 0 || d.ROI.Width <= 0 || d.ROI.Height <= 0 ||
		d.ROI.Left+d.ROI.Width > 1 || d.ROI.Top+d.ROI.Height > 1 {
		return confError("detector roi must be a non-empty rectangle inside the unit square")
	}
	if d.IdleSimilarityThreshold <= 0 {
		return confError("idle similarity threshold must be positive, got %d", d.IdleSimilarityThreshold)
	}
	if d.ConsecutiveIdleFrames < 1 {
		return confError("consecutive idle frames must be at least 1, got %d", d.ConsecutiveIdleFrames)
	}
	return nil
}

func validateAutoCut(a *AutoCutSettings) error {
	if a.MaxSimulatorDurationSeconds <= 0 {
		return confError("max simulator duration must be positive, got %v", a.MaxSimulatorDurationSeconds)
	}
	if a.PostLandingDelaySeconds < 0 {
		return confError("post landing delay must not be negative, got %v", a.PostLandingDelaySeconds)
	}
	if a.CooldownDurationSeconds < 0 {
		return confError("cooldown duration must not be negative, got %v", a.CooldownDurationSeconds)
	}
	if a.PracticeSwingTimeoutSeconds < 0 {
		return confError("practice swing timeout must not be negative, got %v", a.PracticeSwingTimeoutSeconds)
	}
	return nil
}

func validateTransition(t *TransitionSettings) error {
	if t.DurationMs <= 0 {
		return confError("transition duration must be positive, got %v ms", t.DurationMs)
	}
	if t.Workers < 0 {
		return confError("transition workers must not be negative, got %d", t.Workers)
	}
	return nil
}

func confError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}
