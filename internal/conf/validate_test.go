package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Realtime.Video = VideoSettings{
		Width:           1920,
		Height:          1080,
		FPS:             30,
		BufferSeconds:   30,
		GolferSource:    "golfer",
		SimulatorSource: "simulator",
	}
	s.Realtime.Detector = DetectorSettings{
		AnalysisWidth:           64,
		AnalysisHeight:          36,
		FrameSkip:               2,
		ComparisonGap:           2,
		SmoothingAlpha:          0.1,
		SpikeMultiplier:         4.0,
		MinSpikeFloor:           8000,
		ROI:                     ROISettings{Left: 0.25, Top: 0.2, Width: 0.5, Height: 0.6},
		IdleSimilarityThreshold: 3000,
		ConsecutiveIdleFrames:   15,
	}
	s.Realtime.AutoCut = AutoCutSettings{
		MaxSimulatorDurationSeconds: 30,
		PostLandingDelaySeconds:     1.5,
		CooldownDurationSeconds:     2,
		PracticeSwingTimeoutSeconds: 3,
	}
	s.Realtime.Transition = TransitionSettings{DurationMs: 500}
	return s
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Validate(validSettings()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero width", func(s *Settings) { s.Realtime.Video.Width = 0 }},
		{"negative height", func(s *Settings) { s.Realtime.Video.Height = -1 }},
		{"zero fps", func(s *Settings) { s.Realtime.Video.FPS = 0 }},
		{"zero buffer depth", func(s *Settings) { s.Realtime.Video.BufferSeconds = 0 }},
		{"identical sources", func(s *Settings) { s.Realtime.Video.SimulatorSource = s.Realtime.Video.GolferSource }},
		{"zero analysis width", func(s *Settings) { s.Realtime.Detector.AnalysisWidth = 0 }},
		{"frame skip below one", func(s *Settings) { s.Realtime.Detector.FrameSkip = 0 }},
		{"comparison gap below one", func(s *Settings) { s.Realtime.Detector.ComparisonGap = 0 }},
		{"alpha at zero", func(s *Settings) { s.Realtime.Detector.SmoothingAlpha = 0 }},
		{"alpha at one", func(s *Settings) { s.Realtime.Detector.SmoothingAlpha = 1 }},
		{"multiplier at one", func(s *Settings) { s.Realtime.Detector.SpikeMultiplier = 1 }},
		{"negative floor", func(s *Settings) { s.Realtime.Detector.MinSpikeFloor = -1 }},
		{"roi out of bounds", func(s *Settings) { s.Realtime.Detector.ROI = ROISettings{Left: 0.8, Top: 0, Width: 0.5, Height: 0.5} }},
		{"roi empty", func(s *Settings) { s.Realtime.Detector.ROI = ROISettings{Left: 0, Top: 0, Width: 0, Height: 1} }},
		{"zero idle threshold", func(s *Settings) { s.Realtime.Detector.IdleSimilarityThreshold = 0 }},
		{"zero consecutive idle frames", func(s *Settings) { s.Realtime.Detector.ConsecutiveIdleFrames = 0 }},
		{"zero failsafe", func(s *Settings) { s.Realtime.AutoCut.MaxSimulatorDurationSeconds = 0 }},
		{"negative post landing delay", func(s *Settings) { s.Realtime.AutoCut.PostLandingDelaySeconds = -0.1 }},
		{"negative cooldown", func(s *Settings) { s.Realtime.AutoCut.CooldownDurationSeconds = -1 }},
		{"negative practice window", func(s *Settings) { s.Realtime.AutoCut.PracticeSwingTimeoutSeconds = -1 }},
		{"zero transition duration", func(s *Settings) { s.Realtime.Transition.DurationMs = 0 }},
		{"negative workers", func(s *Settings) { s.Realtime.Transition.Workers = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			assert.Error(t, Validate(s))
		})
	}
}
