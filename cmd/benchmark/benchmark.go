// Package benchmark measures the hot paths of the switching pipeline: the
// ROI downsample + SAD analysis step and the row-parallel frame blender.
package benchmark

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/cpuspec"
	"github.com/screener/screener-go/internal/frame"
	"github.com/screener/screener-go/internal/motion"
	"github.com/screener/screener-go/internal/observability/metrics"
	"github.com/screener/screener-go/internal/transition"
)

var (
	iterations int
	seed       int64
)

// Command creates the benchmark command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Benchmark the analysis and blending hot paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations < 1 {
				return fmt.Errorf("iterations must be positive, got %d", iterations)
			}
			return runBenchmark(settings)
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", 300, "frames to process per benchmark")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for synthetic frame content")

	return cmd
}

func runBenchmark(settings *conf.Settings) error {
	vid := settings.Realtime.Video
	spec := cpuspec.GetCPUSpec()

	fmt.Printf("CPU: %s (%d physical, %d logical cores)\n", spec.BrandName, spec.PhysicalCores, spec.LogicalCores)
	fmt.Printf("Frame: %dx%d UYVY, %d iterations\n\n", vid.Width, vid.Height, iterations)

	if err := benchmarkDetector(settings); err != nil {
		return err
	}
	return benchmarkBlender(settings)
}

// benchmarkDetector times the full ProcessFrame path on noisy frames.
func benchmarkDetector(settings *conf.Settings) error {
	vid := settings.Realtime.Video
	det := settings.Realtime.Detector

	m, err := metrics.NewMotionMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	cfg := motion.DefaultConfig()
	cfg.AnalysisWidth = det.AnalysisWidth
	cfg.AnalysisHeight = det.AnalysisHeight
	cfg.FrameSkip = 1
	cfg.ROI = frame.ROI(det.ROI)

	detector := motion.NewDetector("benchmark", cfg, nil, m)

	rng := rand.New(rand.NewSource(seed))
	pixels := make([]byte, frame.UYVYSize(vid.Width, vid.Height))
	frame.FillUYVYBlack(pixels)

	start := time.Now()
	spikes := 0
	for i := 0; i < iterations; i++ {
		// Perturb a scattering of luma samples so SAD varies per frame.
		for j := 0; j < 256; j++ {
			pixels[(rng.Intn(len(pixels)/2))*2+1] = byte(rng.Intn(256))
		}
		if detector.ProcessFrame(pixels, vid.Width, vid.Height) {
			spikes++
		}
	}
	elapsed := time.Since(start)

	perFrame := elapsed / time.Duration(iterations)
	fmt.Printf("detector: %d frames in %v (%.0f fps, %v/frame, %d spikes)\n",
		iterations, elapsed.Round(time.Millisecond),
		float64(iterations)/elapsed.Seconds(), perFrame, spikes)
	return nil
}

// benchmarkBlender times a full dissolve through the transition engine.
func benchmarkBlender(settings *conf.Settings) error {
	vid := settings.Realtime.Video
	trans := settings.Realtime.Transition

	m, err := metrics.NewTransitionMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	workers := trans.Workers
	if workers <= 0 {
		workers = cpuspec.GetCPUSpec().GetOptimalBlendWorkers()
	}

	engine := transition.NewEngine(transition.Config{
		Width:      vid.Width,
		Height:     vid.Height,
		DurationMs: float64(iterations), // one ms of progress per frame
		Workers:    workers,
	}, m)

	size := frame.BGRASize(vid.Width, vid.Height)
	a := make([]byte, size)
	b := make([]byte, size)
	rng := rand.New(rand.NewSource(seed))
	rng.Read(a)
	rng.Read(b)

	engine.UpdateProgramFrame(a)
	engine.UpdatePreviewFrame(b)
	engine.TriggerAutoTransition(transition.TypeDissolve)

	start := time.Now()
	for i := 0; i < iterations; i++ {
		engine.Tick(1)
		_ = engine.GetProgramFrame()
	}
	elapsed := time.Since(start)

	perFrame := elapsed / time.Duration(iterations)
	fmt.Printf("blender:  %d frames in %v (%.0f fps, %v/frame, %d workers)\n",
		iterations, elapsed.Round(time.Millisecond),
		float64(iterations)/elapsed.Seconds(), perFrame, workers)
	return nil
}
