// Package director is the composition root for the realtime switching rig.
// It owns the processing loop that drains per-source analysis buffers, feeds
// the motion detectors through the auto-cut controller, advances the timing
// state machine, and fans resulting events out to persistence, MQTT and the
// control API.
package director

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/screener/screener-go/internal/autocut"
	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/cpuspec"
	"github.com/screener/screener-go/internal/datastore"
	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/events"
	"github.com/screener/screener-go/internal/export"
	"github.com/screener/screener-go/internal/frame"
	"github.com/screener/screener-go/internal/httpapi"
	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/motion"
	"github.com/screener/screener-go/internal/mqtt"
	"github.com/screener/screener-go/internal/observability"
	"github.com/screener/screener-go/internal/sequence"
	"github.com/screener/screener-go/internal/session"
	"github.com/screener/screener-go/internal/switcher"
	"github.com/screener/screener-go/internal/transition"
	"github.com/screener/screener-go/internal/video"
)

// Director wires the core components together and drives them from a single
// processing goroutine. All mutation of the switcher, controller, recorder
// and tracker happens under mu; the HTTP control surface shares it.
type Director struct {
	settings *conf.Settings
	log      *slog.Logger

	metrics  *observability.Metrics
	endpoint *observability.Endpoint

	mu         sync.Mutex
	clock      switcher.Clock
	bus        *switcher.Service
	golferDet  *motion.Detector
	simDet     *motion.Detector
	controller *autocut.Controller
	recorder   *sequence.Recorder
	tracker    *session.Tracker
	engine     *transition.Engine

	analysisPool  *video.AnalysisBufferPool
	captureBuffer *video.CaptureBuffer

	eventBus   *events.Bus
	store      datastore.Interface
	mqttClient mqtt.Client
	httpServer *httpapi.Server

	golferSource video.FrameSource
	simSource    video.FrameSource

	golferScratch []byte
	simScratch    []byte
	lastTickAt    time.Time
}

// New builds a director from settings. The clock may be nil, in which case
// the system clock is used.
func New(settings *conf.Settings, clock switcher.Clock) (*Director, error) {
	if clock == nil {
		clock = switcher.SystemClock()
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	vid := settings.Realtime.Video
	frameSize := frame.UYVYSize(vid.Width, vid.Height)

	pool, err := video.NewAnalysisBufferPool(frameSize, 8,
		[]string{vid.GolferSource, vid.SimulatorSource})
	if err != nil {
		return nil, err
	}

	capture, err := video.NewCaptureBuffer(frameSize, vid.FPS, vid.BufferSeconds, clock)
	if err != nil {
		return nil, err
	}

	d := &Director{
		settings:      settings,
		log:           logging.ForService("director"),
		metrics:       m,
		clock:         clock,
		analysisPool:  pool,
		captureBuffer: capture,
		eventBus:      events.NewBus(events.DefaultConfig()),
		golferScratch: make([]byte, frameSize),
		simScratch:    make([]byte, frameSize),
	}

	d.bus = switcher.NewService(clock, m.Switcher)
	d.tracker = session.NewTracker(clock)
	d.recorder = sequence.NewRecorder(d.tracker, clock, m.Switcher)

	det := settings.Realtime.Detector
	detCfg := motion.Config{
		AnalysisWidth:           det.AnalysisWidth,
		AnalysisHeight:          det.AnalysisHeight,
		FrameSkip:               det.FrameSkip,
		ComparisonGap:           det.ComparisonGap,
		SmoothingAlpha:          det.SmoothingAlpha,
		SpikeMultiplier:         det.SpikeMultiplier,
		MinSpikeFloor:           det.MinSpikeFloor,
		ROI:                     frame.ROI(det.ROI),
		IdleSimilarityThreshold: det.IdleSimilarityThreshold,
		ConsecutiveIdleFrames:   det.ConsecutiveIdleFrames,
	}
	// The simulator detector watches the whole screen for the idle image.
	simCfg := detCfg
	simCfg.ROI = frame.FullROI()

	d.golferDet = motion.NewDetector(vid.GolferSource, detCfg, nil, m.Motion)
	d.simDet = motion.NewDetector(vid.SimulatorSource, simCfg, nil, m.Motion)

	ac := settings.Realtime.AutoCut
	d.controller = autocut.NewController(autocut.Config{
		MaxSimulatorDuration: secondsToDuration(ac.MaxSimulatorDurationSeconds),
		PostLandingDelay:     secondsToDuration(ac.PostLandingDelaySeconds),
		CooldownDuration:     secondsToDuration(ac.CooldownDurationSeconds),
		PracticeSwingTimeout: secondsToDuration(ac.PracticeSwingTimeoutSeconds),
	}, d.golferDet, d.simDet, d.bus, clock, m.Switcher)

	trans := settings.Realtime.Transition
	workers := trans.Workers
	if workers <= 0 {
		workers = cpuspec.GetCPUSpec().GetOptimalBlendWorkers()
	}
	d.engine = transition.NewEngine(transition.Config{
		Width:      vid.Width,
		Height:     vid.Height,
		DurationMs: trans.DurationMs,
		Workers:    workers,
	}, m.Transition)

	if settings.Output.SQLite.Enabled {
		d.store = datastore.New(settings)
		if d.store != nil {
			if err := d.store.Open(); err != nil {
				return nil, err
			}
		}
	}

	if settings.Realtime.Telemetry.Enabled {
		d.endpoint = observability.NewEndpoint(settings.Realtime.Telemetry.Listen, m)
	}

	if settings.Realtime.HTTP.Enabled {
		d.httpServer = httpapi.New(settings, d, d.store)
	}

	if settings.Realtime.MQTT.Enabled {
		d.mqttClient = mqtt.NewClient(settings)
		d.eventBus.RegisterConsumer(mqtt.NewConsumer(d.mqttClient, settings.Realtime.MQTT.TopicPrefix))
	}

	if settings.Realtime.Export.Enabled {
		d.eventBus.RegisterConsumer(export.New(settings, d.captureBuffer, d.store))
	}

	d.wire()
	return d, nil
}

// wire connects the intra-loop callbacks. Everything here runs on the
// processing goroutine (or under mu from the control API), so the recorder
// and tracker need no locking of their own.
func (d *Director) wire() {
	d.bus.Subscribe(d.recorder.HandleSourceChange)
	d.bus.Subscribe(func(change switcher.SourceChange) {
		d.engine.TriggerCut()
		d.eventBus.Publish(events.SourceChanged{
			PreviousIndex: change.PreviousIndex,
			NewIndex:      change.NewIndex,
			Reason:        change.Reason,
			At:            change.Timestamp,
		})
	})

	d.controller.SetSwingHandler(func(score int64, ema float64) {
		d.eventBus.Publish(events.SwingDetected{
			Score: float64(score),
			EMA:   ema,
			At:    d.clock.Now(),
		})
	})

	d.recorder.SetStartedHandler(func(seq *sequence.SwingSequence) {
		d.eventBus.Publish(events.SequenceStarted{
			Number:    seq.Number,
			SessionID: seq.SessionID,
			Method:    string(seq.Method),
			At:        seq.InPoint,
		})
	})
	d.recorder.SetCompletedHandler(func(seq *sequence.SwingSequence) {
		d.persistSequence(seq)
		out := seq.InPoint
		if seq.OutPoint != nil {
			out = *seq.OutPoint
		}
		d.eventBus.Publish(events.SequenceCompleted{
			Number:    seq.Number,
			SessionID: seq.SessionID,
			Reason:    seq.Reason,
			InPoint:   seq.InPoint,
			OutPoint:  out,
			At:        out,
		})
	})
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Run starts the auxiliary services and the processing loop, blocking until
// the context is canceled or a service fails.
func (d *Director) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	d.eventBus.Start()

	if d.mqttClient != nil {
		if err := d.mqttClient.Connect(ctx); err != nil {
			// The broker is optional equipment; keep switching without it.
			d.log.Warn("MQTT connect failed, events will not be published", "error", err)
		}
	}

	if d.endpoint != nil {
		g.Go(d.endpoint.Start)
	}
	if d.httpServer != nil {
		g.Go(d.httpServer.Start)
	}

	if d.golferSource != nil {
		g.Go(func() error {
			return d.golferSource.Start(ctx, d.SubmitGolferFrame)
		})
	}
	if d.simSource != nil {
		g.Go(func() error {
			return d.simSource.Start(ctx, d.SubmitSimulatorFrame)
		})
	}

	g.Go(func() error {
		return d.processingLoop(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		return d.shutdown()
	})

	if d.settings.Realtime.AutoCut.Enabled {
		d.mu.Lock()
		d.bus.SetGolfMode(true)
		d.controller.Enable()
		d.mu.Unlock()
	}

	d.log.Info("director running",
		"golfer_source", d.settings.Realtime.Video.GolferSource,
		"simulator_source", d.settings.Realtime.Video.SimulatorSource)

	err := g.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// AttachSources hooks frame sources into Run. Either may be nil; frames can
// also be pushed directly through SubmitGolferFrame/SubmitSimulatorFrame.
func (d *Director) AttachSources(golfer, simulator video.FrameSource) {
	d.golferSource = golfer
	d.simSource = simulator
}

// SubmitGolferFrame enqueues a golfer camera frame for analysis.
func (d *Director) SubmitGolferFrame(pixels []byte) error {
	return d.analysisPool.WriteFrame(d.settings.Realtime.Video.GolferSource, pixels)
}

// SubmitSimulatorFrame enqueues a simulator frame for analysis and retains
// it in the clip capture buffer.
func (d *Director) SubmitSimulatorFrame(pixels []byte) error {
	if err := d.captureBuffer.WriteFrame(pixels); err != nil {
		d.log.Warn("capture buffer write failed", "error", err)
	}
	return d.analysisPool.WriteFrame(d.settings.Realtime.Video.SimulatorSource, pixels)
}

// processingLoop drains the analysis buffers at a fixed cadence. Detector
// feeding, state machine ticks and transition progress all happen here, on
// one goroutine, so the core packages stay lock-free.
func (d *Director) processingLoop(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval(d.settings.Realtime.Video.FPS))
	defer ticker.Stop()

	d.lastTickAt = d.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.step()
		}
	}
}

// tickInterval converts a nominal frame rate to a ticker period. The math
// stays in float space so fractional rates (59.94, or anything below 1)
// never truncate to a zero divisor.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 16 * time.Millisecond
	}
	interval := time.Duration(float64(time.Second) / fps)
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return interval
}

// step runs one iteration of the processing loop.
func (d *Director) step() {
	d.mu.Lock()
	defer d.mu.Unlock()

	vid := d.settings.Realtime.Video

	for d.analysisPool.ReadFrame(vid.GolferSource, d.golferScratch) {
		d.controller.ProcessSource1Frame(d.golferScratch, vid.Width, vid.Height)
	}
	for d.analysisPool.ReadFrame(vid.SimulatorSource, d.simScratch) {
		d.controller.ProcessSource2Frame(d.simScratch, vid.Width, vid.Height)
	}

	d.controller.Tick()

	now := d.clock.Now()
	elapsed := now.Sub(d.lastTickAt)
	d.lastTickAt = now
	d.engine.Tick(float64(elapsed) / float64(time.Millisecond))
}

func (d *Director) shutdown() error {
	d.log.Info("director shutting down")

	d.mu.Lock()
	d.recorder.StopSession()
	if d.tracker.IsActive() {
		d.endSessionLocked()
	}
	d.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if d.httpServer != nil {
		if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
			d.log.Warn("HTTP server shutdown failed", "error", err)
		}
	}
	if d.endpoint != nil {
		if err := d.endpoint.Shutdown(shutdownCtx); err != nil {
			d.log.Warn("metrics endpoint shutdown failed", "error", err)
		}
	}
	if err := d.eventBus.Shutdown(shutdownCtx); err != nil {
		d.log.Warn("event bus shutdown failed", "error", err)
	}
	if d.mqttClient != nil {
		d.mqttClient.Disconnect()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.Warn("datastore close failed", "error", err)
		}
	}
	return context.Canceled
}

// persistSequence writes a finalized sequence to the datastore.
func (d *Director) persistSequence(seq *sequence.SwingSequence) {
	if d.store == nil {
		return
	}
	rec := &datastore.SwingSequence{
		SessionID:    seq.SessionID,
		Number:       seq.Number,
		InPoint:      seq.InPoint,
		OutPoint:     seq.OutPoint,
		Method:       string(seq.Method),
		Reason:       seq.Reason,
		ExportStatus: string(seq.ExportStatus),
		ClipPath:     seq.ClipPath,
	}
	if err := d.store.SaveSequence(rec); err != nil {
		d.log.Warn("failed to persist sequence", "number", seq.Number, "error", err)
	}
}

// --- httpapi.Control implementation ---

// SwitcherState returns a snapshot of the switch bus state.
func (d *Director) SwitcherState() switcher.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bus.State()
}

// ControllerState names the auto-cut state for the control API.
func (d *Director) ControllerState() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.controller.State().String()
}

// RequestCut performs a manual cut on the processing state.
func (d *Director) RequestCut(index int, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bus.CutToSource(index, reason)
	return nil
}

// SetGolfMode toggles auto switching.
func (d *Director) SetGolfMode(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bus.SetGolfMode(enabled)
	if enabled {
		d.controller.Enable()
	} else {
		d.controller.Disable()
	}
	return nil
}

// StartSession opens a new golf session and resets sequence numbering.
func (d *Director) StartSession(golferID string) (*session.GolfSessionInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tracker.IsActive() {
		return nil, errors.Newf("a session is already active").
			Component("director").
			Category(errors.CategoryState).
			Build()
	}

	info := d.tracker.StartSession(golferID)
	d.recorder.StartSession()

	if d.store != nil {
		rec := &datastore.GolfSession{
			SessionID: info.ID,
			GolferID:  info.GolferID,
			StartTime: info.StartTime,
		}
		if err := d.store.SaveSession(rec); err != nil {
			d.log.Warn("failed to persist session", "session", info.ID, "error", err)
		}
	}
	return info, nil
}

// StopSession finalizes any open sequence and closes the session.
func (d *Director) StopSession() (*session.GolfSessionInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.tracker.IsActive() {
		return nil, errors.Newf("no active session").
			Component("director").
			Category(errors.CategoryState).
			Build()
	}

	d.recorder.StopSession()
	return d.endSessionLocked(), nil
}

func (d *Director) endSessionLocked() *session.GolfSessionInfo {
	info := d.tracker.EndSession()
	if info != nil && d.store != nil {
		rec := &datastore.GolfSession{
			SessionID:  info.ID,
			GolferID:   info.GolferID,
			StartTime:  info.StartTime,
			EndTime:    info.EndTime,
			SwingCount: info.SwingCount,
		}
		if err := d.store.UpdateSession(rec); err != nil {
			d.log.Warn("failed to update session record", "session", info.ID, "error", err)
		}
	}
	return info
}

// CurrentSession returns the active session, or nil.
func (d *Director) CurrentSession() *session.GolfSessionInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracker.Current()
}

// CalibrateIdleReference captures the simulator's idle image from the most
// recent frame in the capture buffer.
func (d *Director) CalibrateIdleReference() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vid := d.settings.Realtime.Video
	now := d.clock.Now()
	data, frames, err := d.captureBuffer.ReadSegment(now.Add(-2*time.Second), now)
	if err != nil || frames == 0 {
		return errors.Newf("no recent simulator frame available for calibration").
			Component("director").
			Category(errors.CategoryDetection).
			Build()
	}
	frameSize := d.captureBuffer.FrameSize()
	latest := data[(frames-1)*frameSize:]
	return d.controller.CalibrateIdleReference(latest[:frameSize], vid.Width, vid.Height)
}

// ProgramFrame returns the current on-air frame from the transition engine.
func (d *Director) ProgramFrame() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.GetProgramFrame()
}

// UpdateProgramFrame forwards a program-side frame to the transition engine.
func (d *Director) UpdateProgramFrame(pixels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.UpdateProgramFrame(pixels)
}

// UpdatePreviewFrame forwards a preview-side frame to the transition engine.
func (d *Director) UpdatePreviewFrame(pixels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.UpdatePreviewFrame(pixels)
}
