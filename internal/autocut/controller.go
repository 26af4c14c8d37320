// Package autocut implements the swing/reset state machine that turns motion
// detector signals into program cuts.
//
// The controller is caller-driven: frame processing and time-based
// transitions happen only inside ProcessSource1Frame, ProcessSource2Frame and
// Tick, all invoked serially by the processing loop. Time comes from an
// injected clock so tests can simulate the timing policy without sleeping.
package autocut

import (
	"log/slog"
	"time"

	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/motion"
	"github.com/screener/screener-go/internal/observability/metrics"
	"github.com/screener/screener-go/internal/switcher"
)

// State enumerates the controller states.
type State int

const (
	StateDisabled State = iota
	StateWaitingForSwing
	StateSwingDetected
	StateFollowingShot
	StateResetDetected
	StateCooldown
)

// String returns the state name for logs and the control API.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateWaitingForSwing:
		return "waiting_for_swing"
	case StateSwingDetected:
		return "swing_detected"
	case StateFollowingShot:
		return "following_shot"
	case StateResetDetected:
		return "reset_detected"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Config is the controller timing policy.
type Config struct {
	MaxSimulatorDuration time.Duration // failsafe cap on the following phase
	PostLandingDelay     time.Duration // linger after reset confirmation
	CooldownDuration     time.Duration // pause after a completed or discarded swing
	PracticeSwingTimeout time.Duration // faster resolutions count as practice swings
}

// SwingFunc is invoked synchronously when a swing spike triggers a cut.
type SwingFunc func(score int64, ema float64)

// Controller consumes detector output from both streams, applies the timing
// policy and issues cuts through the switch bus.
type Controller struct {
	cfg       Config
	golferDet *motion.Detector
	simDet    *motion.Detector
	bus       *switcher.Service
	clock     switcher.Clock
	log       *slog.Logger
	metrics   *metrics.SwitcherMetrics

	state            State
	swingStart       time.Time
	followStart      time.Time
	resetConfirmedAt time.Time
	cooldownStart    time.Time

	onSwing SwingFunc
}

// NewController creates a controller in the Disabled state.
func NewController(cfg Config, golferDet, simDet *motion.Detector, bus *switcher.Service, clock switcher.Clock, m *metrics.SwitcherMetrics) *Controller {
	if clock == nil {
		clock = switcher.SystemClock()
	}
	return &Controller{
		cfg:       cfg,
		golferDet: golferDet,
		simDet:    simDet,
		bus:       bus,
		clock:     clock,
		log:       logging.ForService("autocut"),
		metrics:   m,
		state:     StateDisabled,
	}
}

// SetSwingHandler registers a callback fired on every detected swing.
func (c *Controller) SetSwingHandler(fn SwingFunc) {
	c.onSwing = fn
}

// Enable moves the controller out of Disabled into WaitingForSwing.
func (c *Controller) Enable() {
	if c.state != StateDisabled {
		return
	}
	c.setState(StateWaitingForSwing)
	c.log.Info("auto-cut enabled")
}

// Disable stops all automatic switching immediately from any state.
func (c *Controller) Disable() {
	c.setState(StateDisabled)
	c.log.Info("auto-cut disabled")
}

// State returns the current controller state.
func (c *Controller) State() State {
	return c.state
}

// CalibrateIdleReference captures the simulator stream's idle reference frame.
func (c *Controller) CalibrateIdleReference(pixels []byte, width, height int) error {
	return c.simDet.CalibrateIdleReference(pixels, width, height)
}

// ProcessSource1Frame feeds one golfer-camera frame to its detector. While
// waiting for a swing, a spike cuts program output to the simulator and
// enters the following phase within this call. Disabled is a no-op.
func (c *Controller) ProcessSource1Frame(pixels []byte, width, height int) {
	if c.state == StateDisabled {
		return
	}

	detected := c.golferDet.ProcessFrame(pixels, width, height)
	if !detected || c.state != StateWaitingForSwing {
		return
	}

	now := c.clock.Now()
	c.swingStart = now
	c.setState(StateSwingDetected)
	c.log.Info("swing detected",
		"score", c.golferDet.LastSAD(),
		"ema", c.golferDet.CurrentEMA())
	if c.onSwing != nil {
		c.onSwing(c.golferDet.LastSAD(), c.golferDet.CurrentEMA())
	}

	c.bus.CutToSource(switcher.SourceSimulator, switcher.ReasonSwingDetected)
	c.followStart = now
	// A reset confirmation must be earned fresh for this shot.
	c.simDet.ResetIdleStreak()
	c.setState(StateFollowingShot)
}

// ProcessSource2Frame feeds one simulator frame. During the following phase a
// confirmed idle run (shot resolved, simulator back at its ready screen)
// moves the controller to ResetDetected. Disabled is a no-op.
func (c *Controller) ProcessSource2Frame(pixels []byte, width, height int) {
	if c.state != StateFollowingShot {
		return
	}

	_, confirmed := c.simDet.CheckIdle(pixels, width, height)
	if !confirmed {
		return
	}

	c.resetConfirmedAt = c.clock.Now()
	c.setState(StateResetDetected)
	c.log.Info("simulator reset confirmed",
		"since_swing", c.resetConfirmedAt.Sub(c.swingStart))
}

// Tick evaluates the time-based transitions. It must be called periodically
// by the processing loop; the controller runs no timers of its own.
func (c *Controller) Tick() {
	now := c.clock.Now()

	switch c.state {
	case StateFollowingShot:
		// Failsafe: never stay on the simulator longer than the cap.
		if now.Sub(c.followStart) > c.cfg.MaxSimulatorDuration {
			c.log.Warn("following shot timed out, forcing cut back",
				"elapsed", now.Sub(c.followStart))
			c.bus.CutToSource(switcher.SourceGolfer, switcher.ReasonTimeout)
			c.enterCooldown(now)
		}

	case StateResetDetected:
		if now.Sub(c.resetConfirmedAt) >= c.cfg.PostLandingDelay {
			reason := switcher.ReasonBallLanded
			if c.resetConfirmedAt.Sub(c.swingStart) < c.cfg.PracticeSwingTimeout {
				reason = switcher.ReasonPracticeSwing
			}
			c.bus.CutToSource(switcher.SourceGolfer, reason)
			c.enterCooldown(now)
		}

	case StateCooldown:
		if now.Sub(c.cooldownStart) >= c.cfg.CooldownDuration {
			c.setState(StateWaitingForSwing)
		}
	}
}

func (c *Controller) enterCooldown(now time.Time) {
	c.cooldownStart = now
	c.setState(StateCooldown)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug("state transition", "from", c.state.String(), "to", s.String())
	c.state = s
	if c.metrics != nil {
		c.metrics.SetControllerState(int(s))
	}
}
