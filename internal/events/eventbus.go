// Package events provides asynchronous fan-out of outward notifications
// (swing detections, source changes, sequence lifecycle) with non-blocking
// publish guarantees. The realtime processing loop must never stall on a
// slow consumer; when the buffer is full, events are dropped and counted.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/screener/screener-go/internal/logging"
)

// Event is one outward notification.
type Event interface {
	Kind() string
	Timestamp() time.Time
}

// SwingDetected fires when the motion detector spikes on the golfer camera.
type SwingDetected struct {
	Score float64
	EMA   float64
	At    time.Time
}

func (e SwingDetected) Kind() string         { return "swing_detected" }
func (e SwingDetected) Timestamp() time.Time { return e.At }

// SourceChanged fires on every program cut.
type SourceChanged struct {
	PreviousIndex int
	NewIndex      int
	Reason        string
	At            time.Time
}

func (e SourceChanged) Kind() string         { return "source_changed" }
func (e SourceChanged) Timestamp() time.Time { return e.At }

// SequenceStarted fires when a swing sequence opens.
type SequenceStarted struct {
	Number    int
	SessionID string
	Method    string
	At        time.Time
}

func (e SequenceStarted) Kind() string         { return "sequence_started" }
func (e SequenceStarted) Timestamp() time.Time { return e.At }

// SequenceCompleted fires when a swing sequence is finalized.
type SequenceCompleted struct {
	Number    int
	SessionID string
	Reason    string
	InPoint   time.Time
	OutPoint  time.Time
	At        time.Time
}

func (e SequenceCompleted) Kind() string         { return "sequence_completed" }
func (e SequenceCompleted) Timestamp() time.Time { return e.At }

// Consumer processes events delivered by the bus workers.
type Consumer interface {
	Name() string
	ProcessEvent(event Event) error
}

// Config holds event bus configuration.
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig returns the default event bus configuration.
func DefaultConfig() Config {
	return Config{BufferSize: 1024, Workers: 2}
}

// Bus fans events out to registered consumers on worker goroutines.
type Bus struct {
	eventChan chan Event
	consumers []Consumer
	workers   int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	dropped atomic.Uint64

	mu  sync.Mutex
	log *slog.Logger
}

// NewBus creates a bus; Start must be called before events flow.
func NewBus(cfg Config) *Bus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		eventChan: make(chan Event, cfg.BufferSize),
		workers:   cfg.Workers,
		ctx:       ctx,
		cancel:    cancel,
		log:       logging.ForService("events"),
	}
}

// RegisterConsumer adds a consumer. Must be called before Start.
func (b *Bus) RegisterConsumer(c Consumer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c != nil {
		b.consumers = append(b.consumers, c)
	}
}

// Start launches the worker goroutines.
func (b *Bus) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.log.Info("event bus started", "workers", b.workers, "buffer", cap(b.eventChan))
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ev, ok := <-b.eventChan:
			if !ok {
				return
			}
			b.dispatch(ev)
		}
	}
}

func (b *Bus) dispatch(ev Event) {
	b.mu.Lock()
	consumers := b.consumers
	b.mu.Unlock()

	for _, c := range consumers {
		if err := c.ProcessEvent(ev); err != nil {
			b.log.Warn("event consumer failed",
				"consumer", c.Name(),
				"kind", ev.Kind(),
				"error", err)
		}
	}
}

// Publish enqueues an event without blocking. Returns false when the event
// was dropped because the buffer is full or the bus is not running.
func (b *Bus) Publish(ev Event) bool {
	if !b.running.Load() {
		return false
	}
	select {
	case b.eventChan <- ev:
		return true
	default:
		n := b.dropped.Add(1)
		if n%100 == 1 {
			b.log.Warn("event bus buffer full, dropping events", "dropped_total", n)
		}
		return false
	}
}

// Dropped returns the count of events dropped so far.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Shutdown stops the workers, draining nothing further; it waits for
// in-flight deliveries up to the context deadline.
func (b *Bus) Shutdown(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
