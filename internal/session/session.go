// Package session tracks golf session identity and swing counters.
package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/switcher"
)

// GolfSessionInfo is the bookkeeping record for one session. Once the session
// ends (EndTime set) the record is immutable.
type GolfSessionInfo struct {
	ID             string
	GolferID       string
	StartTime      time.Time
	EndTime        *time.Time
	SwingCount     int
	RecordingPaths []string
}

// Active reports whether the session is still open.
func (s *GolfSessionInfo) Active() bool {
	return s != nil && s.EndTime == nil
}

// Tracker owns the current session record. Single-owner state: all mutation
// goes through its methods.
type Tracker struct {
	clock   switcher.Clock
	log     *slog.Logger
	current *GolfSessionInfo
}

// NewTracker creates a tracker with no active session.
func NewTracker(clock switcher.Clock) *Tracker {
	if clock == nil {
		clock = switcher.SystemClock()
	}
	return &Tracker{
		clock: clock,
		log:   logging.ForService("session"),
	}
}

// StartSession opens a new session, ending any session still open.
func (t *Tracker) StartSession(golferID string) *GolfSessionInfo {
	if t.current.Active() {
		t.EndSession()
	}
	t.current = &GolfSessionInfo{
		ID:        uuid.NewString(),
		GolferID:  golferID,
		StartTime: t.clock.Now(),
	}
	t.log.Info("session started", "session_id", t.current.ID, "golfer", golferID)
	return t.current
}

// EndSession closes the current session and returns it; nil if none is open.
func (t *Tracker) EndSession() *GolfSessionInfo {
	if !t.current.Active() {
		return nil
	}
	end := t.clock.Now()
	t.current.EndTime = &end
	t.log.Info("session ended",
		"session_id", t.current.ID,
		"swings", t.current.SwingCount,
		"duration", end.Sub(t.current.StartTime))
	return t.current
}

// Current returns the current session record, which may be closed or nil.
func (t *Tracker) Current() *GolfSessionInfo {
	return t.current
}

// IsActive reports whether a session is open.
func (t *Tracker) IsActive() bool {
	return t.current.Active()
}

// IncrementSwingCount adds one swing to the open session and returns the count.
func (t *Tracker) IncrementSwingCount() int {
	if !t.current.Active() {
		return 0
	}
	t.current.SwingCount++
	return t.current.SwingCount
}

// DecrementSwingCount removes one swing (a discarded practice swing).
func (t *Tracker) DecrementSwingCount() int {
	if !t.current.Active() || t.current.SwingCount == 0 {
		return 0
	}
	t.current.SwingCount--
	return t.current.SwingCount
}

// AddRecordingPath attaches a recording file reference to the open session.
func (t *Tracker) AddRecordingPath(path string) {
	if !t.current.Active() {
		return
	}
	t.current.RecordingPaths = append(t.current.RecordingPaths, path)
}
