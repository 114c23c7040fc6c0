package session

import (
	"time"

	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

// EventKind names something that happened in a session.
type EventKind string

const (
	EventAttemptStarted   EventKind = "attempt_started"
	EventPointAdded       EventKind = "point_added"       // Detected or manual point appended
	EventPointPredicted   EventKind = "point_predicted"   // Dead-reckoned point appended
	EventAttemptCompleted EventKind = "attempt_completed" // Path stored as a completed attempt
	EventAttemptDiscarded EventKind = "attempt_discarded" // Path dropped (too short or over limit)
	EventSessionCompleted EventKind = "session_completed" // All attempts done and analysed
	EventSessionReset     EventKind = "session_reset"
)

// Event is delivered to listeners after the session lock is released, in
// the order the changes happened.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
	Attempt   int       `json:"attempt"` // 1-based attempt the event belongs to

	Point     *trajectory.PathPoint   `json:"point,omitempty"`     // PointAdded, PointPredicted
	Path      trajectory.Path         `json:"path,omitempty"`      // AttemptCompleted, AttemptDiscarded
	Reason    trajectory.EndResult    `json:"reason,omitempty"`    // AttemptCompleted, AttemptDiscarded
	Completed []trajectory.Path       `json:"completed,omitempty"` // SessionCompleted
	Result    *analysis.SessionResult `json:"result,omitempty"`    // SessionCompleted
	Canvas    *Canvas                 `json:"canvas,omitempty"`    // SessionCompleted
}

// Listener receives session events. Listeners run on the goroutine that
// caused the change and must not block for long.
type Listener func(Event)
