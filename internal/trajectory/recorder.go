package trajectory

import (
	"github.com/banshee-data/putt.report/internal/config"
)

// MinAttemptPoints is the shortest path that is kept as an attempt.
const MinAttemptPoints = 2

// RecorderConfig holds the session bounds for the recorder.
type RecorderConfig struct {
	MaxAttempts int // Completed attempts kept per session
}

// DefaultRecorderConfig returns the built-in recorder bounds.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfigFromTuning(config.EmptyTuningConfig())
}

// RecorderConfigFromTuning builds a RecorderConfig from a loaded TuningConfig.
func RecorderConfigFromTuning(cfg *config.TuningConfig) RecorderConfig {
	return RecorderConfig{MaxAttempts: cfg.GetMaxAttempts()}
}

// EndResult says what EndAttempt did with the in-progress path.
type EndResult string

const (
	AttemptStored    EndResult = "stored"     // Moved into the completed set
	AttemptTooShort  EndResult = "too_short"  // Fewer than MinAttemptPoints; dropped
	AttemptOverLimit EndResult = "over_limit" // Completed set already full; dropped
)

// Recorder accumulates the in-progress path and the completed attempts of
// one session. It is not safe for concurrent use.
type Recorder struct {
	Config RecorderConfig

	current   Path
	completed []Path
}

// NewRecorder creates an empty Recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	return &Recorder{Config: cfg}
}

// Append adds a point to the in-progress path. The caller decides whether
// the point is a real detection or a prediction.
func (r *Recorder) Append(p PathPoint) {
	r.current = append(r.current, p)
}

// EndAttempt finalizes the in-progress path. Paths with at least
// MinAttemptPoints points are stored while the completed set has room;
// anything else is dropped silently. The in-progress path is cleared in
// every case and the finished path is returned.
func (r *Recorder) EndAttempt() (Path, EndResult) {
	finished := r.current
	r.current = nil

	if len(finished) < MinAttemptPoints {
		return finished, AttemptTooShort
	}
	if r.Full() {
		return finished, AttemptOverLimit
	}
	r.completed = append(r.completed, finished)
	return finished.Clone(), AttemptStored
}

// DiscardAttempt clears the in-progress path without storing it.
func (r *Recorder) DiscardAttempt() {
	r.current = nil
}

// ResetSession clears the in-progress path and every completed attempt.
func (r *Recorder) ResetSession() {
	r.current = nil
	r.completed = nil
}

// Current returns a copy of the in-progress path.
func (r *Recorder) Current() Path { return r.current.Clone() }

// CurrentLen returns the number of points in the in-progress path.
func (r *Recorder) CurrentLen() int { return len(r.current) }

// Completed returns copies of the completed attempts, oldest first.
func (r *Recorder) Completed() []Path {
	out := make([]Path, len(r.completed))
	for i, p := range r.completed {
		out[i] = p.Clone()
	}
	return out
}

// CompletedCount returns the number of completed attempts.
func (r *Recorder) CompletedCount() int { return len(r.completed) }

// Full reports whether the completed set has reached MaxAttempts.
func (r *Recorder) Full() bool { return len(r.completed) >= r.Config.MaxAttempts }
