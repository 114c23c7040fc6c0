package session

import (
	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/motion"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

// Snapshot is a point-in-time view of the session for presentation.
type Snapshot struct {
	SessionID          string                  `json:"session_id"`
	Recording          bool                    `json:"recording"`
	Attempts           int                     `json:"attempts"`
	MaxAttempts        int                     `json:"max_attempts"`
	CurrentPath        trajectory.Path         `json:"current_path"`
	SmoothedPath       trajectory.Path         `json:"smoothed_path"`
	PredictedCount     int                     `json:"predicted_count"`
	TrackingConfidence float64                 `json:"tracking_confidence_pct"`
	Stationary         bool                    `json:"stationary"`
	Box                *LastBox                `json:"box,omitempty"`
	Completed          []trajectory.Path       `json:"completed"`
	Canvas             Canvas                  `json:"canvas"`
	ReferenceX         float64                 `json:"reference_x"`
	StartMarker        motion.Point            `json:"start_marker"`
	Result             *analysis.SessionResult `json:"result,omitempty"`
	SkippedTicks       uint64                  `json:"skipped_ticks"`
}

// Snapshot captures the current session state. The box is included only
// for a few frames after the last detection.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.recorder.Current()
	snap := Snapshot{
		SessionID:          s.id,
		Recording:          s.recording,
		Attempts:           s.recorder.CompletedCount(),
		MaxAttempts:        s.recorder.Config.MaxAttempts,
		CurrentPath:        current,
		SmoothedPath:       trajectory.Smooth(current, s.Config.PathSmoothingWindow),
		PredictedCount:     current.PredictedCount(),
		TrackingConfidence: s.estimator.Confidence() * 100,
		Stationary:         s.estimator.IsStationary(),
		Completed:          s.recorder.Completed(),
		Canvas:             s.canvas,
		ReferenceX:         s.canvas.ReferenceX(),
		StartMarker:        s.canvas.StartMarker(),
		SkippedTicks:       s.skipped.Load(),
	}
	if s.lastBox != nil && s.framesSinceDetection < s.Config.BoxHoldFrames {
		box := *s.lastBox
		snap.Box = &box
	}
	if s.result != nil {
		res := *s.result
		snap.Result = &res
	}
	return snap
}
