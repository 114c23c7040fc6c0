package motion

import (
	"math"
	"time"

	"github.com/banshee-data/putt.report/internal/config"
)

// Mode describes what a single Update call did.
type Mode string

const (
	ModeUninitialized Mode = "uninitialized" // No measurement seen yet (or confidence exhausted)
	ModeTracking      Mode = "tracking"      // Estimate blended from a measurement
	ModeCoasting      Mode = "coasting"      // Estimate dead-reckoned without a measurement
)

// Config holds the estimator tuning.
type Config struct {
	DtClampSeconds             float64 // Upper bound on the per-call time step
	JumpDistanceThreshold      float64 // px; jumps above this use SmoothingAlphaHigh
	SmoothingAlphaHigh         float64 // Blend factor for large jumps (fast re-acquisition)
	SmoothingAlphaLow          float64 // Blend factor for small jumps (jitter suppression)
	ConfidenceDecayFactor      float64 // Multiplier applied to confidence per coast
	MinConfidenceForPrediction float64 // Coasting requires confidence above this
	FrictionFactor             float64 // Velocity multiplier per coast
	StationarySpeedThreshold   float64 // px/s; slower coasts count towards stationary
	StationaryExtraDamping     float64 // Extra velocity multiplier below the threshold
	StationaryFrameThreshold   int     // StationaryCount must exceed this to be stationary
}

// DefaultConfig returns the built-in estimator tuning.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		DtClampSeconds:             cfg.GetDtClampSeconds(),
		JumpDistanceThreshold:      cfg.GetJumpDistanceThreshold(),
		SmoothingAlphaHigh:         cfg.GetSmoothingAlphaHigh(),
		SmoothingAlphaLow:          cfg.GetSmoothingAlphaLow(),
		ConfidenceDecayFactor:      cfg.GetConfidenceDecayFactor(),
		MinConfidenceForPrediction: cfg.GetMinConfidenceForPrediction(),
		FrictionFactor:             cfg.GetFrictionFactor(),
		StationarySpeedThreshold:   cfg.GetStationarySpeedThreshold(),
		StationaryExtraDamping:     cfg.GetStationaryExtraDamping(),
		StationaryFrameThreshold:   cfg.GetStationaryFrameThreshold(),
	}
}

// Point is a 2D position or velocity in display pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// State is the complete estimator state for one session.
type State struct {
	Position        Point
	Velocity        Point // px/s
	Confidence      float64
	Initialized     bool
	StationaryCount int
	LastUpdate      time.Time
}

// NewState returns the uninitialized state.
func NewState() State {
	return State{}
}

// Speed returns the magnitude of the velocity.
func (s State) Speed() float64 {
	return math.Hypot(s.Velocity.X, s.Velocity.Y)
}

// Estimate is the result of one Update call. OK is false when the filter
// has nothing to offer (never initialized, or confidence exhausted).
type Estimate struct {
	Position Point
	Mode     Mode
	OK       bool
}

// ClampDt bounds dt to [0, max] so long gaps cannot blow up extrapolation.
func ClampDt(dt, max float64) float64 {
	if dt < 0 || math.IsNaN(dt) {
		return 0
	}
	if dt > max {
		return max
	}
	return dt
}

// Update advances the filter by one step. A nil measurement means no
// accepted detection this tick. dt is clamped with cfg.DtClampSeconds.
// The input state is not modified; the next state is returned.
func Update(cfg Config, s State, measurement *Point, dt float64) (State, Estimate) {
	dt = ClampDt(dt, cfg.DtClampSeconds)
	if measurement == nil {
		return coast(cfg, s, dt)
	}

	m := *measurement
	if !s.Initialized {
		s.Position = m
		s.Velocity = Point{}
		s.Confidence = 1.0
		s.StationaryCount = 0
		s.Initialized = true
		return s, Estimate{Position: s.Position, Mode: ModeTracking, OK: true}
	}

	alpha := cfg.SmoothingAlphaLow
	if s.Position.Dist(m) > cfg.JumpDistanceThreshold {
		alpha = cfg.SmoothingAlphaHigh
	}

	// A zero step carries no velocity information.
	if dt > 0 {
		s.Velocity.X = alpha*((m.X-s.Position.X)/dt) + (1-alpha)*s.Velocity.X
		s.Velocity.Y = alpha*((m.Y-s.Position.Y)/dt) + (1-alpha)*s.Velocity.Y
	}
	s.Position.X = alpha*m.X + (1-alpha)*s.Position.X
	s.Position.Y = alpha*m.Y + (1-alpha)*s.Position.Y

	s.Confidence = 1.0
	s.StationaryCount = 0
	return s, Estimate{Position: s.Position, Mode: ModeTracking, OK: true}
}

func coast(cfg Config, s State, dt float64) (State, Estimate) {
	if !s.Initialized || s.Confidence <= cfg.MinConfidenceForPrediction {
		return s, Estimate{Position: s.Position, Mode: ModeUninitialized}
	}

	s.Confidence *= cfg.ConfidenceDecayFactor

	s.Position.X += s.Velocity.X * dt
	s.Position.Y += s.Velocity.Y * dt

	s.Velocity.X *= cfg.FrictionFactor
	s.Velocity.Y *= cfg.FrictionFactor

	if s.Speed() < cfg.StationarySpeedThreshold {
		s.Velocity.X *= cfg.StationaryExtraDamping
		s.Velocity.Y *= cfg.StationaryExtraDamping
		s.StationaryCount++
	} else {
		s.StationaryCount = 0
	}

	return s, Estimate{Position: s.Position, Mode: ModeCoasting, OK: true}
}

// IsStationary reports whether enough consecutive slow coasts have been seen.
func IsStationary(cfg Config, s State) bool {
	return s.StationaryCount > cfg.StationaryFrameThreshold
}
