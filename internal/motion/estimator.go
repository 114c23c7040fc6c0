package motion

import (
	"time"

	"github.com/banshee-data/putt.report/internal/timeutil"
)

// Estimator owns one State and derives dt from a clock. It is not safe for
// concurrent use; the session controller serialises access.
type Estimator struct {
	Config Config

	clock timeutil.Clock
	state State
}

// NewEstimator creates an Estimator in the uninitialized state. A nil clock
// uses the wall clock.
func NewEstimator(cfg Config, clock timeutil.Clock) *Estimator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	e := &Estimator{Config: cfg, clock: clock}
	e.Reset()
	return e
}

// Reset discards all state and starts a fresh uninitialized filter.
func (e *Estimator) Reset() {
	e.state = NewState()
	e.state.LastUpdate = e.clock.Now()
}

// Update feeds a measurement (or nil for a miss) using the wall-clock time
// since the previous call as dt.
func (e *Estimator) Update(measurement *Point) Estimate {
	now := e.clock.Now()
	return e.UpdateWithDt(measurement, timeutil.StepSeconds(e.state.LastUpdate, now), now)
}

// UpdateWithDt feeds a measurement with an explicit time step.
func (e *Estimator) UpdateWithDt(measurement *Point, dt float64, at time.Time) Estimate {
	next, est := Update(e.Config, e.state, measurement, dt)
	next.LastUpdate = at
	e.state = next
	return est
}

// State returns a copy of the current state.
func (e *Estimator) State() State { return e.state }

// Confidence returns the current tracking confidence in [0, 1].
func (e *Estimator) Confidence() float64 { return e.state.Confidence }

// IsStationary reports whether the tracked object has come to rest.
func (e *Estimator) IsStationary() bool { return IsStationary(e.Config, e.state) }
