package session

import (
	"time"

	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/motion"
)

// Config holds the session-level pipeline tuning. The core components carry
// their own configs, derived from the same TuningConfig.
type Config struct {
	MissedFrameCoastLimit  int           // Misses after a detection that may still emit predictions
	CoastEmitMinConfidence float64       // Estimator confidence required to emit a prediction
	BoxHoldFrames          int           // Misses for which the last box is still shown
	BoxExpireFrames        int           // Misses after which the last box is forgotten
	DetectionHistorySize   int           // Accepted detections kept for heuristics
	PathSmoothingWindow    int           // Moving-average window for the displayed path
	DetectorTimeout        time.Duration // Upper bound on one detection round
	TickInterval           time.Duration // Period of the detection loop
}

// DefaultConfig returns the built-in session tuning.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MissedFrameCoastLimit:  cfg.GetMissedFrameCoastLimit(),
		CoastEmitMinConfidence: cfg.GetCoastEmitMinConfidence(),
		BoxHoldFrames:          cfg.GetBoxHoldFrames(),
		BoxExpireFrames:        cfg.GetBoxExpireFrames(),
		DetectionHistorySize:   cfg.GetDetectionHistorySize(),
		PathSmoothingWindow:    cfg.GetPathSmoothingWindow(),
		DetectorTimeout:        cfg.GetDetectorTimeout(),
		TickInterval:           cfg.GetTickInterval(),
	}
}

// Canvas is the coordinate space paths are recorded in.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultCanvas is used until the presentation layer reports its size.
var DefaultCanvas = Canvas{Width: 640, Height: 480}

// ReferenceX is the intended straight line: the horizontal centre.
func (c Canvas) ReferenceX() float64 { return c.Width / 2 }

// StartMarker is where the player is expected to place the ball.
func (c Canvas) StartMarker() motion.Point {
	return motion.Point{X: c.Width / 2, Y: c.Height * 0.8}
}

// scale returns the factors mapping frame pixels onto the canvas. Unknown
// sizes map 1:1.
func (c Canvas) scale(frameWidth, frameHeight int) (float64, float64) {
	if frameWidth <= 0 || frameHeight <= 0 || c.Width <= 0 || c.Height <= 0 {
		return 1, 1
	}
	return c.Width / float64(frameWidth), c.Height / float64(frameHeight)
}
