// Package analysis derives directional accuracy metrics from completed
// attempts and aggregates them into a session result.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/trajectory"
	"gonum.org/v1/gonum/stat"
)

// ErrNotReady is returned by Summarize when the session does not yet have
// its full set of attempts, or none of them could be analysed.
var ErrNotReady = errors.New("analysis: session not ready")

// Recommendation texts.
const (
	RecommendHighDispersion     = "High dispersion detected. Focus on consistent stroke alignment and follow-through."
	RecommendModerateDispersion = "Moderate dispersion. Work on maintaining steady hand position throughout the stroke."
	RecommendExcellent          = "Excellent consistency! Your putting stroke is very stable."
	biasNoteFormat              = " You tend to putt slightly to the %s."
)

// Config holds the analysis tuning.
type Config struct {
	MaxAttempts            int     // Attempts required before a session can be summarised
	DispersionBandLow      float64 // px; at or below is "excellent"
	DispersionBandHigh     float64 // px; above is "high"
	DirectionBiasThreshold float64 // degrees; |avg direction| above adds a bias note
	SmoothingWindow        int     // Moving-average window applied before analysis; <= 1 disables
}

// DefaultConfig returns the built-in analysis tuning.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig. Smoothing
// before analysis is off unless analysis_smoothing_window is set.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MaxAttempts:            cfg.GetMaxAttempts(),
		DispersionBandLow:      cfg.GetDispersionBandLow(),
		DispersionBandHigh:     cfg.GetDispersionBandHigh(),
		DirectionBiasThreshold: cfg.GetDirectionBiasThreshold(),
		SmoothingWindow:        cfg.GetAnalysisSmoothingWindow(),
	}
}

// PuttMetrics are the per-attempt results.
type PuttMetrics struct {
	DirectionDeg float64 `json:"direction_deg"` // 0 = straight away from the player, positive = right
	DispersionPx float64 `json:"dispersion_px"` // |end.x - referenceX|
}

// Aggregate is the arithmetic mean over valid attempts.
type Aggregate struct {
	AverageDirectionDeg float64
	AverageDispersionPx float64
	Count               int
}

// SessionResult is the outcome of a complete session, rounded to one
// decimal place for presentation.
type SessionResult struct {
	AverageDirectionDeg float64       `json:"average_direction_deg"`
	AverageDispersionPx float64       `json:"average_dispersion_px"`
	Recommendation      string        `json:"recommendation"`
	Attempts            []PuttMetrics `json:"attempts"`
}

// Analyze computes direction and dispersion for one path. ok is false when
// the path has fewer than two points or its start/end lack coordinates.
func Analyze(path trajectory.Path, referenceX float64) (PuttMetrics, bool) {
	if len(path) < trajectory.MinAttemptPoints {
		return PuttMetrics{}, false
	}
	start, end := path[0], path[len(path)-1]
	if !start.HasCoords() || !end.HasCoords() {
		return PuttMetrics{}, false
	}

	dx := end.X - start.X
	dy := end.Y - start.Y

	// Screen y grows downwards, so "away from the player" is -dy.
	return PuttMetrics{
		DirectionDeg: math.Atan2(dx, -dy) * 180 / math.Pi,
		DispersionPx: math.Abs(end.X - referenceX),
	}, true
}

// AggregateMetrics averages direction and dispersion. ok is false for an
// empty list.
func AggregateMetrics(metrics []PuttMetrics) (Aggregate, bool) {
	if len(metrics) == 0 {
		return Aggregate{}, false
	}
	dirs := make([]float64, len(metrics))
	disps := make([]float64, len(metrics))
	for i, m := range metrics {
		dirs[i] = m.DirectionDeg
		disps[i] = m.DispersionPx
	}
	return Aggregate{
		AverageDirectionDeg: stat.Mean(dirs, nil),
		AverageDispersionPx: stat.Mean(disps, nil),
		Count:               len(metrics),
	}, true
}

// Classify turns averaged metrics into a recommendation.
func Classify(cfg Config, avgDispersion, avgDirection float64) string {
	var rec string
	switch {
	case avgDispersion > cfg.DispersionBandHigh:
		rec = RecommendHighDispersion
	case avgDispersion > cfg.DispersionBandLow:
		rec = RecommendModerateDispersion
	default:
		rec = RecommendExcellent
	}

	if math.Abs(avgDirection) > cfg.DirectionBiasThreshold {
		side := "left"
		if avgDirection > 0 {
			side = "right"
		}
		rec += fmt.Sprintf(biasNoteFormat, side)
	}
	return rec
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
