package detection

import (
	"math"

	"github.com/banshee-data/putt.report/internal/config"
)

// ValidatorConfig holds the acceptance rules for a single detection.
type ValidatorConfig struct {
	ConfidenceThreshold float64 // Strictly-greater confidence required
}

// DefaultValidatorConfig returns the built-in acceptance rules.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfigFromTuning(config.EmptyTuningConfig())
}

// ValidatorConfigFromTuning builds a ValidatorConfig from a loaded TuningConfig.
func ValidatorConfigFromTuning(cfg *config.TuningConfig) ValidatorConfig {
	return ValidatorConfig{ConfidenceThreshold: cfg.GetConfidenceThreshold()}
}

// Validator filters malformed or low-confidence detections and picks the
// best one per frame.
type Validator struct {
	Config ValidatorConfig
}

// NewValidator creates a Validator with the given configuration.
func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{Config: cfg}
}

// IsValid reports whether d carries exactly four box coordinates and a
// confidence above the threshold, with every value finite.
func (v *Validator) IsValid(d Detection) bool {
	if len(d.Box) != 4 || !finite(d.X) || !finite(d.Y) || !finite(d.Confidence) {
		return false
	}
	for _, c := range d.Box {
		if !finite(c) {
			return false
		}
	}
	return d.Confidence > v.Config.ConfidenceThreshold
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SelectBest returns the valid detection with the highest confidence. Ties
// go to the first one encountered. ok is false when nothing is valid.
func (v *Validator) SelectBest(dets []Detection) (best Detection, ok bool) {
	for _, d := range dets {
		if !v.IsValid(d) {
			continue
		}
		if !ok || d.Confidence > best.Confidence {
			best = d
			ok = true
		}
	}
	return best, ok
}
