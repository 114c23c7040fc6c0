package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Built-in defaults used when a field is omitted from the JSON file.
const (
	defaultMaxAttempts                = 3
	defaultConfidenceThreshold        = 0.25
	defaultIoUThreshold               = 0.45
	defaultDtClampSeconds             = 0.2
	defaultFrictionFactor             = 0.92
	defaultStationarySpeedThreshold   = 5.0
	defaultStationaryFrameThreshold   = 5
	defaultStationaryExtraDamping     = 0.8
	defaultConfidenceDecayFactor      = 0.85
	defaultMinConfidenceForPrediction = 0.2
	defaultJumpDistanceThreshold      = 15.0
	defaultSmoothingAlphaHigh         = 0.8
	defaultSmoothingAlphaLow          = 0.4
	defaultPathSmoothingWindow        = 3
	defaultAnalysisSmoothingWindow    = 0
	defaultDispersionBandLow          = 15.0
	defaultDispersionBandHigh         = 30.0
	defaultDirectionBiasThreshold     = 5.0
	defaultMissedFrameCoastLimit      = 3
	defaultCoastEmitMinConfidence     = 0.4
	defaultBoxHoldFrames              = 3
	defaultBoxExpireFrames            = 5
	defaultDetectionHistorySize       = 10
	defaultDetectorTimeout            = 1500 * time.Millisecond
	defaultTickInterval               = 100 * time.Millisecond
)

// TuningConfig represents the root configuration for tracking and analysis
// parameters. The schema matches the /api/config endpoint so the same JSON
// can be used for both startup configuration and inspection.
type TuningConfig struct {
	// Session params
	MaxAttempts *int `json:"max_attempts,omitempty"`

	// Detection params
	ConfidenceThreshold  *float64 `json:"confidence_threshold,omitempty"`
	IoUThreshold         *float64 `json:"iou_threshold,omitempty"`
	DetectionHistorySize *int     `json:"detection_history_size,omitempty"`

	// Motion estimator params
	DtClampSeconds             *float64 `json:"dt_clamp_seconds,omitempty"`
	FrictionFactor             *float64 `json:"friction_factor,omitempty"`
	StationarySpeedThreshold   *float64 `json:"stationary_speed_threshold,omitempty"` // px/s
	StationaryFrameThreshold   *int     `json:"stationary_frame_threshold,omitempty"`
	StationaryExtraDamping     *float64 `json:"stationary_extra_damping,omitempty"`
	ConfidenceDecayFactor      *float64 `json:"confidence_decay_factor,omitempty"`
	MinConfidenceForPrediction *float64 `json:"min_confidence_for_prediction,omitempty"`
	JumpDistanceThreshold      *float64 `json:"jump_distance_threshold,omitempty"` // px
	SmoothingAlphaHigh         *float64 `json:"smoothing_alpha_high,omitempty"`
	SmoothingAlphaLow          *float64 `json:"smoothing_alpha_low,omitempty"`

	// Coasting policy params
	MissedFrameCoastLimit  *int     `json:"missed_frame_coast_limit,omitempty"`
	CoastEmitMinConfidence *float64 `json:"coast_emit_min_confidence,omitempty"`
	BoxHoldFrames          *int     `json:"box_hold_frames,omitempty"`
	BoxExpireFrames        *int     `json:"box_expire_frames,omitempty"`

	// Analysis params
	PathSmoothingWindow     *int     `json:"path_smoothing_window,omitempty"`
	AnalysisSmoothingWindow *int     `json:"analysis_smoothing_window,omitempty"` // 0 or 1 analyses raw paths
	DispersionBandLow       *float64 `json:"dispersion_band_low,omitempty"`       // px
	DispersionBandHigh      *float64 `json:"dispersion_band_high,omitempty"`      // px
	DirectionBiasThreshold  *float64 `json:"direction_bias_threshold,omitempty"`

	// Scheduling params
	DetectorTimeout *string `json:"detector_timeout,omitempty"` // duration string like "1500ms"
	TickInterval    *string `json:"tick_interval,omitempty"`    // duration string like "100ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Every Get* accessor falls back to its built-in default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults. Useful for serving the effective config.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		MaxAttempts:                ptrInt(defaultMaxAttempts),
		ConfidenceThreshold:        ptrFloat64(defaultConfidenceThreshold),
		IoUThreshold:               ptrFloat64(defaultIoUThreshold),
		DetectionHistorySize:       ptrInt(defaultDetectionHistorySize),
		DtClampSeconds:             ptrFloat64(defaultDtClampSeconds),
		FrictionFactor:             ptrFloat64(defaultFrictionFactor),
		StationarySpeedThreshold:   ptrFloat64(defaultStationarySpeedThreshold),
		StationaryFrameThreshold:   ptrInt(defaultStationaryFrameThreshold),
		StationaryExtraDamping:     ptrFloat64(defaultStationaryExtraDamping),
		ConfidenceDecayFactor:      ptrFloat64(defaultConfidenceDecayFactor),
		MinConfidenceForPrediction: ptrFloat64(defaultMinConfidenceForPrediction),
		JumpDistanceThreshold:      ptrFloat64(defaultJumpDistanceThreshold),
		SmoothingAlphaHigh:         ptrFloat64(defaultSmoothingAlphaHigh),
		SmoothingAlphaLow:          ptrFloat64(defaultSmoothingAlphaLow),
		MissedFrameCoastLimit:      ptrInt(defaultMissedFrameCoastLimit),
		CoastEmitMinConfidence:     ptrFloat64(defaultCoastEmitMinConfidence),
		BoxHoldFrames:              ptrInt(defaultBoxHoldFrames),
		BoxExpireFrames:            ptrInt(defaultBoxExpireFrames),
		PathSmoothingWindow:        ptrInt(defaultPathSmoothingWindow),
		AnalysisSmoothingWindow:    ptrInt(defaultAnalysisSmoothingWindow),
		DispersionBandLow:          ptrFloat64(defaultDispersionBandLow),
		DispersionBandHigh:         ptrFloat64(defaultDispersionBandHigh),
		DirectionBiasThreshold:     ptrFloat64(defaultDirectionBiasThreshold),
		DetectorTimeout:            ptrString(defaultDetectorTimeout.String()),
		TickInterval:               ptrString(defaultTickInterval.String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func checkUnit(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

func checkPositive(name string, v *int) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, *v)
	}
	return nil
}

func checkDuration(name string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, *v)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	units := []struct {
		name string
		v    *float64
	}{
		{"confidence_threshold", c.ConfidenceThreshold},
		{"iou_threshold", c.IoUThreshold},
		{"friction_factor", c.FrictionFactor},
		{"stationary_extra_damping", c.StationaryExtraDamping},
		{"confidence_decay_factor", c.ConfidenceDecayFactor},
		{"min_confidence_for_prediction", c.MinConfidenceForPrediction},
		{"smoothing_alpha_high", c.SmoothingAlphaHigh},
		{"smoothing_alpha_low", c.SmoothingAlphaLow},
		{"coast_emit_min_confidence", c.CoastEmitMinConfidence},
	}
	for _, u := range units {
		if err := checkUnit(u.name, u.v); err != nil {
			return err
		}
	}

	positives := []struct {
		name string
		v    *int
	}{
		{"max_attempts", c.MaxAttempts},
		{"detection_history_size", c.DetectionHistorySize},
		{"path_smoothing_window", c.PathSmoothingWindow},
	}
	for _, p := range positives {
		if err := checkPositive(p.name, p.v); err != nil {
			return err
		}
	}

	if c.StationaryFrameThreshold != nil && *c.StationaryFrameThreshold < 0 {
		return fmt.Errorf("stationary_frame_threshold must be non-negative, got %d", *c.StationaryFrameThreshold)
	}
	if c.AnalysisSmoothingWindow != nil && *c.AnalysisSmoothingWindow < 0 {
		return fmt.Errorf("analysis_smoothing_window must be non-negative, got %d", *c.AnalysisSmoothingWindow)
	}
	if c.MissedFrameCoastLimit != nil && *c.MissedFrameCoastLimit < 0 {
		return fmt.Errorf("missed_frame_coast_limit must be non-negative, got %d", *c.MissedFrameCoastLimit)
	}
	if c.DtClampSeconds != nil && *c.DtClampSeconds <= 0 {
		return fmt.Errorf("dt_clamp_seconds must be positive, got %f", *c.DtClampSeconds)
	}
	if c.StationarySpeedThreshold != nil && *c.StationarySpeedThreshold < 0 {
		return fmt.Errorf("stationary_speed_threshold must be non-negative, got %f", *c.StationarySpeedThreshold)
	}
	if c.JumpDistanceThreshold != nil && *c.JumpDistanceThreshold < 0 {
		return fmt.Errorf("jump_distance_threshold must be non-negative, got %f", *c.JumpDistanceThreshold)
	}
	if c.GetDispersionBandLow() >= c.GetDispersionBandHigh() {
		return fmt.Errorf("dispersion_band_low (%f) must be below dispersion_band_high (%f)",
			c.GetDispersionBandLow(), c.GetDispersionBandHigh())
	}

	if err := checkDuration("detector_timeout", c.DetectorTimeout); err != nil {
		return err
	}
	if err := checkDuration("tick_interval", c.TickInterval); err != nil {
		return err
	}

	return nil
}

func getFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func getInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func getDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetMaxAttempts returns the number of attempts per session.
func (c *TuningConfig) GetMaxAttempts() int { return getInt(c.MaxAttempts, defaultMaxAttempts) }

// GetConfidenceThreshold returns the detection confidence threshold.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	return getFloat(c.ConfidenceThreshold, defaultConfidenceThreshold)
}

// GetIoUThreshold returns the non-max suppression IoU threshold.
func (c *TuningConfig) GetIoUThreshold() float64 {
	return getFloat(c.IoUThreshold, defaultIoUThreshold)
}

// GetDetectionHistorySize returns the length of the accepted-detection history.
func (c *TuningConfig) GetDetectionHistorySize() int {
	return getInt(c.DetectionHistorySize, defaultDetectionHistorySize)
}

// GetDtClampSeconds returns the upper bound for the estimator time step.
func (c *TuningConfig) GetDtClampSeconds() float64 {
	return getFloat(c.DtClampSeconds, defaultDtClampSeconds)
}

// GetFrictionFactor returns the per-coast velocity decay.
func (c *TuningConfig) GetFrictionFactor() float64 {
	return getFloat(c.FrictionFactor, defaultFrictionFactor)
}

// GetStationarySpeedThreshold returns the speed (px/s) below which a coast counts as stationary.
func (c *TuningConfig) GetStationarySpeedThreshold() float64 {
	return getFloat(c.StationarySpeedThreshold, defaultStationarySpeedThreshold)
}

// GetStationaryFrameThreshold returns the count that stationaryCount must exceed.
func (c *TuningConfig) GetStationaryFrameThreshold() int {
	return getInt(c.StationaryFrameThreshold, defaultStationaryFrameThreshold)
}

// GetStationaryExtraDamping returns the extra velocity damping applied at low speed.
func (c *TuningConfig) GetStationaryExtraDamping() float64 {
	return getFloat(c.StationaryExtraDamping, defaultStationaryExtraDamping)
}

// GetConfidenceDecayFactor returns the per-coast confidence decay.
func (c *TuningConfig) GetConfidenceDecayFactor() float64 {
	return getFloat(c.ConfidenceDecayFactor, defaultConfidenceDecayFactor)
}

// GetMinConfidenceForPrediction returns the confidence a coast requires.
func (c *TuningConfig) GetMinConfidenceForPrediction() float64 {
	return getFloat(c.MinConfidenceForPrediction, defaultMinConfidenceForPrediction)
}

// GetJumpDistanceThreshold returns the distance (px) above which the high alpha is used.
func (c *TuningConfig) GetJumpDistanceThreshold() float64 {
	return getFloat(c.JumpDistanceThreshold, defaultJumpDistanceThreshold)
}

// GetSmoothingAlphaHigh returns the blend factor for large jumps.
func (c *TuningConfig) GetSmoothingAlphaHigh() float64 {
	return getFloat(c.SmoothingAlphaHigh, defaultSmoothingAlphaHigh)
}

// GetSmoothingAlphaLow returns the blend factor for small jumps.
func (c *TuningConfig) GetSmoothingAlphaLow() float64 {
	return getFloat(c.SmoothingAlphaLow, defaultSmoothingAlphaLow)
}

// GetMissedFrameCoastLimit returns how many consecutive misses may emit predictions.
func (c *TuningConfig) GetMissedFrameCoastLimit() int {
	return getInt(c.MissedFrameCoastLimit, defaultMissedFrameCoastLimit)
}

// GetCoastEmitMinConfidence returns the estimator confidence required to emit a prediction.
func (c *TuningConfig) GetCoastEmitMinConfidence() float64 {
	return getFloat(c.CoastEmitMinConfidence, defaultCoastEmitMinConfidence)
}

// GetBoxHoldFrames returns how many missed frames the last box stays displayable.
func (c *TuningConfig) GetBoxHoldFrames() int {
	return getInt(c.BoxHoldFrames, defaultBoxHoldFrames)
}

// GetBoxExpireFrames returns the missed-frame count after which the last box is dropped.
func (c *TuningConfig) GetBoxExpireFrames() int {
	return getInt(c.BoxExpireFrames, defaultBoxExpireFrames)
}

// GetPathSmoothingWindow returns the moving-average window size.
func (c *TuningConfig) GetPathSmoothingWindow() int {
	return getInt(c.PathSmoothingWindow, defaultPathSmoothingWindow)
}

// GetAnalysisSmoothingWindow returns the window applied to paths before
// analysis. Values <= 1 leave paths raw.
func (c *TuningConfig) GetAnalysisSmoothingWindow() int {
	return getInt(c.AnalysisSmoothingWindow, defaultAnalysisSmoothingWindow)
}

// GetDispersionBandLow returns the upper edge (px) of the "excellent" band.
func (c *TuningConfig) GetDispersionBandLow() float64 {
	return getFloat(c.DispersionBandLow, defaultDispersionBandLow)
}

// GetDispersionBandHigh returns the upper edge (px) of the "moderate" band.
func (c *TuningConfig) GetDispersionBandHigh() float64 {
	return getFloat(c.DispersionBandHigh, defaultDispersionBandHigh)
}

// GetDirectionBiasThreshold returns the |direction| (degrees) above which a bias note is added.
func (c *TuningConfig) GetDirectionBiasThreshold() float64 {
	return getFloat(c.DirectionBiasThreshold, defaultDirectionBiasThreshold)
}

// GetDetectorTimeout parses and returns the DetectorTimeout as a time.Duration.
func (c *TuningConfig) GetDetectorTimeout() time.Duration {
	return getDuration(c.DetectorTimeout, defaultDetectorTimeout)
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *TuningConfig) GetTickInterval() time.Duration {
	return getDuration(c.TickInterval, defaultTickInterval)
}
