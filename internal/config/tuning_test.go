package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	// Test that defaults are set via pointers
	if cfg.MaxAttempts == nil || *cfg.MaxAttempts != 3 {
		t.Errorf("Expected MaxAttempts 3, got %v", cfg.MaxAttempts)
	}
	if cfg.DetectorTimeout == nil || *cfg.DetectorTimeout != "1.5s" {
		t.Errorf("Expected DetectorTimeout '1.5s', got %v", cfg.DetectorTimeout)
	}

	// Test getter methods
	assert.Equal(t, 0.25, cfg.GetConfidenceThreshold())
	assert.Equal(t, 0.45, cfg.GetIoUThreshold())
	assert.Equal(t, 0.2, cfg.GetDtClampSeconds())
	assert.Equal(t, 0.92, cfg.GetFrictionFactor())
	assert.Equal(t, 5, cfg.GetStationaryFrameThreshold())
	assert.Equal(t, 0, cfg.GetAnalysisSmoothingWindow())
	assert.Equal(t, 1500*time.Millisecond, cfg.GetDetectorTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.GetTickInterval())
	require.NoError(t, cfg.Validate())
}

func TestEmptyConfigMatchesDefaults(t *testing.T) {
	empty := EmptyTuningConfig()
	full := DefaultTuningConfig()

	assert.Equal(t, full.GetMaxAttempts(), empty.GetMaxAttempts())
	assert.Equal(t, full.GetConfidenceDecayFactor(), empty.GetConfidenceDecayFactor())
	assert.Equal(t, full.GetMinConfidenceForPrediction(), empty.GetMinConfidenceForPrediction())
	assert.Equal(t, full.GetJumpDistanceThreshold(), empty.GetJumpDistanceThreshold())
	assert.Equal(t, full.GetSmoothingAlphaHigh(), empty.GetSmoothingAlphaHigh())
	assert.Equal(t, full.GetSmoothingAlphaLow(), empty.GetSmoothingAlphaLow())
	assert.Equal(t, full.GetPathSmoothingWindow(), empty.GetPathSmoothingWindow())
	assert.Equal(t, full.GetAnalysisSmoothingWindow(), empty.GetAnalysisSmoothingWindow())
	assert.Equal(t, full.GetDispersionBandLow(), empty.GetDispersionBandLow())
	assert.Equal(t, full.GetDispersionBandHigh(), empty.GetDispersionBandHigh())
	assert.Equal(t, full.GetDirectionBiasThreshold(), empty.GetDirectionBiasThreshold())
	assert.Equal(t, full.GetMissedFrameCoastLimit(), empty.GetMissedFrameCoastLimit())
	assert.Equal(t, full.GetCoastEmitMinConfidence(), empty.GetCoastEmitMinConfidence())
	assert.Equal(t, full.GetBoxHoldFrames(), empty.GetBoxHoldFrames())
	assert.Equal(t, full.GetBoxExpireFrames(), empty.GetBoxExpireFrames())
	assert.Equal(t, full.GetDetectionHistorySize(), empty.GetDetectionHistorySize())
	assert.Equal(t, full.GetStationaryExtraDamping(), empty.GetStationaryExtraDamping())
	assert.Equal(t, full.GetStationarySpeedThreshold(), empty.GetStationarySpeedThreshold())
	assert.Equal(t, full.GetDetectorTimeout(), empty.GetDetectorTimeout())
	assert.Equal(t, full.GetTickInterval(), empty.GetTickInterval())
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "max_attempts": 5,
  "confidence_threshold": 0.4,
  "detector_timeout": "2s",
  "dispersion_band_low": 10,
  "analysis_smoothing_window": 5
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.GetMaxAttempts())
	assert.Equal(t, 0.4, cfg.GetConfidenceThreshold())
	assert.Equal(t, 2*time.Second, cfg.GetDetectorTimeout())
	assert.Equal(t, 10.0, cfg.GetDispersionBandLow())
	assert.Equal(t, 5, cfg.GetAnalysisSmoothingWindow())
	// Omitted fields fall back to defaults.
	assert.Equal(t, 0.45, cfg.GetIoUThreshold())
	assert.Equal(t, 100*time.Millisecond, cfg.GetTickInterval())
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("/tmp/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json")
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "confidence_threshold": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)

	defaults := DefaultTuningConfig()
	assert.Equal(t, defaults.GetMaxAttempts(), cfg.GetMaxAttempts())
	assert.Equal(t, defaults.GetConfidenceThreshold(), cfg.GetConfidenceThreshold())
	assert.Equal(t, defaults.GetDetectorTimeout(), cfg.GetDetectorTimeout())
	assert.Equal(t, defaults.GetDispersionBandHigh(), cfg.GetDispersionBandHigh())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     DefaultTuningConfig(),
			wantErr: false,
		},
		{
			name:    "empty config is valid",
			cfg:     &TuningConfig{},
			wantErr: false,
		},
		{
			name:    "confidence threshold above one",
			cfg:     &TuningConfig{ConfidenceThreshold: ptrFloat64(1.5)},
			wantErr: true,
		},
		{
			name:    "negative iou threshold",
			cfg:     &TuningConfig{IoUThreshold: ptrFloat64(-0.1)},
			wantErr: true,
		},
		{
			name:    "zero max attempts",
			cfg:     &TuningConfig{MaxAttempts: ptrInt(0)},
			wantErr: true,
		},
		{
			name:    "zero dt clamp",
			cfg:     &TuningConfig{DtClampSeconds: ptrFloat64(0)},
			wantErr: true,
		},
		{
			name:    "inverted dispersion bands",
			cfg:     &TuningConfig{DispersionBandLow: ptrFloat64(40)},
			wantErr: true,
		},
		{
			name:    "invalid detector timeout",
			cfg:     &TuningConfig{DetectorTimeout: ptrString("invalid")},
			wantErr: true,
		},
		{
			name:    "negative tick interval",
			cfg:     &TuningConfig{TickInterval: ptrString("-100ms")},
			wantErr: true,
		},
		{
			name:    "negative analysis smoothing window",
			cfg:     &TuningConfig{AnalysisSmoothingWindow: ptrInt(-1)},
			wantErr: true,
		},
		{
			name:    "negative coast limit",
			cfg:     &TuningConfig{MissedFrameCoastLimit: ptrInt(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetTickInterval(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TuningConfig
		want time.Duration
	}{
		{"unset", &TuningConfig{}, 100 * time.Millisecond},
		{"empty string", &TuningConfig{TickInterval: ptrString("")}, 100 * time.Millisecond},
		{"explicit", &TuningConfig{TickInterval: ptrString("250ms")}, 250 * time.Millisecond},
		{"unparsable falls back", &TuningConfig{TickInterval: ptrString("soon")}, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetTickInterval(); got != tt.want {
				t.Errorf("GetTickInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}
