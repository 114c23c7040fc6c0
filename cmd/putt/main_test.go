package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/detector"
	"github.com/banshee-data/putt.report/internal/timeutil"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, ":8080", *listen)
	assert.Equal(t, "putt.db", *dbPath)
	assert.Equal(t, "none", *detectorMode)
	assert.Equal(t, 640.0, *canvasWidth)
	assert.Equal(t, 480.0, *canvasHeight)
	assert.True(t, *debugRoutes)
}

func TestBuildDetector(t *testing.T) {
	tuning := config.EmptyTuningConfig()
	clock := timeutil.RealClock{}

	t.Run("none", func(t *testing.T) {
		setup, err := buildDetector("none", tuning, clock)
		require.NoError(t, err)
		assert.Nil(t, setup.detector)
		assert.Nil(t, setup.source)
	})

	t.Run("http", func(t *testing.T) {
		setup, err := buildDetector("http", tuning, clock)
		require.NoError(t, err)
		assert.IsType(t, &detector.HTTPDetector{}, setup.detector)
		require.NotNil(t, setup.frames)
		assert.Equal(t, setup.frames, setup.source)
	})

	t.Run("local", func(t *testing.T) {
		setup, err := buildDetector("local", tuning, clock)
		require.NoError(t, err)
		assert.IsType(t, &detector.LocalDetector{}, setup.detector)
		assert.NotNil(t, setup.frames)
	})

	t.Run("replay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replay.jsonl")
		require.NoError(t, os.WriteFile(path, []byte("{\"detections\":[]}\n\n"), 0o644))

		old := *replayPath
		*replayPath = path
		defer func() { *replayPath = old }()

		setup, err := buildDetector("replay", tuning, clock)
		require.NoError(t, err)
		rd, ok := setup.detector.(*detector.ReplayDetector)
		require.True(t, ok)
		assert.Equal(t, 2, rd.Len())
		assert.IsType(t, &detector.BlankSource{}, setup.source)
		assert.Nil(t, setup.frames)
	})

	t.Run("replay without file", func(t *testing.T) {
		_, err := buildDetector("replay", tuning, clock)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := buildDetector("camera", tuning, clock)
		assert.ErrorContains(t, err, "camera")
	})
}

func TestLoadTuning(t *testing.T) {
	cfg, err := loadTuning("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GetMaxAttempts())

	_, err = loadTuning(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
