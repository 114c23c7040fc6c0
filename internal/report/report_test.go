package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

func samplePaths() Paths {
	t0 := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	attempt := func(dx float64) trajectory.Path {
		return trajectory.Path{
			{X: 320, Y: 400, Timestamp: t0},
			{X: 320 + dx/2, Y: 300, Timestamp: t0.Add(100 * time.Millisecond)},
			{X: 320 + dx, Y: 200, Predicted: true, Timestamp: t0.Add(200 * time.Millisecond)},
		}
	}
	return Paths{
		Title:      "Putt session",
		Width:      640,
		Height:     480,
		ReferenceX: 320,
		Attempts:   []trajectory.Path{attempt(-10), attempt(0), attempt(20)},
		Current:    trajectory.Path{{X: 330, Y: 420, Timestamp: t0}, {X: math.NaN(), Y: math.NaN()}},
		Result: &analysis.SessionResult{
			AverageDirectionDeg: 1.9,
			AverageDispersionPx: 10,
			Recommendation:      analysis.RecommendExcellent,
			Attempts: []analysis.PuttMetrics{
				{DirectionDeg: -2.9, DispersionPx: 10},
				{DirectionDeg: 0, DispersionPx: 0},
				{DirectionDeg: 5.7, DispersionPx: 20},
			},
		},
	}
}

func TestSavePathsPNG(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "nested", "paths.png")
	require.NoError(t, SavePathsPNG(out, samplePaths()))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWritePathsPNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WritePathsPNG(&buf, samplePaths()))
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), buf.Bytes()[:8])
}

func TestWritePathsPNG_EmptyAttempts(t *testing.T) {
	t.Parallel()

	p := samplePaths()
	p.Attempts = nil
	p.Current = nil
	var buf bytes.Buffer
	require.NoError(t, WritePathsPNG(&buf, p))
	assert.Greater(t, buf.Len(), 0)
}

func TestRenderPathsChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderPathsChart(&buf, samplePaths()))

	html := buf.String()
	assert.Contains(t, html, "attempt 1")
	assert.Contains(t, html, "attempt 3")
	assert.Contains(t, html, "current")
	assert.Contains(t, html, "reference")
	assert.Contains(t, html, "Dispersion per attempt")
}

func TestRenderPathsChart_NoResult(t *testing.T) {
	t.Parallel()

	p := samplePaths()
	p.Result = nil
	var buf bytes.Buffer
	require.NoError(t, RenderPathsChart(&buf, p))
	assert.NotContains(t, buf.String(), "Dispersion per attempt")
}

func TestRenderRejectsEmptyCanvas(t *testing.T) {
	t.Parallel()

	p := samplePaths()
	p.Width = 0
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderPathsChart(&buf, p), ErrNoCanvas)
	assert.ErrorIs(t, WritePathsPNG(&buf, p), ErrNoCanvas)
	assert.Zero(t, buf.Len())
}

func TestHexColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#1f77b4", hexColor(attemptColor(0)))
	assert.Equal(t, hexColor(attemptColor(0)), hexColor(attemptColor(len(attemptColors))))
}
