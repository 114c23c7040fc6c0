// Package report renders completed attempt paths as a PNG plot or an
// interactive HTML chart.
package report

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

// ErrNoCanvas is returned when the paths have no usable coordinate space.
var ErrNoCanvas = errors.New("report: canvas dimensions must be positive")

// Paths is everything drawn on one chart. Coordinates are screen pixels
// with y growing downwards; renderers flip y so "away from the player" is up.
type Paths struct {
	Title      string
	Width      float64
	Height     float64
	ReferenceX float64
	Attempts   []trajectory.Path
	Current    trajectory.Path
	Result     *analysis.SessionResult
}

func (p Paths) validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return ErrNoCanvas
	}
	return nil
}

// flipY maps a screen y onto a chart y.
func (p Paths) flipY(y float64) float64 { return p.Height - y }

func (p Paths) subtitle() string {
	if p.Result == nil {
		return fmt.Sprintf("attempts=%d", len(p.Attempts))
	}
	return fmt.Sprintf("attempts=%d avg direction=%.1f° avg dispersion=%.1fpx",
		len(p.Attempts), p.Result.AverageDirectionDeg, p.Result.AverageDispersionPx)
}

// attemptColors cycles through a fixed palette.
var attemptColors = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
}

func attemptColor(i int) color.RGBA {
	return attemptColors[i%len(attemptColors)]
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
