package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/putt.report/internal/trajectory"
)

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 6 * vg.Inch
)

// newPathsPlot builds the plot: one line per attempt, predicted points as
// hollow markers and the reference line dashed.
func newPathsPlot(p Paths) (*plot.Plot, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = "X (px)"
	pl.Y.Label.Text = "Distance from player (px)"
	pl.X.Min, pl.X.Max = 0, p.Width
	pl.Y.Min, pl.Y.Max = 0, p.Height
	pl.Add(plotter.NewGrid())

	ref, err := plotter.NewLine(plotter.XYs{{X: p.ReferenceX, Y: 0}, {X: p.ReferenceX, Y: p.Height}})
	if err != nil {
		return nil, fmt.Errorf("reference line: %w", err)
	}
	ref.Color = color.Gray{Y: 128}
	ref.Width = vg.Points(1)
	ref.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	pl.Add(ref)
	pl.Legend.Add("reference", ref)

	for i, path := range p.Attempts {
		if err := addPath(pl, p, path, fmt.Sprintf("attempt %d", i+1), attemptColor(i)); err != nil {
			return nil, err
		}
	}
	if len(p.Current) > 0 {
		if err := addPath(pl, p, p.Current, "current", color.RGBA{A: 0xff}); err != nil {
			return nil, err
		}
	}

	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10
	return pl, nil
}

func addPath(pl *plot.Plot, p Paths, path trajectory.Path, label string, c color.RGBA) error {
	var all, predicted plotter.XYs
	for _, pt := range path {
		if !pt.HasCoords() {
			continue
		}
		xy := plotter.XY{X: pt.X, Y: p.flipY(pt.Y)}
		all = append(all, xy)
		if pt.Predicted {
			predicted = append(predicted, xy)
		}
	}
	if len(all) == 0 {
		return nil
	}

	line, points, err := plotter.NewLinePoints(all)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	points.Color = c
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(2)
	pl.Add(line, points)
	pl.Legend.Add(label, line)

	if len(predicted) > 0 {
		pred, err := plotter.NewScatter(predicted)
		if err != nil {
			return fmt.Errorf("%s predicted: %w", label, err)
		}
		pred.Color = c
		pred.Shape = draw.RingGlyph{}
		pred.Radius = vg.Points(4)
		pl.Add(pred)
	}
	return nil
}

// WritePathsPNG renders p as a PNG to w.
func WritePathsPNG(w io.Writer, p Paths) error {
	pl, err := newPathsPlot(p)
	if err != nil {
		return err
	}
	wt, err := pl.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePathsPNG renders p to path, creating parent directories.
func SavePathsPNG(path string, p Paths) error {
	pl, err := newPathsPlot(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := pl.Save(pngWidth, pngHeight, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
