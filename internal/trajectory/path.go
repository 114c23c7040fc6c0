package trajectory

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// PathPoint is one recorded position. Predicted marks dead-reckoned points.
// Points are values and are never modified once appended.
type PathPoint struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Predicted bool      `json:"predicted"`
	Timestamp time.Time `json:"timestamp"`
}

// HasCoords reports whether both coordinates are finite numbers. Points
// without coordinates are carried through smoothing untouched and make an
// attempt unanalysable when they sit at either end.
func (p PathPoint) HasCoords() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Path is a time-ordered sequence of points for one attempt.
type Path []PathPoint

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// PredictedCount returns the number of dead-reckoned points.
func (p Path) PredictedCount() int {
	n := 0
	for _, pt := range p {
		if pt.Predicted {
			n++
		}
	}
	return n
}

// Length returns the polyline length over points that carry coordinates.
func (p Path) Length() float64 {
	var total float64
	var prev []float64
	for _, pt := range p {
		if !pt.HasCoords() {
			continue
		}
		cur := []float64{pt.X, pt.Y}
		if prev != nil {
			total += floats.Distance(prev, cur, 2)
		}
		prev = cur
	}
	return total
}

// Smooth returns a centered moving average of p over windowSize points.
// The window is clipped at the ends, so boundary points average over fewer
// neighbours; neighbours without coordinates are skipped and points without
// coordinates pass through unchanged. Paths shorter than the window, or a
// window of one, are returned as an unmodified copy.
func Smooth(p Path, windowSize int) Path {
	if windowSize <= 1 || len(p) < windowSize {
		return p.Clone()
	}

	half := windowSize / 2
	out := make(Path, len(p))
	xs := make([]float64, 0, windowSize)
	ys := make([]float64, 0, windowSize)

	for i, pt := range p {
		out[i] = pt
		if !pt.HasCoords() {
			continue
		}

		start := max(0, i-half)
		end := min(len(p), i+half+1)

		xs, ys = xs[:0], ys[:0]
		for _, n := range p[start:end] {
			if n.HasCoords() {
				xs = append(xs, n.X)
				ys = append(ys, n.Y)
			}
		}

		count := float64(len(xs))
		out[i].X = floats.Sum(xs) / count
		out[i].Y = floats.Sum(ys) / count
	}
	return out
}
