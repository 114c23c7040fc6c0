package analysis

import (
	"fmt"

	"github.com/banshee-data/putt.report/internal/trajectory"
)

// Analyzer summarises a full set of completed attempts.
type Analyzer struct {
	Config Config
}

// NewAnalyzer creates an Analyzer with the given configuration.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{Config: cfg}
}

// Summarize analyses every completed path against referenceX and returns
// the session result. It refuses partially filled sessions and sessions
// where no attempt could be analysed, returning ErrNotReady.
func (a *Analyzer) Summarize(paths []trajectory.Path, referenceX float64) (SessionResult, error) {
	if len(paths) < a.Config.MaxAttempts {
		return SessionResult{}, fmt.Errorf("%w: %d of %d attempts", ErrNotReady, len(paths), a.Config.MaxAttempts)
	}

	var metrics []PuttMetrics
	for _, p := range paths {
		if a.Config.SmoothingWindow > 1 {
			p = trajectory.Smooth(p, a.Config.SmoothingWindow)
		}
		if m, ok := Analyze(p, referenceX); ok {
			metrics = append(metrics, m)
		}
	}

	agg, ok := AggregateMetrics(metrics)
	if !ok {
		return SessionResult{}, fmt.Errorf("%w: no analysable attempts", ErrNotReady)
	}

	return SessionResult{
		AverageDirectionDeg: Round1(agg.AverageDirectionDeg),
		AverageDispersionPx: Round1(agg.AverageDispersionPx),
		Recommendation:      Classify(a.Config, agg.AverageDispersionPx, agg.AverageDirectionDeg),
		Attempts:            metrics,
	}, nil
}
