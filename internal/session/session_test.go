package session

import (
	"encoding/json"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/detection"
	"github.com/banshee-data/putt.report/internal/detector"
	"github.com/banshee-data/putt.report/internal/monitoring"
	"github.com/banshee-data/putt.report/internal/timeutil"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

const frameStep = 100 * time.Millisecond

// ball returns a valid detection centred on (x, y).
func ball(x, y, conf float64) detection.Detection {
	return detection.Detection{X: x, Y: y, Box: []float64{x - 5, y - 5, x + 5, y + 5}, Confidence: conf}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func newTestSession(t *testing.T, det detector.Detector) (*Session, *timeutil.MockClock, *eventLog) {
	t.Helper()
	return newTestSessionWithTuning(t, config.EmptyTuningConfig(), det)
}

func newTestSessionWithTuning(t *testing.T, tuning *config.TuningConfig, det detector.Detector) (*Session, *timeutil.MockClock, *eventLog) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	s := New(tuning, det, clock)
	log := &eventLog{}
	s.Subscribe(log.listen)
	return s, clock, log
}

// recordAttempt runs one attempt that detects the ball at each position in
// turn, one frame apart.
func recordAttempt(t *testing.T, s *Session, clock *timeutil.MockClock, positions ...[2]float64) trajectory.EndResult {
	t.Helper()
	require.NoError(t, s.StartAttempt())
	for _, p := range positions {
		require.NoError(t, s.Ingest([]detection.Detection{ball(p[0], p[1], 0.9)}))
		clock.Advance(frameStep)
	}
	res, err := s.StopAttempt()
	require.NoError(t, err)
	return res
}

// ---------------------------------------------------------------------------
// Attempt lifecycle
// ---------------------------------------------------------------------------

func TestStartStop_StoresAttempt(t *testing.T) {
	s, clock, log := newTestSession(t, nil)

	res := recordAttempt(t, s, clock, [2]float64{320, 400}, [2]float64{320, 380})
	assert.Equal(t, trajectory.AttemptStored, res)

	want := []EventKind{EventAttemptStarted, EventPointAdded, EventPointAdded, EventAttemptCompleted}
	if diff := cmp.Diff(want, log.kinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	done := log.last()
	assert.Equal(t, 1, done.Attempt)
	require.Len(t, done.Path, 2)
	assert.Equal(t, 400.0, done.Path[0].Y)
	// Jump of 20px > 15px so the high alpha applies: 0.8*380 + 0.2*400.
	assert.InDelta(t, 384.0, done.Path[1].Y, 1e-9)

	snap := s.Snapshot()
	assert.False(t, snap.Recording)
	assert.Equal(t, 1, snap.Attempts)
	assert.Empty(t, snap.CurrentPath)
}

func TestStopAttempt_DiscardsShortPath(t *testing.T) {
	s, clock, log := newTestSession(t, nil)

	res := recordAttempt(t, s, clock, [2]float64{320, 400})
	assert.Equal(t, trajectory.AttemptTooShort, res)
	assert.Equal(t, EventAttemptDiscarded, log.last().Kind)
	assert.Equal(t, trajectory.AttemptTooShort, log.last().Reason)
	assert.Empty(t, s.Completed())
}

func TestStopAttempt_NotRecording(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	_, err := s.StopAttempt()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestStartAttempt_AlreadyRecording(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())
	assert.ErrorIs(t, s.StartAttempt(), ErrAlreadyRecording)
}

func TestToggle(t *testing.T) {
	s, _, log := newTestSession(t, nil)

	require.NoError(t, s.Toggle())
	assert.True(t, s.Recording())
	require.NoError(t, s.Toggle())
	assert.False(t, s.Recording())

	want := []EventKind{EventAttemptStarted, EventAttemptDiscarded}
	if diff := cmp.Diff(want, log.kinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestFullSession_Analysed(t *testing.T) {
	s, clock, log := newTestSession(t, nil)

	_, err := s.Result()
	assert.ErrorIs(t, err, analysis.ErrNotReady)

	for i := 0; i < 3; i++ {
		recordAttempt(t, s, clock, [2]float64{320, 400}, [2]float64{320, 300})
	}

	done := log.last()
	require.Equal(t, EventSessionCompleted, done.Kind)
	require.NotNil(t, done.Result)
	assert.Len(t, done.Completed, 3)
	assert.Equal(t, s.ID(), done.SessionID)
	require.NotNil(t, done.Canvas)
	assert.Equal(t, DefaultCanvas, *done.Canvas)

	res, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.AverageDirectionDeg)
	assert.Equal(t, 0.0, res.AverageDispersionPx)
	assert.Equal(t, analysis.RecommendExcellent, res.Recommendation)

	assert.ErrorIs(t, s.StartAttempt(), ErrSessionComplete)

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.Attempts)
	assert.Equal(t, 3, snap.MaxAttempts)
	require.NotNil(t, snap.Result)
}

func TestFullSession_AnalysesAgainstCanvasCentre(t *testing.T) {
	s, clock, _ := newTestSession(t, nil)
	require.NoError(t, s.SetCanvas(Canvas{Width: 400, Height: 600}))

	// Ball ends 20px right of the centre line every time.
	for i := 0; i < 3; i++ {
		recordAttempt(t, s, clock, [2]float64{200, 500}, [2]float64{220, 500}, [2]float64{220, 500})
	}

	res, err := s.Result()
	require.NoError(t, err)
	assert.Greater(t, res.AverageDispersionPx, 15.0)
	assert.Contains(t, res.Recommendation, analysis.RecommendModerateDispersion)
}

func TestReset(t *testing.T) {
	s, clock, log := newTestSession(t, nil)
	oldID := s.ID()

	recordAttempt(t, s, clock, [2]float64{1, 2}, [2]float64{3, 4})
	require.NoError(t, s.StartAttempt())
	require.NoError(t, s.Ingest([]detection.Detection{ball(5, 5, 0.9)}))

	s.Reset()

	assert.NotEqual(t, oldID, s.ID())
	assert.False(t, s.Recording())
	assert.Empty(t, s.Completed())
	assert.Equal(t, EventSessionReset, log.last().Kind)

	snap := s.Snapshot()
	assert.Empty(t, snap.CurrentPath)
	assert.Nil(t, snap.Box)
	assert.Equal(t, 0.0, snap.TrackingConfidence)
}

// ---------------------------------------------------------------------------
// Ingest and coasting
// ---------------------------------------------------------------------------

func TestIngest_NotRecording(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	assert.ErrorIs(t, s.Ingest([]detection.Detection{ball(1, 1, 0.9)}), ErrNotRecording)
}

func TestIngest_RejectsInvalid(t *testing.T) {
	s, _, log := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())

	require.NoError(t, s.Ingest([]detection.Detection{
		ball(10, 10, 0.2),
		{X: 20, Y: 20, Box: []float64{1, 2, 3}, Confidence: 0.9},
	}))
	assert.Equal(t, []EventKind{EventAttemptStarted}, log.kinds(), "nothing valid, estimator uninitialized")
}

func TestIngest_NonFiniteDetectionIsAMiss(t *testing.T) {
	s, clock, _ := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())

	require.NoError(t, s.Ingest([]detection.Detection{ball(100, 100, 0.9)}))
	clock.Advance(frameStep)
	require.NoError(t, s.Ingest([]detection.Detection{ball(math.NaN(), 100, 0.9)}))
	for i := 0; i < 3; i++ {
		clock.Advance(frameStep)
		require.NoError(t, s.Ingest([]detection.Detection{ball(120, 100, 0.9)}))
	}

	snap := s.Snapshot()
	require.NotEmpty(t, snap.CurrentPath)
	for i, p := range snap.CurrentPath {
		assert.True(t, p.HasCoords(), "point %d is %+v", i, p)
	}
	assert.InDelta(t, 120, snap.CurrentPath[len(snap.CurrentPath)-1].X, 5)

	_, err := json.Marshal(snap)
	assert.NoError(t, err)
}

func TestIngest_SelectsBest(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())

	require.NoError(t, s.Ingest([]detection.Detection{ball(10, 10, 0.5), ball(99, 77, 0.95), ball(50, 50, 0.6)}))
	snap := s.Snapshot()
	require.Len(t, snap.CurrentPath, 1)
	assert.Equal(t, 99.0, snap.CurrentPath[0].X)
	assert.Equal(t, 77.0, snap.CurrentPath[0].Y)
	require.NotNil(t, snap.Box)
	assert.Equal(t, 0.95, snap.Box.Confidence)
	assert.Equal(t, 100.0, snap.TrackingConfidence)
}

func TestIngest_MissesCoastThenStop(t *testing.T) {
	s, clock, log := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())

	require.NoError(t, s.Ingest([]detection.Detection{ball(320, 400, 0.9)}))
	clock.Advance(frameStep)
	require.NoError(t, s.Ingest([]detection.Detection{ball(320, 380, 0.9)}))

	for i := 0; i < 6; i++ {
		clock.Advance(frameStep)
		require.NoError(t, s.Ingest(nil))

		snap := s.Snapshot()
		if i < 2 {
			assert.NotNil(t, snap.Box, "box held after %d misses", i+1)
		} else {
			assert.Nil(t, snap.Box, "box hidden after %d misses", i+1)
		}
	}

	snap := s.Snapshot()
	require.Len(t, snap.CurrentPath, 5, "two detections plus three predictions")
	assert.Equal(t, 3, snap.PredictedCount)
	for _, p := range snap.CurrentPath[2:] {
		assert.True(t, p.Predicted)
	}
	// Moving up the screen, so predictions continue upwards.
	assert.Less(t, snap.CurrentPath[2].Y, snap.CurrentPath[1].Y)
	assert.Less(t, snap.CurrentPath[4].Y, snap.CurrentPath[3].Y)

	predicted := 0
	for _, k := range log.kinds() {
		if k == EventPointPredicted {
			predicted++
		}
	}
	assert.Equal(t, 3, predicted)
	assert.Nil(t, s.lastBox, "box forgotten after expiry")
}

func TestIngest_DetectionResetsMissCount(t *testing.T) {
	s, clock, _ := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())

	require.NoError(t, s.Ingest([]detection.Detection{ball(100, 100, 0.9)}))
	for i := 0; i < 3; i++ {
		clock.Advance(frameStep)
		require.NoError(t, s.Ingest(nil))
	}
	clock.Advance(frameStep)
	require.NoError(t, s.Ingest([]detection.Detection{ball(100, 90, 0.9)}))
	clock.Advance(frameStep)
	require.NoError(t, s.Ingest(nil))

	snap := s.Snapshot()
	assert.Equal(t, 4, snap.PredictedCount)
	assert.NotNil(t, snap.Box)
}

func TestIngest_NoPredictionBeforeFirstDetection(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Ingest(nil))
	}
	assert.Empty(t, s.Snapshot().CurrentPath)
}

func TestAddManualPoint(t *testing.T) {
	s, _, log := newTestSession(t, nil)
	assert.ErrorIs(t, s.AddManualPoint(1, 2), ErrNotRecording)

	require.NoError(t, s.StartAttempt())
	require.NoError(t, s.AddManualPoint(100, 200))

	ev := log.last()
	require.Equal(t, EventPointAdded, ev.Kind)
	require.NotNil(t, ev.Point)
	assert.Equal(t, trajectory.PathPoint{X: 100, Y: 200, Timestamp: epoch}, *ev.Point)
}

func TestSnapshotGeometry(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	assert.Error(t, s.SetCanvas(Canvas{Width: 0, Height: 100}))
	require.NoError(t, s.SetCanvas(Canvas{Width: 800, Height: 500}))

	snap := s.Snapshot()
	assert.Equal(t, 400.0, snap.ReferenceX)
	assert.Equal(t, 400.0, snap.StartMarker.X)
	assert.Equal(t, 400.0, snap.StartMarker.Y)
	assert.NotEmpty(t, snap.SessionID)
}

func TestConfigFromTuning(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MissedFrameCoastLimit)
	assert.Equal(t, 0.4, cfg.CoastEmitMinConfidence)
	assert.Equal(t, 3, cfg.BoxHoldFrames)
	assert.Equal(t, 5, cfg.BoxExpireFrames)
	assert.Equal(t, 10, cfg.DetectionHistorySize)
	assert.Equal(t, 1500*time.Millisecond, cfg.DetectorTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
}

func TestCanvasScale(t *testing.T) {
	c := Canvas{Width: 640, Height: 480}
	sx, sy := c.scale(1280, 960)
	assert.Equal(t, 0.5, sx)
	assert.Equal(t, 0.5, sy)

	sx, sy = c.scale(0, 0)
	assert.Equal(t, 1.0, sx)
	assert.Equal(t, 1.0, sy)
}

func TestHistoryBounded(t *testing.T) {
	s, clock, _ := newTestSession(t, nil)
	require.NoError(t, s.StartAttempt())
	for i := 0; i < 15; i++ {
		require.NoError(t, s.Ingest([]detection.Detection{ball(100, float64(400-i), 0.9)}))
		clock.Advance(frameStep)
	}
	assert.Equal(t, 10, s.history.Len())
}
