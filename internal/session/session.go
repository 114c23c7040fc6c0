// Package session drives one putting session: it runs detection rounds on a
// tick, feeds the best detection (or a miss) through the motion estimator,
// records attempt paths and analyses the session once every attempt is in.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/detection"
	"github.com/banshee-data/putt.report/internal/detector"
	"github.com/banshee-data/putt.report/internal/monitoring"
	"github.com/banshee-data/putt.report/internal/motion"
	"github.com/banshee-data/putt.report/internal/timeutil"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

var (
	// ErrSessionComplete is returned when an attempt is started after the
	// session already holds its full set of attempts.
	ErrSessionComplete = errors.New("session: all attempts recorded")
	// ErrNotRecording is returned by operations that need an attempt in
	// progress.
	ErrNotRecording = errors.New("session: not recording")
	// ErrAlreadyRecording is returned by StartAttempt during an attempt.
	ErrAlreadyRecording = errors.New("session: already recording")
)

var logf = monitoring.Component("session")

// LastBox is the most recent accepted detection box, in canvas space.
type LastBox struct {
	Box        detection.Box `json:"box"`
	Confidence float64       `json:"confidence"`
}

// Session owns exactly one estimator/recorder pair. All methods are safe for
// concurrent use.
type Session struct {
	Config Config

	clock     timeutil.Clock
	detector  detector.Detector
	validator *detection.Validator
	analyzer  *analysis.Analyzer

	inFlight atomic.Bool
	skipped  atomic.Uint64

	mu                   sync.Mutex
	id                   string
	canvas               Canvas
	recording            bool
	generation           uint64 // Bumped on start/stop/reset so late detector replies are dropped
	estimator            *motion.Estimator
	recorder             *trajectory.Recorder
	history              *detection.History
	framesSinceDetection int
	lastBox              *LastBox
	result               *analysis.SessionResult
	listeners            []Listener
}

// New creates an idle session. A nil clock uses the wall clock; a nil
// detector never finds anything, leaving Ingest as the only input.
func New(tuning *config.TuningConfig, det detector.Detector, clock timeutil.Clock) *Session {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if det == nil {
		det = detector.Func(func(context.Context, detector.Frame) ([]detection.Detection, error) {
			return nil, nil
		})
	}
	cfg := ConfigFromTuning(tuning)
	return &Session{
		Config:    cfg,
		clock:     clock,
		detector:  det,
		validator: detection.NewValidator(detection.ValidatorConfigFromTuning(tuning)),
		analyzer:  analysis.NewAnalyzer(analysis.ConfigFromTuning(tuning)),
		id:        uuid.NewString(),
		canvas:    DefaultCanvas,
		estimator: motion.NewEstimator(motion.ConfigFromTuning(tuning), clock),
		recorder:  trajectory.NewRecorder(trajectory.RecorderConfigFromTuning(tuning)),
		history:   detection.NewHistory(cfg.DetectionHistorySize),
	}
}

// Subscribe registers a listener for all subsequent events.
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// ID returns the current session identifier. Reset assigns a new one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetCanvas sets the coordinate space for subsequent points and analysis.
func (s *Session) SetCanvas(c Canvas) error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.New("session: canvas dimensions must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas = c
	return nil
}

// Canvas returns the current coordinate space.
func (s *Session) Canvas() Canvas {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas
}

// Recording reports whether an attempt is in progress.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// StartAttempt begins a new attempt with a fresh estimator.
func (s *Session) StartAttempt() error {
	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}
	if s.recorder.Full() {
		s.mu.Unlock()
		return ErrSessionComplete
	}
	s.recording = true
	s.generation++
	s.resetAttemptLocked()
	events := []Event{s.eventLocked(EventAttemptStarted)}
	listeners := s.listeners
	s.mu.Unlock()

	logf("attempt %d started", events[0].Attempt)
	emit(listeners, events)
	return nil
}

// StopAttempt ends the attempt in progress. Paths with fewer than two
// points are discarded. Storing the final attempt triggers analysis.
func (s *Session) StopAttempt() (trajectory.EndResult, error) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return "", ErrNotRecording
	}
	s.recording = false
	s.generation++

	attempt := s.recorder.CompletedCount() + 1
	path, res := s.recorder.EndAttempt()
	s.resetAttemptLocked()

	kind := EventAttemptDiscarded
	if res == trajectory.AttemptStored {
		kind = EventAttemptCompleted
	}
	ev := s.eventLocked(kind)
	ev.Attempt = attempt
	ev.Path = path
	ev.Reason = res
	events := []Event{ev}

	if res == trajectory.AttemptStored && s.recorder.Full() {
		completed := s.recorder.Completed()
		result, err := s.analyzer.Summarize(completed, s.canvas.ReferenceX())
		if err != nil {
			logf("session %s not analysed: %v", s.id, err)
		} else {
			s.result = &result
			done := s.eventLocked(EventSessionCompleted)
			done.Attempt = attempt
			done.Completed = completed
			done.Result = &result
			canvas := s.canvas
			done.Canvas = &canvas
			events = append(events, done)
		}
	}
	listeners := s.listeners
	s.mu.Unlock()

	logf("attempt %d %s with %d points", attempt, res, len(path))
	emit(listeners, events)
	return res, nil
}

// Toggle stops the attempt in progress or starts a new one.
func (s *Session) Toggle() error {
	if s.Recording() {
		_, err := s.StopAttempt()
		return err
	}
	return s.StartAttempt()
}

// Reset abandons everything and starts a new session with a new ID.
func (s *Session) Reset() {
	s.mu.Lock()
	s.recording = false
	s.generation++
	s.recorder.ResetSession()
	s.resetAttemptLocked()
	s.result = nil
	s.id = uuid.NewString()
	events := []Event{s.eventLocked(EventSessionReset)}
	listeners := s.listeners
	s.mu.Unlock()

	logf("session reset, new id %s", events[0].SessionID)
	emit(listeners, events)
}

// Ingest feeds one round of detections, already in canvas coordinates.
// An empty list is a missed frame.
func (s *Session) Ingest(dets []detection.Detection) error {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return ErrNotRecording
	}
	events := s.ingestLocked(dets, 1, 1)
	listeners := s.listeners
	s.mu.Unlock()

	emit(listeners, events)
	return nil
}

// AddManualPoint appends a user-supplied point to the attempt in progress.
func (s *Session) AddManualPoint(x, y float64) error {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return ErrNotRecording
	}
	p := trajectory.PathPoint{X: x, Y: y, Timestamp: s.clock.Now()}
	s.recorder.Append(p)
	ev := s.eventLocked(EventPointAdded)
	ev.Point = &p
	listeners := s.listeners
	s.mu.Unlock()

	emit(listeners, []Event{ev})
	return nil
}

// Result returns the session analysis, or analysis.ErrNotReady until every
// attempt has been recorded.
func (s *Session) Result() (analysis.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return analysis.SessionResult{}, analysis.ErrNotReady
	}
	return *s.result, nil
}

// Completed returns copies of the completed attempts.
func (s *Session) Completed() []trajectory.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Completed()
}

// ingestLocked runs the per-tick pipeline. sx and sy map detector
// coordinates onto the canvas.
func (s *Session) ingestLocked(dets []detection.Detection, sx, sy float64) []Event {
	best, ok := s.validator.SelectBest(dets)
	if !ok {
		return s.missLocked()
	}

	s.framesSinceDetection = 0
	now := s.clock.Now()
	s.history.Push(detection.HistoryEntry{X: best.X, Y: best.Y, Time: now})

	if box, ok := best.Corners(); ok {
		s.lastBox = &LastBox{
			Box:        detection.Box{box[0] * sx, box[1] * sy, box[2] * sx, box[3] * sy},
			Confidence: best.Confidence,
		}
	}

	est := s.estimator.Update(&motion.Point{X: best.X * sx, Y: best.Y * sy})
	if !est.OK {
		return nil
	}
	p := trajectory.PathPoint{X: est.Position.X, Y: est.Position.Y, Timestamp: now}
	s.recorder.Append(p)
	ev := s.eventLocked(EventPointAdded)
	ev.Point = &p
	return []Event{ev}
}

// missLocked coasts the estimator for a few frames after the last
// detection, while it is still confident.
func (s *Session) missLocked() []Event {
	s.framesSinceDetection++
	if s.framesSinceDetection > s.Config.BoxExpireFrames {
		s.lastBox = nil
	}

	if s.framesSinceDetection > s.Config.MissedFrameCoastLimit ||
		s.estimator.Confidence() <= s.Config.CoastEmitMinConfidence {
		return nil
	}

	est := s.estimator.Update(nil)
	if !est.OK {
		return nil
	}
	p := trajectory.PathPoint{X: est.Position.X, Y: est.Position.Y, Predicted: true, Timestamp: s.clock.Now()}
	s.recorder.Append(p)
	ev := s.eventLocked(EventPointPredicted)
	ev.Point = &p
	return []Event{ev}
}

func (s *Session) resetAttemptLocked() {
	s.recorder.DiscardAttempt()
	s.estimator.Reset()
	s.history.Clear()
	s.framesSinceDetection = 0
	s.lastBox = nil
}

func (s *Session) eventLocked(kind EventKind) Event {
	return Event{
		Kind:      kind,
		SessionID: s.id,
		Time:      s.clock.Now(),
		Attempt:   s.recorder.CompletedCount() + 1,
	}
}

func emit(listeners []Listener, events []Event) {
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
