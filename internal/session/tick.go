package session

import (
	"context"
	"errors"
	"sync"

	"github.com/banshee-data/putt.report/internal/detector"
)

// TickResult says what one call to Tick did.
type TickResult string

const (
	TickIdle      TickResult = "idle"      // No attempt in progress
	TickSkipped   TickResult = "skipped"   // A detection round was already in flight
	TickProcessed TickResult = "processed" // Detections (or a miss) were ingested
	TickDropped   TickResult = "dropped"   // Attempt changed or ctx ended during detection
)

// Tick runs one detection round on f. At most one round is in flight; a
// tick that finds one running is skipped rather than queued. Detector
// errors and timeouts count as a missed frame.
func (s *Session) Tick(ctx context.Context, f detector.Frame) TickResult {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return TickIdle
	}
	gen := s.generation
	s.mu.Unlock()

	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return TickSkipped
	}
	defer s.inFlight.Store(false)

	dctx, cancel := context.WithTimeout(ctx, s.Config.DetectorTimeout)
	dets, err := s.detector.Detect(dctx, f)
	cancel()
	if ctx.Err() != nil {
		return TickDropped
	}
	if err != nil {
		logf("frame %d: detector: %v", f.Seq, err)
		dets = nil
	}

	s.mu.Lock()
	if !s.recording || gen != s.generation {
		s.mu.Unlock()
		return TickDropped
	}
	sx, sy := s.canvas.scale(f.Width, f.Height)
	events := s.ingestLocked(dets, sx, sy)
	listeners := s.listeners
	s.mu.Unlock()

	emit(listeners, events)
	return TickProcessed
}

// SkippedTicks returns how many ticks found a round already in flight.
func (s *Session) SkippedTicks() uint64 {
	return s.skipped.Load()
}

// Run drives Tick from the session clock every TickInterval until ctx is
// done. Each round runs on its own goroutine so a slow detector drops ticks
// instead of delaying the loop. Run waits for the last round before
// returning ctx.Err().
func (s *Session) Run(ctx context.Context, source detector.FrameSource) error {
	ticker := s.clock.NewTicker(s.Config.TickInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	logf("tick loop started, interval %v, detector timeout %v", s.Config.TickInterval, s.Config.DetectorTimeout)
	for {
		select {
		case <-ctx.Done():
			logf("tick loop stopped: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C():
			if !s.Recording() {
				continue
			}
			if s.inFlight.Load() {
				s.skipped.Add(1)
				continue
			}
			frame, err := source.NextFrame(ctx)
			if err != nil {
				if !errors.Is(err, detector.ErrNoFrame) {
					logf("frame source: %v", err)
				}
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Tick(ctx, frame)
			}()
		}
	}
}
