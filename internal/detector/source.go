package detector

import (
	"context"
	"sync"

	"github.com/banshee-data/putt.report/internal/timeutil"
)

// FrameSource supplies the frame to process on each tick. NextFrame must
// not block for longer than a tick; ErrNoFrame means "nothing this tick".
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
}

// FrameBuffer holds the most recently captured frame. Capture pushes frames
// with Put at its own rate; each tick takes whatever is latest, so frames
// that arrive between ticks are dropped. A frame is handed out once.
type FrameBuffer struct {
	mu    sync.Mutex
	frame Frame
	has   bool
	seq   uint64
}

// NewFrameBuffer creates an empty buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Put replaces the latest frame and assigns it the next sequence number.
func (b *FrameBuffer) Put(f Frame) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	f.Seq = b.seq
	b.frame = f
	b.has = true
	return f.Seq
}

// NextFrame takes the latest frame, or returns ErrNoFrame when nothing new
// has been Put since the last call.
func (b *FrameBuffer) NextFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has {
		return Frame{}, ErrNoFrame
	}
	b.has = false
	return b.frame, nil
}

// BlankSource produces imageless frames of a fixed size. It drives replay
// and local-tensor detectors that do not need pixels.
type BlankSource struct {
	Width  int
	Height int
	Clock  timeutil.Clock

	mu  sync.Mutex
	seq uint64
}

// NextFrame returns a new blank frame stamped with the clock's time.
func (s *BlankSource) NextFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	clock := s.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()
	return Frame{Seq: seq, Timestamp: clock.Now(), Width: s.Width, Height: s.Height}, nil
}
