// Package detector is the boundary to whatever finds the ball in a frame: a
// remote detection service, a local model producing raw tensors, or a
// recorded replay.
package detector

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/putt.report/internal/detection"
)

var (
	// ErrEmptyFrame is returned when a frame carries no image data for a
	// detector that needs it.
	ErrEmptyFrame = errors.New("detector: frame has no image data")
	// ErrNoTensor is returned by FrameTensorModel for frames without a tensor.
	ErrNoTensor = errors.New("detector: frame has no tensor")
	// ErrNoFrame is returned by a FrameSource with nothing to offer yet.
	ErrNoFrame = errors.New("detector: no frame available")
)

// Frame is one captured image. Width and Height are the source pixel
// dimensions that detection coordinates are expressed in.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	JPEG      []byte
	Tensor    *detection.Tensor // Pre-computed model output, if any
}

// Detector finds candidate detections in a frame. Implementations must
// honour ctx cancellation; callers treat any error as "no detection".
type Detector interface {
	Detect(ctx context.Context, f Frame) ([]detection.Detection, error)
}

// Func adapts a plain function to the Detector interface.
type Func func(ctx context.Context, f Frame) ([]detection.Detection, error)

// Detect calls fn.
func (fn Func) Detect(ctx context.Context, f Frame) ([]detection.Detection, error) {
	return fn(ctx, f)
}
