package detection

import "errors"

// ErrBadShape is returned by Decode when the tensor dims or backing buffer do
// not describe a [1, N, 5+numClasses] output.
var ErrBadShape = errors.New("detection: tensor shape is not [1, N, 5+classes]")

// Box is an axis-aligned corner box (x1, y1, x2, y2).
type Box [4]float64

// Area returns the box area, or 0 for inverted/degenerate boxes.
func (b Box) Area() float64 {
	w := b[2] - b[0]
	h := b[3] - b[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Detection is one candidate object location for a single frame. The JSON
// shape matches the remote detector service response.
type Detection struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Box        []float64 `json:"box"`
	Confidence float64   `json:"confidence"`
	ClassID    int       `json:"class_id"`
	ClassLabel string    `json:"class_name,omitempty"`
}

// Corners returns the detection box as a Box. ok is false when the
// detection does not carry exactly four coordinates.
func (d Detection) Corners() (Box, bool) {
	if len(d.Box) != 4 {
		return Box{}, false
	}
	return Box{d.Box[0], d.Box[1], d.Box[2], d.Box[3]}, true
}

// Tensor is a raw model output: a flat float32 buffer plus its dims.
type Tensor struct {
	Data []float32
	Dims []int
}
