package detection

import (
	"math"
	"sort"
)

// IoU returns the intersection-over-union of two corner boxes. A zero union
// yields 0 rather than a division by zero.
func IoU(a, b Box) float64 {
	ix1 := math.Max(a[0], b[0])
	iy1 := math.Max(a[1], b[1])
	ix2 := math.Min(a[2], b[2])
	iy2 := math.Min(a[3], b[3])

	inter := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// detectionIoU treats detections without a well-formed box as non-overlapping.
func detectionIoU(a, b Detection) float64 {
	ba, okA := a.Corners()
	bb, okB := b.Corners()
	if !okA || !okB {
		return 0
	}
	return IoU(ba, bb)
}

// NonMaxSuppression keeps the highest-confidence detection of every
// overlapping cluster. Candidates are stable-sorted by descending
// confidence; each kept detection suppresses every remaining one whose IoU
// against it is >= iouThreshold. The input slice is not modified.
func NonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) == 0 {
		return nil
	}

	remaining := make([]Detection, len(dets))
	copy(remaining, dets)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Confidence > remaining[j].Confidence
	})

	var kept []Detection
	for len(remaining) > 0 {
		best := remaining[0]
		kept = append(kept, best)

		next := remaining[:0:0]
		for _, d := range remaining[1:] {
			if detectionIoU(best, d) < iouThreshold {
				next = append(next, d)
			}
		}
		remaining = next
	}
	return kept
}
