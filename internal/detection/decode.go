package detection

import "fmt"

// Column layout of a single decoded row.
const (
	colCX = iota
	colCY
	colW
	colH
	colObjectness
	colFirstClass
)

// Decode converts a raw [1, N, 5+numClasses] output tensor into candidate
// detections. For each row the best class score is paired with the
// objectness; rows where objectness, class score or their product falls
// below confidenceThreshold are discarded. Center/size is converted to a
// corner box.
func Decode(t Tensor, confidenceThreshold float64) ([]Detection, error) {
	if len(t.Dims) != 3 || t.Dims[0] != 1 || t.Dims[1] < 0 || t.Dims[2] <= colFirstClass {
		return nil, fmt.Errorf("%w: dims %v", ErrBadShape, t.Dims)
	}
	numRows := t.Dims[1]
	numCols := t.Dims[2]
	if numRows > len(t.Data)/numCols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrBadShape, len(t.Data), numRows, numCols)
	}

	var out []Detection
	for i := 0; i < numRows; i++ {
		row := t.Data[i*numCols : (i+1)*numCols]

		objectness := float64(row[colObjectness])
		if objectness < confidenceThreshold {
			continue
		}

		classID, classScore := bestClass(row[colFirstClass:])
		if classScore < confidenceThreshold {
			continue
		}

		confidence := objectness * classScore
		if confidence < confidenceThreshold {
			continue
		}

		cx := float64(row[colCX])
		cy := float64(row[colCY])
		w := float64(row[colW])
		h := float64(row[colH])

		out = append(out, Detection{
			X:          cx,
			Y:          cy,
			Box:        []float64{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
			Confidence: confidence,
			ClassID:    classID,
		})
	}
	return out, nil
}

// bestClass returns the index and value of the highest class score; the
// first index wins on ties.
func bestClass(scores []float32) (int, float64) {
	best := 0
	for j := 1; j < len(scores); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	return best, float64(scores[best])
}

// Postprocess decodes t and removes duplicates with non-max suppression.
func Postprocess(t Tensor, confidenceThreshold, iouThreshold float64) ([]Detection, error) {
	candidates, err := Decode(t, confidenceThreshold)
	if err != nil {
		return nil, err
	}
	return NonMaxSuppression(candidates, iouThreshold), nil
}
