package detector

import (
	"context"
	"fmt"

	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/detection"
)

// Model runs object-detection inference and returns the raw output tensor
// of shape [1, N, 5+numClasses].
type Model interface {
	Infer(ctx context.Context, f Frame) (detection.Tensor, error)
}

// FrameTensorModel is a Model for frames that already carry their tensor,
// such as frames produced by an external inference process.
type FrameTensorModel struct{}

// Infer returns the frame's tensor.
func (FrameTensorModel) Infer(_ context.Context, f Frame) (detection.Tensor, error) {
	if f.Tensor == nil {
		return detection.Tensor{}, ErrNoTensor
	}
	return *f.Tensor, nil
}

// LocalDetector decodes raw model output in-process.
type LocalDetector struct {
	Model               Model
	ConfidenceThreshold float64
	IoUThreshold        float64
}

// NewLocalDetector creates a LocalDetector with thresholds from cfg.
func NewLocalDetector(m Model, cfg *config.TuningConfig) *LocalDetector {
	return &LocalDetector{
		Model:               m,
		ConfidenceThreshold: cfg.GetConfidenceThreshold(),
		IoUThreshold:        cfg.GetIoUThreshold(),
	}
}

// Detect runs the model and post-processes its output.
func (d *LocalDetector) Detect(ctx context.Context, f Frame) ([]detection.Detection, error) {
	t, err := d.Model.Infer(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}
	return detection.Postprocess(t, d.ConfidenceThreshold, d.IoUThreshold)
}
