package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/banshee-data/putt.report/internal/detection"
	"github.com/banshee-data/putt.report/internal/httputil"
)

const maxResponseBytes = 1 << 20

// detectResponse is the body returned by the detection service.
type detectResponse struct {
	Detections []detection.Detection `json:"detections"`
}

// HTTPDetector posts each frame as a multipart JPEG upload to a remote
// detection service.
type HTTPDetector struct {
	URL    string
	Client httputil.HTTPClient
}

// NewHTTPDetector creates an HTTPDetector. A nil client uses
// http.DefaultClient; the per-call deadline comes from ctx.
func NewHTTPDetector(url string, client httputil.HTTPClient) *HTTPDetector {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDetector{URL: url, Client: client}
}

// Detect uploads the frame and decodes the service response.
func (d *HTTPDetector) Detect(ctx context.Context, f Frame) ([]detection.Detection, error) {
	if len(f.JPEG) == 0 {
		return nil, ErrEmptyFrame
	}

	req, err := httputil.NewFileUploadRequest(ctx, d.URL, "file", "frame.jpg", f.JPEG)
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read detect response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect request: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var out detectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}
	return out.Detections, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
