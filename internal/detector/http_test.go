package detector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banshee-data/putt.report/internal/detection"
	"github.com/banshee-data/putt.report/internal/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFrame = Frame{Seq: 1, Width: 640, Height: 480, JPEG: []byte{0xff, 0xd8, 0xff}}

func TestHTTPDetector_Detect(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `{
		"detections": [
			{"x": 100, "y": 200, "box": [90, 190, 110, 210], "confidence": 0.9, "class_id": 0, "class_name": "golf ball"},
			{"x": 300, "y": 50, "box": [295, 45, 305, 55], "confidence": 0.3, "class_id": 0}
		]
	}`)

	d := NewHTTPDetector("http://detector.local/detect", mock)
	dets, err := d.Detect(context.Background(), testFrame)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, detection.Detection{
		X: 100, Y: 200, Box: []float64{90, 190, 110, 210}, Confidence: 0.9, ClassLabel: "golf ball",
	}, dets[0])
	assert.Equal(t, 0.3, dets[1].Confidence)

	require.Equal(t, 1, mock.RequestCount())
	req := mock.Requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://detector.local/detect", req.URL.String())
	assert.Contains(t, req.Header.Get("Content-Type"), "multipart/form-data")
	assert.Contains(t, string(mock.Bodies[0]), `filename="frame.jpg"`)
}

func TestHTTPDetector_NoDetectionsField(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `{}`)
	dets, err := NewHTTPDetector("http://x", mock).Detect(context.Background(), testFrame)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestHTTPDetector_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *httputil.MockHTTPClient)
		frame Frame
	}{
		{"empty frame", func(m *httputil.MockHTTPClient) {}, Frame{}},
		{"transport error", func(m *httputil.MockHTTPClient) { m.AddErrorResponse(errors.New("connection refused")) }, testFrame},
		{"server error", func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusInternalServerError, "model crashed") }, testFrame},
		{"malformed body", func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, `{"detections": [`) }, testFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient()
			tt.setup(mock)
			_, err := NewHTTPDetector("http://x", mock).Detect(context.Background(), tt.frame)
			assert.Error(t, err)
		})
	}
}

func TestHTTPDetector_EmptyFrameSkipsRequest(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	_, err := NewHTTPDetector("http://x", mock).Detect(context.Background(), Frame{})
	assert.ErrorIs(t, err, ErrEmptyFrame)
	assert.Equal(t, 0, mock.RequestCount())
}

func TestHTTPDetector_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPDetector(srv.URL, nil).Detect(ctx, testFrame)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPDetector_RealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]any{
			"detections": []detection.Detection{{X: 1, Y: 2, Box: []float64{0, 1, 2, 3}, Confidence: 0.5}},
		})
	}))
	defer srv.Close()

	dets, err := NewHTTPDetector(srv.URL, httputil.NewClient(time.Second)).Detect(context.Background(), testFrame)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, 0.5, dets[0].Confidence)
}
