package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"strconv"

	"github.com/banshee-data/putt.report/internal/detection"
	"github.com/banshee-data/putt.report/internal/detector"
	"github.com/banshee-data/putt.report/internal/httputil"
)

// MaxFrameBytes bounds an uploaded frame.
const MaxFrameBytes = 8 << 20

// uploadFrame accepts a multipart JPEG under field "file" and makes it the
// latest frame for the tick loop. Width and height come from the form when
// given, otherwise from the JPEG header.
func (s *Server) uploadFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.frames == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "frame upload is not enabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxFrameBytes+(64<<10))
	if err := r.ParseMultipartForm(MaxFrameBytes); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("read frame: %v", err))
		return
	}
	if len(data) == 0 {
		httputil.BadRequest(w, detector.ErrEmptyFrame.Error())
		return
	}

	width, height, err := frameSize(r, data)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	seq := s.frames.Put(detector.Frame{
		Timestamp: s.clock.Now(),
		Width:     width,
		Height:    height,
		JPEG:      data,
	})
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"seq": seq, "width": width, "height": height})
}

func frameSize(r *http.Request, data []byte) (int, int, error) {
	ws, hs := r.FormValue("width"), r.FormValue("height")
	if ws != "" || hs != "" {
		width, werr := strconv.Atoi(ws)
		height, herr := strconv.Atoi(hs)
		if werr != nil || herr != nil || width <= 0 || height <= 0 {
			return 0, 0, errors.New("width and height must be positive integers")
		}
		return width, height, nil
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("frame is not a JPEG: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

type tensorFrameRequest struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Dims   []int     `json:"dims"`
	Data   []float32 `json:"data"`
}

// uploadTensorFrame accepts raw model output computed elsewhere, for the
// local detector to decode on the next tick.
func (s *Server) uploadTensorFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.frames == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "frame upload is not enabled")
		return
	}

	var req tensorFrameRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxFrameBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("decode tensor frame: %v", err))
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		httputil.BadRequest(w, "width and height must be positive integers")
		return
	}
	n := 1
	for _, d := range req.Dims {
		if d <= 0 || n > len(req.Data)/d {
			n = -1
			break
		}
		n *= d
	}
	if len(req.Dims) == 0 || n != len(req.Data) {
		httputil.BadRequest(w, fmt.Sprintf("dims %v do not match %d values", req.Dims, len(req.Data)))
		return
	}

	seq := s.frames.Put(detector.Frame{
		Timestamp: s.clock.Now(),
		Width:     req.Width,
		Height:    req.Height,
		Tensor:    &detection.Tensor{Data: req.Data, Dims: req.Dims},
	})
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"seq": seq, "width": req.Width, "height": req.Height})
}
