package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/detection"
	"github.com/banshee-data/putt.report/internal/httputil"
	"github.com/banshee-data/putt.report/internal/report"
	"github.com/banshee-data/putt.report/internal/session"
	"github.com/banshee-data/putt.report/internal/version"
)

// sessionError maps session errors onto status codes.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionComplete),
		errors.Is(err, session.ErrAlreadyRecording),
		errors.Is(err, session.ErrNotRecording):
		httputil.Conflict(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) startAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.session.StartAttempt(); err != nil {
		sessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

type stopResponse struct {
	Outcome  string           `json:"outcome"`
	Snapshot session.Snapshot `json:"session"`
}

func (s *Server) stopAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	res, err := s.session.StopAttempt()
	if err != nil {
		sessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, stopResponse{Outcome: string(res), Snapshot: s.session.Snapshot()})
}

func (s *Server) toggleAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.session.Toggle(); err != nil {
		sessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.session.Reset()
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

type pointRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Server) addPoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req pointRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.X == nil || req.Y == nil || !finite(*req.X) || !finite(*req.Y) {
		httputil.BadRequest(w, "x and y are required numbers")
		return
	}
	if err := s.session.AddManualPoint(*req.X, *req.Y); err != nil {
		sessionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]float64{"x": *req.X, "y": *req.Y})
}

type detectionsRequest struct {
	Detections []detection.Detection `json:"detections"`
}

// ingestDetections accepts one detector round in canvas coordinates. An
// empty list counts as a missed frame.
func (s *Server) ingestDetections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req detectionsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.session.Ingest(req.Detections); err != nil {
		sessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) setCanvas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.session.Canvas())
	case http.MethodPut, http.MethodPost:
		var c session.Canvas
		if err := httputil.DecodeJSON(r, &c); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.session.SetCanvas(c); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, c)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) showResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, err := s.session.Result()
	if errors.Is(err, analysis.ErrNotReady) {
		httputil.Conflict(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, res)
}

// livePaths builds chart input from the in-memory session.
func (s *Server) livePaths() report.Paths {
	snap := s.session.Snapshot()
	return report.Paths{
		Title:      fmt.Sprintf("Session %s", snap.SessionID),
		Width:      snap.Canvas.Width,
		Height:     snap.Canvas.Height,
		ReferenceX: snap.ReferenceX,
		Attempts:   snap.Completed,
		Current:    snap.CurrentPath,
		Result:     snap.Result,
	}
}

func (s *Server) sessionChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	writeChart(w, s.livePaths())
}

func (s *Server) sessionPlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	writePlot(w, s.livePaths())
}

func writeChart(w http.ResponseWriter, p report.Paths) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderPathsChart(w, p); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

func writePlot(w http.ResponseWriter, p report.Paths) {
	w.Header().Set("Content-Type", "image/png")
	if err := report.WritePathsPNG(w, p); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.tuning)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Get())
}
