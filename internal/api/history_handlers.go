package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/putt.report/internal/db"
	"github.com/banshee-data/putt.report/internal/httputil"
	"github.com/banshee-data/putt.report/internal/report"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "session history is not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.SessionSummary{}
	}
	httputil.WriteJSONOK(w, sessions)
}

// handleStoredSession serves /api/sessions/{id}, /api/sessions/{id}/chart
// and /api/sessions/{id}/plot.png.
func (s *Server) handleStoredSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "session history is not configured")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	id, view, _ := strings.Cut(rest, "/")
	if id == "" {
		httputil.NotFound(w, "session id is required")
		return
	}

	switch {
	case view == "" && r.Method == http.MethodGet:
		rec, ok := s.loadSession(w, r, id)
		if ok {
			httputil.WriteJSONOK(w, rec)
		}
	case view == "" && r.Method == http.MethodDelete:
		err := s.store.DeleteSession(r.Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case view == "chart" && r.Method == http.MethodGet:
		if rec, ok := s.loadSession(w, r, id); ok {
			writeChart(w, recordPaths(rec))
		}
	case view == "plot.png" && r.Method == http.MethodGet:
		if rec, ok := s.loadSession(w, r, id); ok {
			writePlot(w, recordPaths(rec))
		}
	case view == "" || view == "chart" || view == "plot.png":
		httputil.MethodNotAllowed(w)
	default:
		httputil.NotFound(w, fmt.Sprintf("unknown session view %q", view))
	}
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request, id string) (*db.SessionRecord, bool) {
	rec, err := s.store.GetSession(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return nil, false
	}
	return rec, true
}

func recordPaths(rec *db.SessionRecord) report.Paths {
	paths := make([]trajectory.Path, len(rec.Attempts))
	for i, a := range rec.Attempts {
		paths[i] = a.Path
	}
	result := rec.Result
	return report.Paths{
		Title:      fmt.Sprintf("Session %s (%s)", rec.ID, rec.CompletedAt.Format("2006-01-02 15:04")),
		Width:      rec.CanvasWidth,
		Height:     rec.CanvasHeight,
		ReferenceX: rec.ReferenceX,
		Attempts:   paths,
		Result:     &result,
	}
}
