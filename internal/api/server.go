// Package api exposes a putting session over HTTP: session control, manual
// input, frame upload, stored-session history and chart rendering.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/putt.report/internal/config"
	"github.com/banshee-data/putt.report/internal/db"
	"github.com/banshee-data/putt.report/internal/detector"
	"github.com/banshee-data/putt.report/internal/session"
	"github.com/banshee-data/putt.report/internal/timeutil"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SessionStore persists completed sessions. *db.DB implements it.
type SessionStore interface {
	SaveSession(ctx context.Context, rec db.SessionRecord) error
	ListSessions(ctx context.Context, limit int) ([]db.SessionSummary, error)
	GetSession(ctx context.Context, id string) (*db.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
}

type Server struct {
	session *session.Session
	store   SessionStore
	tuning  *config.TuningConfig
	frames  *detector.FrameBuffer
	clock   timeutil.Clock
}

// NewServer wires handlers to sess. store and frames may be nil, in which
// case the history and frame upload endpoints answer 503.
func NewServer(sess *session.Session, store SessionStore, tuning *config.TuningConfig, frames *detector.FrameBuffer) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Server{
		session: sess,
		store:   store,
		tuning:  tuning,
		frames:  frames,
		clock:   timeutil.RealClock{},
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", s.showSession)
	mux.HandleFunc("/api/session/start", s.startAttempt)
	mux.HandleFunc("/api/session/stop", s.stopAttempt)
	mux.HandleFunc("/api/session/toggle", s.toggleAttempt)
	mux.HandleFunc("/api/session/reset", s.resetSession)
	mux.HandleFunc("/api/session/points", s.addPoint)
	mux.HandleFunc("/api/session/detections", s.ingestDetections)
	mux.HandleFunc("/api/session/canvas", s.setCanvas)
	mux.HandleFunc("/api/session/chart", s.sessionChart)
	mux.HandleFunc("/api/session/plot.png", s.sessionPlot)
	mux.HandleFunc("/api/result", s.showResult)
	mux.HandleFunc("/api/frames", s.uploadFrame)
	mux.HandleFunc("/api/frames/tensor", s.uploadTensorFrame)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/sessions/", s.handleStoredSession)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}
