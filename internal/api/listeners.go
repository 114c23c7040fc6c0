package api

import (
	"context"
	"time"

	"github.com/banshee-data/putt.report/internal/db"
	"github.com/banshee-data/putt.report/internal/monitoring"
	"github.com/banshee-data/putt.report/internal/report"
	"github.com/banshee-data/putt.report/internal/security"
	"github.com/banshee-data/putt.report/internal/session"
)

// persistTimeout bounds one SaveSession call from a listener.
const persistTimeout = 5 * time.Second

var logf = monitoring.Component("api")

// PersistCompletedSessions returns a listener that stores every analysed
// session in store.
func PersistCompletedSessions(store SessionStore) session.Listener {
	return func(ev session.Event) {
		if ev.Kind != session.EventSessionCompleted || ev.Result == nil || ev.Canvas == nil {
			return
		}
		rec := db.NewSessionRecord(ev.SessionID, ev.Time, ev.Canvas.Width, ev.Canvas.Height, ev.Completed, *ev.Result)

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := store.SaveSession(ctx, rec); err != nil {
			logf("failed to save session %s: %v", ev.SessionID, err)
			return
		}
		logf("saved session %s (%d attempts)", ev.SessionID, len(ev.Completed))
	}
}

// WriteSessionPlots returns a listener that saves a PNG of every analysed
// session as <dir>/<session id>.png.
func WriteSessionPlots(dir string) session.Listener {
	return func(ev session.Event) {
		if ev.Kind != session.EventSessionCompleted || ev.Canvas == nil {
			return
		}
		out, err := security.ResolveWithin(dir, security.SanitizeFilename(ev.SessionID)+".png")
		if err != nil {
			logf("refusing to write plot for session %s: %v", ev.SessionID, err)
			return
		}
		err = report.SavePathsPNG(out, report.Paths{
			Title:      "Session " + ev.SessionID,
			Width:      ev.Canvas.Width,
			Height:     ev.Canvas.Height,
			ReferenceX: ev.Canvas.ReferenceX(),
			Attempts:   ev.Completed,
			Result:     ev.Result,
		})
		if err != nil {
			logf("failed to write plot for session %s: %v", ev.SessionID, err)
			return
		}
		logf("wrote %s", out)
	}
}
