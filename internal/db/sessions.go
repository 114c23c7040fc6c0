package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/putt.report/internal/analysis"
	"github.com/banshee-data/putt.report/internal/trajectory"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("db: session not found")

// AttemptRecord is one stored attempt. Metrics is nil for attempts that
// could not be analysed.
type AttemptRecord struct {
	Index   int                   `json:"index"`
	Path    trajectory.Path       `json:"path"`
	Metrics *analysis.PuttMetrics `json:"metrics,omitempty"`
}

// SessionRecord is a completed, analysed session.
type SessionRecord struct {
	ID           string                 `json:"session_id"`
	CompletedAt  time.Time              `json:"completed_at"`
	CanvasWidth  float64                `json:"canvas_width"`
	CanvasHeight float64                `json:"canvas_height"`
	ReferenceX   float64                `json:"reference_x"`
	Result       analysis.SessionResult `json:"result"`
	Attempts     []AttemptRecord        `json:"attempts"`
}

// SessionSummary is a SessionRecord without its attempts.
type SessionSummary struct {
	ID           string                 `json:"session_id"`
	CompletedAt  time.Time              `json:"completed_at"`
	AttemptCount int                    `json:"attempt_count"`
	Result       analysis.SessionResult `json:"result"`
}

// NewSessionRecord builds a record from the completed paths, analysing each
// attempt against the canvas centre line.
func NewSessionRecord(id string, completedAt time.Time, canvasWidth, canvasHeight float64, paths []trajectory.Path, result analysis.SessionResult) SessionRecord {
	refX := canvasWidth / 2
	rec := SessionRecord{
		ID:           id,
		CompletedAt:  completedAt,
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
		ReferenceX:   refX,
		Result:       result,
		Attempts:     make([]AttemptRecord, len(paths)),
	}
	for i, p := range paths {
		rec.Attempts[i] = AttemptRecord{Index: i + 1, Path: p.Clone()}
		if m, ok := analysis.Analyze(p, refX); ok {
			rec.Attempts[i].Metrics = &m
		}
	}
	return rec
}

// SaveSession stores rec and all of its points in one transaction.
func (db *DB) SaveSession(ctx context.Context, rec SessionRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, completed_unix_nanos, canvas_width, canvas_height, reference_x,
		                      average_direction_deg, average_dispersion_px, recommendation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CompletedAt.UnixNano(), rec.CanvasWidth, rec.CanvasHeight, rec.ReferenceX,
		rec.Result.AverageDirectionDeg, rec.Result.AverageDispersionPx, rec.Result.Recommendation)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}

	attemptStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attempts (session_id, attempt_index, point_count, predicted_count, direction_deg, dispersion_px)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare attempt insert: %w", err)
	}
	defer attemptStmt.Close()

	pointStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO path_points (session_id, attempt_index, point_index, x, y, predicted, timestamp_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare point insert: %w", err)
	}
	defer pointStmt.Close()

	for _, a := range rec.Attempts {
		var dir, disp sql.NullFloat64
		if a.Metrics != nil {
			dir = sql.NullFloat64{Float64: a.Metrics.DirectionDeg, Valid: true}
			disp = sql.NullFloat64{Float64: a.Metrics.DispersionPx, Valid: true}
		}
		if _, err := attemptStmt.ExecContext(ctx, rec.ID, a.Index, len(a.Path), a.Path.PredictedCount(), dir, disp); err != nil {
			return fmt.Errorf("insert attempt %d: %w", a.Index, err)
		}
		for i, p := range a.Path {
			if _, err := pointStmt.ExecContext(ctx, rec.ID, a.Index, i, p.X, p.Y, p.Predicted, p.Timestamp.UnixNano()); err != nil {
				return fmt.Errorf("insert point %d of attempt %d: %w", i, a.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session %s: %w", rec.ID, err)
	}
	return nil
}

// ListSessions returns up to limit sessions, most recent first.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT s.session_id, s.completed_unix_nanos, s.average_direction_deg, s.average_dispersion_px,
		       s.recommendation, (SELECT COUNT(*) FROM attempts a WHERE a.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.completed_unix_nanos DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var nanos int64
		if err := rows.Scan(&s.ID, &nanos, &s.Result.AverageDirectionDeg, &s.Result.AverageDispersionPx,
			&s.Result.Recommendation, &s.AttemptCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.CompletedAt = time.Unix(0, nanos).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSession loads a session with all of its attempts and points.
func (db *DB) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	rec := &SessionRecord{ID: id}
	var nanos int64
	err := db.QueryRowContext(ctx, `
		SELECT completed_unix_nanos, canvas_width, canvas_height, reference_x,
		       average_direction_deg, average_dispersion_px, recommendation
		FROM sessions WHERE session_id = ?`, id).Scan(
		&nanos, &rec.CanvasWidth, &rec.CanvasHeight, &rec.ReferenceX,
		&rec.Result.AverageDirectionDeg, &rec.Result.AverageDispersionPx, &rec.Result.Recommendation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	rec.CompletedAt = time.Unix(0, nanos).UTC()

	if err := db.loadAttempts(ctx, rec); err != nil {
		return nil, err
	}
	if err := db.loadPoints(ctx, rec); err != nil {
		return nil, err
	}
	for _, a := range rec.Attempts {
		if a.Metrics != nil {
			rec.Result.Attempts = append(rec.Result.Attempts, *a.Metrics)
		}
	}
	return rec, nil
}

func (db *DB) loadAttempts(ctx context.Context, rec *SessionRecord) error {
	rows, err := db.QueryContext(ctx, `
		SELECT attempt_index, direction_deg, dispersion_px
		FROM attempts WHERE session_id = ? ORDER BY attempt_index`, rec.ID)
	if err != nil {
		return fmt.Errorf("load attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a AttemptRecord
		var dir, disp sql.NullFloat64
		if err := rows.Scan(&a.Index, &dir, &disp); err != nil {
			return fmt.Errorf("scan attempt: %w", err)
		}
		if dir.Valid && disp.Valid {
			a.Metrics = &analysis.PuttMetrics{DirectionDeg: dir.Float64, DispersionPx: disp.Float64}
		}
		rec.Attempts = append(rec.Attempts, a)
	}
	return rows.Err()
}

func (db *DB) loadPoints(ctx context.Context, rec *SessionRecord) error {
	rows, err := db.QueryContext(ctx, `
		SELECT attempt_index, x, y, predicted, timestamp_nanos
		FROM path_points WHERE session_id = ? ORDER BY attempt_index, point_index`, rec.ID)
	if err != nil {
		return fmt.Errorf("load points: %w", err)
	}
	defer rows.Close()

	byIndex := make(map[int]*AttemptRecord, len(rec.Attempts))
	for i := range rec.Attempts {
		byIndex[rec.Attempts[i].Index] = &rec.Attempts[i]
	}

	for rows.Next() {
		var idx int
		var p trajectory.PathPoint
		var nanos int64
		if err := rows.Scan(&idx, &p.X, &p.Y, &p.Predicted, &nanos); err != nil {
			return fmt.Errorf("scan point: %w", err)
		}
		p.Timestamp = time.Unix(0, nanos).UTC()
		if a, ok := byIndex[idx]; ok {
			a.Path = append(a.Path, p)
		}
	}
	return rows.Err()
}

// DeleteSession removes a session and, by cascade, its attempts and points.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
