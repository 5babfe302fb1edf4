package store

import (
	"database/sql"
	"errors"
	"time"
)

// Exit reasons recorded when a session finishes.
const (
	ExitQuit           = "quit"
	ExitCancelled      = "cancelled"
	ExitCaptureFailure = "capture_failure"
	ExitError          = "error"
)

// Session is one run of the frame loop against a camera.
type Session struct {
	ID         string
	CameraID   int
	StartedAt  time.Time
	EndedAt    *time.Time
	Frames     int
	ExitReason string
}

// Active reports whether the session has not finished yet.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// SessionRepository provides access to capture sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new, active session.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, camera_id, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.CameraID, sess.StartedAt,
	)
	return err
}

// Finish marks a session as ended with its frame count and exit reason.
func (r *SessionRepository) Finish(id string, frames int, reason string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, exit_reason = ? WHERE id = ?`,
		time.Now(), frames, reason, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, camera_id, started_at, ended_at, frames, exit_reason
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns sessions, newest first. A limit of zero or less returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	query := `SELECT id, camera_id, started_at, ended_at, frames, exit_reason
		 FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime

	err := row.Scan(&sess.ID, &sess.CameraID, &sess.StartedAt, &ended, &sess.Frames, &sess.ExitReason)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
