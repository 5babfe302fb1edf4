package store

import (
	"database/sql"
	"strings"
	"time"
)

// Detection is a recorded gesture event.
type Detection struct {
	ID         string
	SessionID  string
	Label      string
	HandIndex  int
	Handedness string
	CreatedAt  time.Time
}

// DetectionFilter narrows a detection listing. Zero values match everything.
type DetectionFilter struct {
	SessionID string
	Label     string
	Limit     int
}

// DetectionRepository provides access to recorded gesture events.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// Create inserts a detection. CreatedAt defaults to now.
func (r *DetectionRepository) Create(d *Detection) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO detections (id, session_id, label, hand_index, handedness, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.Label, d.HandIndex, d.Handedness, d.CreatedAt,
	)
	return err
}

// List returns detections matching the filter, newest first.
func (r *DetectionRepository) List(f DetectionFilter) ([]*Detection, error) {
	var (
		where []string
		args  []any
	)
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Label != "" {
		where = append(where, "label = ?")
		args = append(args, f.Label)
	}

	query := `SELECT id, session_id, label, hand_index, handedness, created_at FROM detections`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []*Detection
	for rows.Next() {
		d := &Detection{}
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Label, &d.HandIndex, &d.Handedness, &d.CreatedAt); err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}

// CountByLabel returns the number of detections per label. Labels that were
// never detected are absent.
func (r *DetectionRepository) CountByLabel() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT label, COUNT(*) FROM detections GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}
