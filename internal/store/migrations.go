package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per run of the frame loop
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			camera_id INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			exit_reason TEXT NOT NULL DEFAULT ''
		)`,

		// Detections table - gesture events, one per label change
		`CREATE TABLE IF NOT EXISTS detections (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			label TEXT NOT NULL CHECK(label IN ('Shenka', 'OK', 'ThumbsUp', 'ThumbsDown')),
			hand_index INTEGER NOT NULL DEFAULT -1,
			handedness TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		// Actions table - at most one plugin action per gesture label
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL UNIQUE,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_detections_session_id ON detections(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_label ON detections(label)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
