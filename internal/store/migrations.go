package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Lessons table - one row per lesson plan
		`CREATE TABLE IF NOT EXISTS lessons (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			trigger_rule TEXT,
			hold_ms INTEGER NOT NULL DEFAULT 3000,
			feedback_ms INTEGER NOT NULL DEFAULT 0,
			builtin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Lesson gestures table - ordered targets of a lesson with their rule as JSON
		`CREATE TABLE IF NOT EXISTS lesson_gestures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			rule TEXT NOT NULL,
			hold_ms INTEGER,
			UNIQUE(lesson_id, name)
		)`,

		// Cues table - plugin actions fired on feedback events
		`CREATE TABLE IF NOT EXISTS cues (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL CHECK(event IN ('confirmed', 'completed', 'target')),
			gesture TEXT NOT NULL DEFAULT '',
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_lesson_gestures_lesson_id ON lesson_gestures(lesson_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cues_event ON cues(event)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
