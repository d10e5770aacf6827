package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Training examples table - one row per labeled (session, aspect).
		// Rows are immutable; corrections replace via explicit overwrite.
		`CREATE TABLE IF NOT EXISTS training_examples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			aspect TEXT NOT NULL,
			label TEXT NOT NULL CHECK(label IN ('good', 'needs_improvement')),
			features TEXT NOT NULL,
			source_video TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, aspect)
		)`,

		// Model versions table - append-only history of trained scorers.
		// Versions are never deleted, only deactivated.
		`CREATE TABLE IF NOT EXISTS model_versions (
			version_id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			example_count INTEGER NOT NULL,
			validation_score REAL NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 0,
			artifact_ref TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('promoted', 'rejected')),
			reason TEXT NOT NULL DEFAULT ''
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_training_examples_session_id ON training_examples(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_training_examples_created_at ON training_examples(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_model_versions_is_active ON model_versions(is_active)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
