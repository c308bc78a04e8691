package store

// schema creates the preset and settings tables. Presets hold named
// simulation tunings as JSON; settings is a flat key-value table for
// everything the app restores on startup.
const schema = `
CREATE TABLE IF NOT EXISTS presets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	params     TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_presets_name ON presets(name);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}
