package store

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS resume_records (
			path TEXT PRIMARY KEY,
			position REAL NOT NULL DEFAULT 0,
			duration REAL NOT NULL DEFAULT 0,
			finished INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_resume_updated_at ON resume_records(updated_at);
		CREATE INDEX IF NOT EXISTS idx_resume_finished ON resume_records(finished);

		CREATE TABLE IF NOT EXISTS folder_records (
			folder TEXT PRIMARY KEY,
			selected_entry TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(
		`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`,
		currentSchemaVersion,
	)
	return err
}
