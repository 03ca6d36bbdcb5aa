package store

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/cue/internal/db"
)

// LookupFolder returns the folder record for the given normalized
// folder path, or nil if none exists.
func (s *Store) LookupFolder(folder string) (*FolderRecord, error) {
	row := s.db.QueryRow(`
		SELECT folder, selected_entry, updated_at
		FROM folder_records
		WHERE folder = ?
	`, folder)

	var r FolderRecord
	var updatedAt int64
	err := row.Scan(&r.Folder, &r.SelectedEntry, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.UpdatedAt = time.Unix(updatedAt, 0)
	return &r, nil
}

// CommitFolder upserts the selected-entry pointer for a folder.
func (s *Store) CommitFolder(r FolderRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO folder_records (folder, selected_entry, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(folder) DO UPDATE SET
				selected_entry = excluded.selected_entry,
				updated_at = excluded.updated_at
		`, r.Folder, r.SelectedEntry, r.UpdatedAt.Unix())
		return err
	})
}
