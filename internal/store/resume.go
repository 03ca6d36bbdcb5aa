package store

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/cue/internal/db"
)

// Lookup returns the resume record for the given normalized path,
// or nil if none exists.
func (s *Store) Lookup(path string) (*ResumeRecord, error) {
	return getResume(s.db, path)
}

// Commit upserts a resume record. The write is transactional: it is
// durable once Commit returns, and no reader observes a partial row.
func (s *Store) Commit(r ResumeRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return saveResume(s.db, r)
}

// Delete removes the resume record for path, if any.
func (s *Store) Delete(path string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`DELETE FROM resume_records WHERE path = ?`, path)
	return err
}

// ListAll returns every resume record, most recently updated first.
func (s *Store) ListAll() ([]ResumeRecord, error) {
	return listResume(s.db, `SELECT path, position, duration, finished, updated_at
		FROM resume_records ORDER BY updated_at DESC`)
}

// ListFinished returns the records marked finished, most recent first.
func (s *Store) ListFinished() ([]ResumeRecord, error) {
	return listResume(s.db, `SELECT path, position, duration, finished, updated_at
		FROM resume_records WHERE finished = 1 ORDER BY updated_at DESC`)
}

// MostRecentUnfinished returns the unfinished record with the newest
// updated_at, or nil if there is none.
func (s *Store) MostRecentUnfinished() (*ResumeRecord, error) {
	records, err := listResume(s.db, `SELECT path, position, duration, finished, updated_at
		FROM resume_records WHERE finished = 0 ORDER BY updated_at DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func getResume(db *sql.DB, path string) (*ResumeRecord, error) {
	row := db.QueryRow(`
		SELECT path, position, duration, finished, updated_at
		FROM resume_records
		WHERE path = ?
	`, path)

	r, err := scanResume(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func saveResume(sqlDB *sql.DB, r ResumeRecord) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	return dbutil.WithTx(sqlDB, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO resume_records (path, position, duration, finished, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				position = excluded.position,
				duration = excluded.duration,
				finished = excluded.finished,
				updated_at = excluded.updated_at
		`, r.Path, r.Position, r.Duration, boolToInt(r.Finished), r.UpdatedAt.Unix())
		return err
	})
}

func listResume(db *sql.DB, query string) ([]ResumeRecord, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ResumeRecord
	for rows.Next() {
		r, err := scanResume(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func scanResume(scan func(dest ...any) error) (*ResumeRecord, error) {
	var r ResumeRecord
	var finished int
	var updatedAt int64

	if err := scan(&r.Path, &r.Position, &r.Duration, &finished, &updatedAt); err != nil {
		return nil, err
	}

	r.Finished = finished != 0
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
