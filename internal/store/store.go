// Package store persists resume state: playback positions keyed by
// normalized file path, and per-folder pointers to the last selected
// entry. Backed by SQLite in the XDG data directory.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "cue"
	dbFileName = "cue.db"
)

// ResumeRecord is the persisted playback state for one media file.
// finished=true means position is ignored on the next auto-resume.
type ResumeRecord struct {
	Path      string
	Position  float64 // seconds
	Duration  float64 // seconds, 0 = unknown
	Finished  bool
	UpdatedAt time.Time
}

// FolderRecord points at the entry a folder playlist last played.
type FolderRecord struct {
	Folder        string
	SelectedEntry string
	UpdatedAt     time.Time
}

type Store struct {
	db *sql.DB

	// Serializes commits so two writers for the same path cannot
	// interleave and readers never observe a half-written record.
	writeMu sync.Mutex
}

func Open() (*Store, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the store at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
