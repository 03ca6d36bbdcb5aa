// Package resolver decides which entry of a folder playlist to play
// next, and from which saved position.
package resolver

import (
	"errors"

	"github.com/llehouerou/cue/internal/media"
	"github.com/llehouerou/cue/internal/store"
)

// ErrNoPlayableEntries means the folder holds no media files.
var ErrNoPlayableEntries = errors.New("no playable entries in folder")

// RecordSource is the read side of the position store the resolver
// needs. *store.Store satisfies it.
type RecordSource interface {
	Lookup(path string) (*store.ResumeRecord, error)
	LookupFolder(folder string) (*store.FolderRecord, error)
}

// Resolution is the chosen entry and its saved state, if any.
type Resolution struct {
	Entry  string              // normalized path of the entry to play
	Record *store.ResumeRecord // nil = never played, start at 0
}

// Resolve picks the entry that represents "where the user left off"
// in folder:
//
//  1. the folder's remembered selected entry, while it still exists
//     and is unfinished;
//  2. otherwise the first entry in natural sort order whose record is
//     absent or unfinished;
//  3. if everything is finished, the first entry (the caller decides
//     whether to restart).
//
// Resolving twice without intervening playback returns the same entry.
func Resolve(src RecordSource, folder string, recursive bool) (Resolution, error) {
	entries, err := media.ListPlayable(folder, recursive)
	if err != nil {
		return Resolution{}, err
	}
	if len(entries) == 0 {
		return Resolution{}, ErrNoPlayableEntries
	}

	normalized := make([]string, len(entries))
	present := make(map[string]bool, len(entries))
	for i, e := range entries {
		n, err := media.NormalizePath(e)
		if err != nil {
			return Resolution{}, err
		}
		normalized[i] = n
		present[n] = true
	}

	if fr, err := src.LookupFolder(folder); err != nil {
		return Resolution{}, err
	} else if fr != nil && present[fr.SelectedEntry] {
		rec, err := src.Lookup(fr.SelectedEntry)
		if err != nil {
			return Resolution{}, err
		}
		if rec == nil || !rec.Finished {
			return Resolution{Entry: fr.SelectedEntry, Record: rec}, nil
		}
		// Selected entry was finished: fall through to the scan.
	}

	var firstRecord *store.ResumeRecord
	for i, entry := range normalized {
		rec, err := src.Lookup(entry)
		if err != nil {
			return Resolution{}, err
		}
		if i == 0 {
			firstRecord = rec
		}
		if rec == nil || !rec.Finished {
			return Resolution{Entry: entry, Record: rec}, nil
		}
	}

	// Every entry is finished.
	return Resolution{Entry: normalized[0], Record: firstRecord}, nil
}
