// Package session orchestrates one playback attempt from launch to
// process exit: it resolves the resume point, drives the player,
// checkpoints the position while playing, and commits the final state
// back to the store when the session ends.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/llehouerou/cue/internal/driver"
)

// Status is the lifecycle state of a session.
type Status int32

const (
	StatusStarting Status = iota
	StatusRunning
	StatusEnded
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "Starting"
	case StatusRunning:
		return "Running"
	case StatusEnded:
		return "Ended"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Session is one runtime playback attempt. It is owned by the
// coordinator and never persisted; only its committed ResumeRecords
// survive it.
type Session struct {
	// Entry is the normalized path of the file being played.
	Entry string
	// Folder is the normalized folder the entry was resolved from,
	// empty when the target was a single file.
	Folder string

	drv    driver.Driver
	status atomic.Int32
	done   chan struct{}

	mu       sync.Mutex
	last     driver.Position
	hasLast  bool
	finished bool
	exit     driver.ExitStatus
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// Wait returns a channel closed once the session has fully ended,
// final commit included.
func (s *Session) Wait() <-chan struct{} {
	return s.done
}

// LastPosition returns the most recent position this session
// observed or committed, and whether one exists.
func (s *Session) LastPosition() (driver.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Finished reports whether the session ended at or past the
// completion threshold. Only meaningful once Wait is closed.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// ExitStatus returns how the player process ended. Only meaningful
// once Wait is closed.
func (s *Session) ExitStatus() driver.ExitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit
}

func (s *Session) setStatus(v Status) {
	s.status.Store(int32(v))
}

func (s *Session) setLast(p driver.Position) {
	s.mu.Lock()
	s.last = p
	s.hasLast = true
	s.mu.Unlock()
}
