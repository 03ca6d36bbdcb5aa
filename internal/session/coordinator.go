package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/llehouerou/cue/internal/driver"
	"github.com/llehouerou/cue/internal/media"
	"github.com/llehouerou/cue/internal/resolver"
	"github.com/llehouerou/cue/internal/store"
)

// ErrSessionActive means a playback session is already running; the
// coordinator allows one at a time.
var ErrSessionActive = errors.New("a playback session is already active")

// ErrNothingToResume means no unfinished record exists to replay.
var ErrNothingToResume = errors.New("nothing to resume")

const (
	commitRetries      = 3
	commitRetryBackoff = 100 * time.Millisecond
)

// Store is the position-store surface the coordinator needs.
// *store.Store satisfies it; tests inject an in-memory fake.
type Store interface {
	Lookup(path string) (*store.ResumeRecord, error)
	Commit(store.ResumeRecord) error
	LookupFolder(folder string) (*store.FolderRecord, error)
	CommitFolder(store.FolderRecord) error
	MostRecentUnfinished() (*store.ResumeRecord, error)
}

// DriverFactory builds a fresh driver for each session.
type DriverFactory func() driver.Driver

// Config holds the coordinator's tunables.
type Config struct {
	SampleInterval      time.Duration // checkpoint period
	CompletionThreshold float64       // fraction of duration counted as finished
	RecursiveScan       bool          // folder resolution recurses
	Logger              *slog.Logger  // nil = slog.Default()
}

// DefaultDriverFactory returns a factory building the driver variant
// named by mode ("coarse" or "precise") with the given options.
func DefaultDriverFactory(mode string, opts driver.Options) DriverFactory {
	return func() driver.Driver {
		if mode == "coarse" {
			return driver.NewCoarse(opts)
		}
		return driver.NewMPV(opts)
	}
}

// Coordinator runs playback sessions one at a time, mapping targets
// to resume points on the way in and committing observed positions
// on the way out.
type Coordinator struct {
	store     Store
	cfg       Config
	newDriver DriverFactory
	log       *slog.Logger

	mu     sync.Mutex
	active *Session
	subs   []*Subscription
}

// New creates a coordinator. The store carries persisted resume
// state; newDriver builds one driver per session.
func New(st Store, cfg Config, newDriver DriverFactory) *Coordinator {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 5 * time.Second
	}
	if cfg.CompletionThreshold <= 0 || cfg.CompletionThreshold > 1 {
		cfg.CompletionThreshold = 0.98
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store:     st,
		cfg:       cfg,
		newDriver: newDriver,
		log:       log,
	}
}

// Subscribe returns a subscription receiving session events.
func (c *Coordinator) Subscribe() *Subscription {
	sub := newSubscription()
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Active returns the current session, or nil.
func (c *Coordinator) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start begins playback of target, a media file or a folder treated
// as a playlist. The returned session is already running; launch
// failures surface immediately and leave the store untouched.
func (c *Coordinator) Start(ctx context.Context, target string) (*Session, error) {
	c.mu.Lock()
	if c.active != nil {
		select {
		case <-c.active.done:
		default:
			c.mu.Unlock()
			return nil, ErrSessionActive
		}
	}
	c.mu.Unlock()

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	var entry, folder string
	var record *store.ResumeRecord

	if info.IsDir() {
		folder, err = media.NormalizePath(target)
		if err != nil {
			return nil, err
		}
		res, err := resolver.Resolve(c.store, folder, c.cfg.RecursiveScan)
		if err != nil {
			return nil, err
		}
		entry, record = res.Entry, res.Record
	} else {
		entry, err = media.NormalizePath(target)
		if err != nil {
			return nil, err
		}
		record, err = c.store.Lookup(entry)
		if err != nil {
			return nil, err
		}
	}

	var startOffset float64
	if record != nil && !record.Finished {
		startOffset = record.Position
	}

	drv := c.newDriver()
	s := &Session{
		Entry:  entry,
		Folder: folder,
		drv:    drv,
		done:   make(chan struct{}),
	}
	s.setStatus(StatusStarting)

	c.log.Debug("launching player",
		"entry", entry,
		"offset", startOffset,
		"precision", drv.Precision().String())

	if err := drv.Launch(ctx, entry, startOffset); err != nil {
		return nil, err
	}

	// Re-check under the lock: a concurrent Start may have won the
	// slot while we were resolving and launching.
	c.mu.Lock()
	if c.active != nil {
		select {
		case <-c.active.done:
		default:
			c.mu.Unlock()
			drv.Terminate() //nolint:errcheck // losing session is discarded
			return nil, ErrSessionActive
		}
	}
	c.active = s
	c.mu.Unlock()

	c.setStatusAndEmit(s, StatusStarting, StatusRunning)

	go c.run(s, record)
	return s, nil
}

// Resume replays the most recently updated unfinished record.
func (c *Coordinator) Resume(ctx context.Context) (*Session, error) {
	rec, err := c.store.MostRecentUnfinished()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNothingToResume
	}
	return c.Start(ctx, rec.Path)
}

// Stop terminates the active session, forcing one final commit
// before it transitions to Ended. Safe to call concurrently with a
// sampling tick, and a no-op without an active session.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	if err := s.drv.Terminate(); err != nil && !errors.Is(err, driver.ErrNotRunning) {
		c.log.Warn("terminate failed, waiting for exit anyway", "error", err)
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the sampling loop: one goroutine per session, so checkpoint
// commits for a session are strictly ordered.
func (c *Coordinator) run(s *Session, prior *store.ResumeRecord) {
	ticker := time.NewTicker(c.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.drv.Done():
			c.finish(s, prior)
			return
		case <-ticker.C:
			pos, err := s.drv.QueryPosition()
			if err != nil {
				// Transient: skip this checkpoint, keep the session.
				c.log.Debug("checkpoint skipped", "entry", s.Entry, "error", err)
				continue
			}
			s.setLast(pos)

			rec := store.ResumeRecord{
				Path:     s.Entry,
				Position: pos.Seconds,
				Duration: pos.Duration,
			}
			if prior != nil && rec.Duration == 0 {
				rec.Duration = prior.Duration
			}
			if c.commitWithRetry(rec) {
				c.emitCheckpoint(Checkpoint{Entry: s.Entry, Position: pos})
			}
		}
	}
}

// finish commits the session's final state. It runs exactly once,
// after process exit.
func (c *Coordinator) finish(s *Session, prior *store.ResumeRecord) {
	exit := s.drv.WaitForExit()

	pos, ok := s.drv.LastKnown()
	if !ok {
		pos, ok = s.LastPosition()
	}

	var rec store.ResumeRecord
	var finished bool
	switch {
	case ok:
		finished = pos.Duration > 0 && pos.Seconds >= c.cfg.CompletionThreshold*pos.Duration
		rec = store.ResumeRecord{
			Path:     s.Entry,
			Position: pos.Seconds,
			Duration: pos.Duration,
			Finished: finished,
		}
		if prior != nil && rec.Duration == 0 {
			rec.Duration = prior.Duration
		}
	case prior != nil:
		// No position was ever observable: keep the record as it
		// was rather than inventing progress.
		rec = *prior
		finished = rec.Finished
	default:
		rec = store.ResumeRecord{Path: s.Entry}
	}
	rec.UpdatedAt = time.Now()

	c.commitWithRetry(rec)

	// A folder target keeps pointing at the last-played entry,
	// finished or not, so "resume folder" continues from here.
	if s.Folder != "" {
		if err := c.store.CommitFolder(store.FolderRecord{
			Folder:        s.Folder,
			SelectedEntry: s.Entry,
		}); err != nil {
			c.log.Warn("folder record update failed", "folder", s.Folder, "error", err)
		}
	}

	s.mu.Lock()
	s.last = pos
	s.hasLast = ok
	s.finished = finished
	s.exit = exit
	s.mu.Unlock()

	final := StatusEnded
	if exit.Err != nil {
		final = StatusFailed
	}
	c.setStatusAndEmit(s, StatusRunning, final)

	c.emitEnd(End{
		Entry:    s.Entry,
		Position: pos,
		Finished: finished,
		ExitCode: exit.Code,
	})
	close(s.done)
}

// commitWithRetry persists a record, retrying briefly on store
// failures. A lost checkpoint costs resume accuracy, not playback,
// so the last resort is a warning rather than an error.
func (c *Coordinator) commitWithRetry(rec store.ResumeRecord) bool {
	var err error
	for attempt := 0; attempt < commitRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(commitRetryBackoff * time.Duration(attempt))
		}
		if err = c.store.Commit(rec); err == nil {
			return true
		}
	}
	c.log.Warn("resume position not saved", "path", rec.Path, "error", err)
	return false
}

func (c *Coordinator) setStatusAndEmit(s *Session, previous, current Status) {
	s.setStatus(current)
	c.mu.Lock()
	subs := append([]*Subscription(nil), c.subs...)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.sendStatus(StatusChange{Entry: s.Entry, Previous: previous, Current: current})
	}
}

func (c *Coordinator) emitCheckpoint(e Checkpoint) {
	c.mu.Lock()
	subs := append([]*Subscription(nil), c.subs...)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.sendCheckpoint(e)
	}
}

func (c *Coordinator) emitEnd(e End) {
	c.mu.Lock()
	subs := append([]*Subscription(nil), c.subs...)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.sendEnd(e)
	}
}
