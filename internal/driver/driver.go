// Package driver abstracts external media player backends. A driver
// owns one playback session from spawn to process exit: it launches
// the player, reports the best-known playback position on demand, and
// signals termination.
//
// Two precision tiers exist. A coarse driver only knows that the
// process is running or has exited; it can never report a live
// position. A precise driver controls the player over a local IPC
// socket and tracks the position continuously.
package driver

import (
	"context"
	"errors"
	"time"
)

// Precision is the position-observability tier of a driver.
type Precision int

const (
	// Coarse means process-exit is the only observable signal.
	Coarse Precision = iota
	// Precise means the driver has a live position feed over IPC.
	Precise
)

// String returns the precision name.
func (p Precision) String() string {
	switch p {
	case Coarse:
		return "coarse"
	case Precise:
		return "precise"
	default:
		return "unknown"
	}
}

// Sentinel errors returned by drivers.
var (
	// ErrSpawnFailed wraps a failure to start the player process.
	ErrSpawnFailed = errors.New("player process failed to start")
	// ErrConnectTimeout means the control socket never appeared.
	ErrConnectTimeout = errors.New("timed out connecting to player socket")
	// ErrQueryTimeout means a position query got no response in time.
	ErrQueryTimeout = errors.New("position query timed out")
	// ErrPositionUnavailable means this driver has no position feed.
	ErrPositionUnavailable = errors.New("position unavailable")
	// ErrNotRunning means the operation needs a live player process.
	ErrNotRunning = errors.New("player is not running")
)

// Position is a point-in-time playback observation.
type Position struct {
	Seconds  float64 // current offset, seconds
	Duration float64 // total length, seconds; 0 = unknown
	At       time.Time
}

// ExitStatus describes how the player process ended.
type ExitStatus struct {
	Code int
	Err  error // non-nil when the process could not be waited on
}

// Driver is the capability contract over one player backend.
// QueryPosition on a coarse driver always fails with
// ErrPositionUnavailable; the method is present anyway so callers can
// run one uniform sampling loop regardless of backend.
type Driver interface {
	// Launch spawns the player on path, seeking to startOffset
	// seconds when the backend supports it. The context bounds
	// launch-time work (socket connect), not the playback itself.
	Launch(ctx context.Context, path string, startOffset float64) error

	// QueryPosition returns the best-known current position.
	QueryPosition() (Position, error)

	// LastKnown returns the last confident position observation,
	// valid even after the process has exited. ok is false when no
	// session was ever launched. A coarse driver reports the offset
	// it was launched at; that is the only position it can vouch for.
	LastKnown() (Position, bool)

	// Terminate asks the player to quit, escalating to a process
	// kill if it does not comply.
	Terminate() error

	// WaitForExit blocks until the process terminates. It always
	// eventually returns, even if the control channel has failed.
	WaitForExit() ExitStatus

	// Done is closed when the process has exited.
	Done() <-chan struct{}

	// IsAlive reports whether the player process is still running.
	IsAlive() bool

	// Precision reports this driver's observability tier.
	Precision() Precision
}

// Options configures a driver instance.
type Options struct {
	Executable     string        // player binary, looked up in PATH if relative
	SocketPath     string        // IPC socket path; empty = per-process temp socket
	ConnectTimeout time.Duration // bound on IPC socket connect
}
