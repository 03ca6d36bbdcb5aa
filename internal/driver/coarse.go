package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const terminateGrace = 2 * time.Second

// CoarseDriver spawns the player and observes nothing but its exit.
// The position it was launched at is the only position it will ever
// know; it never fabricates progress beyond that.
type CoarseDriver struct {
	opts Options

	mu     sync.Mutex
	cmd    *exec.Cmd
	offset float64
	done   chan struct{}
	status ExitStatus
}

// NewCoarse creates a coarse process-lifetime driver.
func NewCoarse(opts Options) *CoarseDriver {
	return &CoarseDriver{opts: opts}
}

func (d *CoarseDriver) Launch(_ context.Context, path string, startOffset float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return fmt.Errorf("launch: driver already has a session")
	}

	args := []string{}
	if startOffset > 0 && acceptsStartFlag(d.opts.Executable) {
		args = append(args, fmt.Sprintf("--start=%.3f", startOffset))
	}
	args = append(args, path)

	cmd := exec.Command(d.opts.Executable, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	d.cmd = cmd
	d.offset = startOffset
	d.done = make(chan struct{})

	go func() {
		err := cmd.Wait()
		d.mu.Lock()
		d.status = exitStatus(cmd, err)
		d.mu.Unlock()
		close(d.done)
	}()

	return nil
}

// QueryPosition always fails: a process handle carries no position.
func (d *CoarseDriver) QueryPosition() (Position, error) {
	return Position{}, ErrPositionUnavailable
}

// LastKnown returns the offset playback was started at. Without a
// position feed that launch offset stays the last confident position
// for the whole session.
func (d *CoarseDriver) LastKnown() (Position, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil {
		return Position{}, false
	}
	return Position{Seconds: d.offset}, true
}

func (d *CoarseDriver) Terminate() error {
	d.mu.Lock()
	cmd, done := d.cmd, d.done
	d.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return ErrNotRunning
	}

	// Ask nicely first, then kill.
	_ = cmd.Process.Signal(os.Interrupt)
	select {
	case <-done:
		return nil
	case <-time.After(terminateGrace):
	}
	return cmd.Process.Kill()
}

func (d *CoarseDriver) WaitForExit() ExitStatus {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return ExitStatus{Err: ErrNotRunning}
	}
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *CoarseDriver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

func (d *CoarseDriver) IsAlive() bool {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (d *CoarseDriver) Precision() Precision { return Coarse }

// acceptsStartFlag reports whether the executable is known to take an
// mpv-style --start argument. Unknown players get launched without a
// seek; the resume is then approximate, which the coarse tier already
// implies.
func acceptsStartFlag(executable string) bool {
	base := strings.ToLower(filepath.Base(executable))
	return strings.Contains(base, "mpv") || strings.Contains(base, "celluloid")
}

func exitStatus(cmd *exec.Cmd, waitErr error) ExitStatus {
	if cmd.ProcessState != nil {
		return ExitStatus{Code: cmd.ProcessState.ExitCode()}
	}
	return ExitStatus{Code: -1, Err: waitErr}
}
