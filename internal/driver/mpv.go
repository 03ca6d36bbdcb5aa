package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

const (
	connectRetryBase = 100 * time.Millisecond
	connectRetryMax  = time.Second
	queryTimeout     = 2 * time.Second
	cacheMaxAge      = 2 * time.Second
)

// MPVDriver controls mpv over its JSON IPC socket. It spawns the
// player idle, connects with bounded retries, loads the file at the
// requested offset, and keeps a cached last-known position fed by
// property-change events for the whole process lifetime.
type MPVDriver struct {
	opts Options

	mu         sync.Mutex
	cmd        *exec.Cmd
	ipc        *ipcClient
	socketPath string
	tempSocket bool
	done       chan struct{}
	status     ExitStatus

	// Single-slot cell for the last observed position. The event
	// listener writes it, QueryPosition and LastKnown read it;
	// the mutex guarantees no torn reads.
	cacheMu  sync.Mutex
	cache    Position
	hasCache bool
}

// NewMPV creates a precise IPC-socket driver.
func NewMPV(opts Options) *MPVDriver {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	return &MPVDriver{opts: opts}
}

func (d *MPVDriver) Launch(ctx context.Context, path string, startOffset float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return fmt.Errorf("launch: driver already has a session")
	}

	socketPath := d.opts.SocketPath
	tempSocket := socketPath == ""
	if tempSocket {
		socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("cue-mpv-%d.sock", os.Getpid()))
	}
	// A stale socket file from a crashed run would break the bind.
	_ = os.Remove(socketPath)

	cmd := exec.Command(d.opts.Executable,
		"--no-terminal",
		"--input-ipc-server="+socketPath,
		"--idle=once",
		"--keep-open=no",
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	done := make(chan struct{})
	d.cmd = cmd
	d.socketPath = socketPath
	d.tempSocket = tempSocket
	d.done = done

	go func() {
		err := cmd.Wait()
		d.mu.Lock()
		d.status = exitStatus(cmd, err)
		if d.ipc != nil {
			d.ipc.close()
		}
		if d.tempSocket {
			_ = os.Remove(d.socketPath)
		}
		d.mu.Unlock()
		close(done)
	}()

	conn, err := d.connect(ctx, socketPath, done)
	if err != nil {
		// Launch failed as a whole: reap the process we spawned.
		_ = cmd.Process.Kill()
		<-done
		return err
	}

	ipc := newIPCClient(conn, d.handleEvent)
	d.ipc = ipc

	// Keep the position cell fed without polling. Best-effort: if
	// observation fails we still poll over get_property.
	_, _ = ipc.command(queryTimeout, "observe_property", 1, "time-pos")
	_, _ = ipc.command(queryTimeout, "observe_property", 2, "duration")
	_, _ = ipc.command(queryTimeout, "observe_property", 3, "eof-reached")

	loadOpts := fmt.Sprintf("start=%.3f", startOffset)
	if _, err := ipc.command(queryTimeout, "loadfile", path, "replace", loadOpts); err != nil {
		_ = cmd.Process.Kill()
		<-done
		return fmt.Errorf("load file: %w", err)
	}

	// Seed the cell so LastKnown never trails behind the launch offset.
	d.cacheMu.Lock()
	d.cache = Position{Seconds: startOffset, At: time.Now()}
	d.hasCache = true
	d.cacheMu.Unlock()

	return nil
}

// connect dials the IPC socket, retrying with exponential backoff
// until the configured timeout. Fails early if the player process
// exits before the socket ever appears.
func (d *MPVDriver) connect(ctx context.Context, socketPath string, done chan struct{}) (net.Conn, error) {
	deadline := time.Now().Add(d.opts.ConnectTimeout)
	backoff := connectRetryBase

	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			return conn, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrConnectTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-done:
			return nil, fmt.Errorf("%w: player exited before socket appeared", ErrSpawnFailed)
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > connectRetryMax {
			backoff = connectRetryMax
		}
	}
}

// handleEvent runs on the IPC reader goroutine for every
// property-change pushed by the player.
func (d *MPVDriver) handleEvent(name string, data json.RawMessage) {
	switch name {
	case "time-pos":
		if v, ok := parseFloat(data); ok {
			d.cacheMu.Lock()
			d.cache.Seconds = v
			d.cache.At = time.Now()
			d.hasCache = true
			d.cacheMu.Unlock()
		}
	case "duration":
		if v, ok := parseFloat(data); ok {
			d.cacheMu.Lock()
			d.cache.Duration = v
			d.cacheMu.Unlock()
		}
	case "eof-reached":
		if v, ok := parseBool(data); ok && v {
			// The file ran to its end; pin the position there so
			// the final commit sees completion even if process
			// exit races the last poll.
			d.cacheMu.Lock()
			if d.cache.Duration > 0 {
				d.cache.Seconds = d.cache.Duration
			}
			d.cache.At = time.Now()
			d.hasCache = true
			d.cacheMu.Unlock()
		}
	}
}

func (d *MPVDriver) QueryPosition() (Position, error) {
	if !d.IsAlive() {
		return Position{}, ErrNotRunning
	}

	// Serve from the event-fed cell when fresh enough; a query
	// round-trip would add nothing but latency.
	d.cacheMu.Lock()
	cached, has := d.cache, d.hasCache
	d.cacheMu.Unlock()
	if has && time.Since(cached.At) < cacheMaxAge {
		return cached, nil
	}

	d.mu.Lock()
	ipc := d.ipc
	d.mu.Unlock()
	if ipc == nil {
		return Position{}, ErrNotRunning
	}

	data, err := ipc.command(queryTimeout, "get_property", "time-pos")
	if err != nil {
		return Position{}, err
	}
	seconds, ok := parseFloat(data)
	if !ok {
		return Position{}, ErrPositionUnavailable
	}

	d.cacheMu.Lock()
	d.cache.Seconds = seconds
	d.cache.At = time.Now()
	d.hasCache = true
	needDuration := d.cache.Duration == 0
	d.cacheMu.Unlock()

	if needDuration {
		if data, err := ipc.command(queryTimeout, "get_property", "duration"); err == nil {
			if duration, ok := parseFloat(data); ok {
				d.cacheMu.Lock()
				d.cache.Duration = duration
				d.cacheMu.Unlock()
			}
		}
	}

	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	return d.cache, nil
}

// LastKnown returns the most recent observed position, valid even
// after the process has exited.
func (d *MPVDriver) LastKnown() (Position, bool) {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	return d.cache, d.hasCache
}

func (d *MPVDriver) Terminate() error {
	if !d.IsAlive() {
		return nil // already gone, nothing to do
	}

	d.mu.Lock()
	ipc := d.ipc
	cmd := d.cmd
	done := d.done
	d.mu.Unlock()

	if ipc != nil {
		// The response may never arrive if the player quits before
		// replying, so the outcome that matters is process exit.
		_, _ = ipc.command(queryTimeout, "quit")
		select {
		case <-done:
			return nil
		case <-time.After(terminateGrace):
		}
	}
	if !d.IsAlive() {
		return nil
	}
	return cmd.Process.Kill()
}

func (d *MPVDriver) WaitForExit() ExitStatus {
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

func (d *MPVDriver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

func (d *MPVDriver) IsAlive() bool {
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

func (d *MPVDriver) Precision() Precision { return Precise }
