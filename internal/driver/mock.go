package driver

import (
	"context"
	"sync"
)

// Compile-time contract checks.
var (
	_ Driver = (*CoarseDriver)(nil)
	_ Driver = (*MPVDriver)(nil)
	_ Driver = (*Mock)(nil)
)

// LaunchCall records one Launch invocation on the mock.
type LaunchCall struct {
	Path        string
	StartOffset float64
}

// Mock is a scriptable test double for Driver.
type Mock struct {
	mu          sync.Mutex
	precision   Precision
	launched    bool
	launchErr   error
	launchCalls []LaunchCall
	position    Position
	hasPosition bool
	queryErr    error
	terminated  bool
	done        chan struct{}
	status      ExitStatus
}

// NewMock creates a mock driver for testing. It defaults to Precise.
func NewMock() *Mock {
	return &Mock{
		precision: Precise,
		done:      make(chan struct{}),
	}
}

func (m *Mock) Launch(_ context.Context, path string, startOffset float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.launchCalls = append(m.launchCalls, LaunchCall{Path: path, StartOffset: startOffset})
	if m.launchErr != nil {
		return m.launchErr
	}
	m.launched = true
	if !m.hasPosition {
		m.position = Position{Seconds: startOffset}
		m.hasPosition = true
	}
	return nil
}

func (m *Mock) QueryPosition() (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryErr != nil {
		return Position{}, m.queryErr
	}
	if !m.launched {
		return Position{}, ErrNotRunning
	}
	return m.position, nil
}

func (m *Mock) LastKnown() (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position, m.hasPosition
}

func (m *Mock) Terminate() error {
	m.mu.Lock()
	m.terminated = true
	m.mu.Unlock()
	m.FinishWith(0)
	return nil
}

func (m *Mock) WaitForExit() ExitStatus {
	<-m.done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Mock) Done() <-chan struct{} { return m.done }

func (m *Mock) IsAlive() bool {
	select {
	case <-m.done:
		return false
	default:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.launched
	}
}

func (m *Mock) Precision() Precision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.precision
}

// Test helpers

// SetPrecision switches the reported precision tier.
func (m *Mock) SetPrecision(p Precision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.precision = p
}

// SetPosition scripts the position QueryPosition will report.
func (m *Mock) SetPosition(seconds, duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = Position{Seconds: seconds, Duration: duration}
	m.hasPosition = true
}

// SetQueryError makes QueryPosition fail with err until cleared.
func (m *Mock) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// SetLaunchError makes the next Launch fail with err.
func (m *Mock) SetLaunchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchErr = err
}

// FinishWith simulates process exit with the given code.
func (m *Mock) FinishWith(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.done:
		return // already finished
	default:
	}
	m.status = ExitStatus{Code: code}
	close(m.done)
}

// LaunchCalls returns every recorded Launch invocation.
func (m *Mock) LaunchCalls() []LaunchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LaunchCall(nil), m.launchCalls...)
}

// Terminated reports whether Terminate was called.
func (m *Mock) Terminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}
