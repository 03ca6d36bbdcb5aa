package driver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// ipcMessage is one line of mpv's JSON IPC protocol, covering both
// command responses (request_id set) and asynchronous events.
type ipcMessage struct {
	Event     string          `json:"event,omitempty"`
	ID        int             `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// ipcClient speaks mpv's line-delimited JSON IPC over a local socket.
// One reader goroutine owns the connection's read side, routing
// responses to their waiting callers by request id and delivering
// property-change events to the onEvent callback. The socket is owned
// exclusively by one driver instance.
type ipcClient struct {
	conn    net.Conn
	onEvent func(name string, data json.RawMessage)

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int
	pending map[int]chan ipcMessage
	closed  bool

	readerDone chan struct{}
}

func newIPCClient(conn net.Conn, onEvent func(name string, data json.RawMessage)) *ipcClient {
	c := &ipcClient{
		conn:       conn,
		onEvent:    onEvent,
		pending:    make(map[int]chan ipcMessage),
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *ipcClient) readLoop() {
	defer close(c.readerDone)

	scanner := bufio.NewScanner(c.conn)
	// Property values are tiny; 64k lines are far beyond anything
	// mpv sends, but playlists in responses can get long.
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg ipcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue // not fatal, skip malformed lines
		}

		if msg.Event == "property-change" {
			if c.onEvent != nil {
				c.onEvent(msg.Name, msg.Data)
			}
			continue
		}
		if msg.RequestID == 0 {
			continue // other events (start-file, end-file, ...) are not tracked
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		if ok {
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()

		if ok {
			ch <- msg
		}
	}

	// Socket gone: fail everything still waiting.
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[int]chan ipcMessage)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// command sends an IPC command and waits for its correlated response,
// bounded by timeout.
func (c *ipcClient) command(timeout time.Duration, cmd ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrNotRunning
	}
	c.nextID++
	id := c.nextID
	ch := make(chan ipcMessage, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(ipcRequest{Command: cmd, RequestID: id})
	if err != nil {
		c.abandon(id)
		return nil, err
	}
	payload = append(payload, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(payload)
	c.writeMu.Unlock()
	if err != nil {
		c.abandon(id)
		return nil, err
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, ErrNotRunning
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("ipc command failed: %s", msg.Error)
		}
		return msg.Data, nil
	case <-time.After(timeout):
		c.abandon(id)
		return nil, ErrQueryTimeout
	}
}

func (c *ipcClient) abandon(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *ipcClient) close() {
	c.conn.Close()
	<-c.readerDone
}

// parseFloat decodes a numeric property value. mpv sends null for
// properties that are momentarily unset.
func parseFloat(data json.RawMessage) (float64, bool) {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		return 0, false
	}
	return *v, true
}

func parseBool(data json.RawMessage) (bool, bool) {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		return false, false
	}
	return *v, true
}
