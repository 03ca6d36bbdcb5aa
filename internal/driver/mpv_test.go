package driver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// writeStubPlayer creates an executable that ignores its arguments
// and stays alive until killed, standing in for the player process.
func writeStubPlayer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub-player")
	script := "#!/bin/sh\nexec sleep 60\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeMPVServer implements enough of mpv's JSON IPC for the driver:
// it answers every command with success and scripted property data,
// and records the commands it saw.
type fakeMPVServer struct {
	t        *testing.T
	listener net.Listener

	mu       sync.Mutex
	conn     net.Conn
	commands [][]any
	timePos  float64
	duration float64
}

// start begins listening at socketPath after a short delay, mirroring
// a player that needs a moment to create its socket. The driver's
// connect retry loop is expected to absorb the delay.
func startFakeMPV(t *testing.T, socketPath string, delay time.Duration) *fakeMPVServer {
	t.Helper()
	s := &fakeMPVServer{t: t, timePos: 100, duration: 200}

	go func() {
		time.Sleep(delay)
		ln, err := net.Listen("unix", socketPath)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.listener = ln
		s.mu.Unlock()

		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.serve(conn)
	}()

	t.Cleanup(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.conn != nil {
			s.conn.Close()
		}
		if s.listener != nil {
			s.listener.Close()
		}
	})
	return s
}

func (s *fakeMPVServer) serve(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		var req ipcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		s.mu.Lock()
		s.commands = append(s.commands, req.Command)
		timePos, duration := s.timePos, s.duration
		s.mu.Unlock()

		resp := map[string]any{"error": "success", "request_id": req.RequestID}
		if len(req.Command) >= 2 && req.Command[0] == "get_property" {
			switch req.Command[1] {
			case "time-pos":
				resp["data"] = timePos
			case "duration":
				resp["data"] = duration
			}
		}

		data, _ := json.Marshal(resp)
		if _, err := conn.Write(append(data, '\n')); err != nil {
			return
		}
	}
}

// pushEvent sends an asynchronous property-change to the driver.
func (s *fakeMPVServer) pushEvent(name string, data any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.t.Fatal("no connection to push event on")
	}
	payload, _ := json.Marshal(map[string]any{
		"event": "property-change", "id": 1, "name": name, "data": data,
	})
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		s.t.Errorf("pushEvent failed: %v", err)
	}
}

func (s *fakeMPVServer) sawCommand(name string) ([]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range s.commands {
		if len(cmd) > 0 && cmd[0] == name {
			return cmd, true
		}
	}
	return nil, false
}

func launchTestMPV(t *testing.T, startOffset float64) (*MPVDriver, *fakeMPVServer) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "mpv.sock")
	server := startFakeMPV(t, socketPath, 150*time.Millisecond)

	d := NewMPV(Options{
		Executable:     writeStubPlayer(t),
		SocketPath:     socketPath,
		ConnectTimeout: 5 * time.Second,
	})
	if err := d.Launch(context.Background(), "/media/ep1.mp4", startOffset); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	t.Cleanup(func() {
		_ = d.cmd.Process.Kill()
		<-d.Done()
	})
	return d, server
}

func TestMPV_LaunchLoadsFileAtOffset(t *testing.T) {
	d, server := launchTestMPV(t, 300)

	cmd, ok := server.sawCommand("loadfile")
	if !ok {
		t.Fatal("driver never sent loadfile")
	}
	if cmd[1] != "/media/ep1.mp4" {
		t.Errorf("loadfile path = %v", cmd[1])
	}
	if len(cmd) < 4 || cmd[3] != "start=300.000" {
		t.Errorf("loadfile options = %v, want start=300.000", cmd)
	}

	if !d.IsAlive() {
		t.Error("IsAlive = false after successful launch")
	}
	if d.Precision() != Precise {
		t.Errorf("Precision = %v, want Precise", d.Precision())
	}
}

func TestMPV_LaunchSubscribesToProperties(t *testing.T) {
	_, server := launchTestMPV(t, 0)

	for _, prop := range []string{"time-pos", "duration", "eof-reached"} {
		found := false
		server.mu.Lock()
		for _, cmd := range server.commands {
			if len(cmd) >= 3 && cmd[0] == "observe_property" && cmd[2] == prop {
				found = true
			}
		}
		server.mu.Unlock()
		if !found {
			t.Errorf("driver did not observe %q", prop)
		}
	}
}

func TestMPV_EventsFeedPositionCache(t *testing.T) {
	d, server := launchTestMPV(t, 0)

	server.pushEvent("duration", 1420.0)
	server.pushEvent("time-pos", 710.0)

	waitFor(t, time.Second, func() bool {
		pos, ok := d.LastKnown()
		return ok && pos.Seconds == 710.0 && pos.Duration == 1420.0
	})

	// Fresh cache serves the query without a round-trip.
	pos, err := d.QueryPosition()
	if err != nil {
		t.Fatalf("QueryPosition failed: %v", err)
	}
	if pos.Seconds != 710.0 || pos.Duration != 1420.0 {
		t.Errorf("QueryPosition = %+v, want cached 710/1420", pos)
	}
}

func TestMPV_EOFPinsPositionToDuration(t *testing.T) {
	d, server := launchTestMPV(t, 0)

	server.pushEvent("duration", 1420.0)
	server.pushEvent("time-pos", 1400.0)
	server.pushEvent("eof-reached", true)

	waitFor(t, time.Second, func() bool {
		pos, ok := d.LastKnown()
		return ok && pos.Seconds == 1420.0
	})
}

func TestMPV_ConnectTimeout(t *testing.T) {
	// No server ever listens: the socket never appears.
	d := NewMPV(Options{
		Executable:     writeStubPlayer(t),
		SocketPath:     filepath.Join(t.TempDir(), "never.sock"),
		ConnectTimeout: 300 * time.Millisecond,
	})

	err := d.Launch(context.Background(), "/media/ep1.mp4", 0)
	if !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("Launch error = %v, want ErrConnectTimeout", err)
	}
	// The spawned process must have been reaped.
	if d.IsAlive() {
		t.Error("IsAlive = true after failed launch")
	}
}

func TestMPV_SpawnFailure(t *testing.T) {
	d := NewMPV(Options{
		Executable:     "/nonexistent/player-binary",
		SocketPath:     filepath.Join(t.TempDir(), "mpv.sock"),
		ConnectTimeout: time.Second,
	})

	err := d.Launch(context.Background(), "/media/ep1.mp4", 0)
	if !errors.Is(err, ErrSpawnFailed) {
		t.Errorf("Launch error = %v, want ErrSpawnFailed", err)
	}
}

func TestMPV_LaunchContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	d := NewMPV(Options{
		Executable:     writeStubPlayer(t),
		SocketPath:     filepath.Join(t.TempDir(), "never.sock"),
		ConnectTimeout: 10 * time.Second,
	})

	err := d.Launch(ctx, "/media/ep1.mp4", 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Launch error = %v, want context.Canceled", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
