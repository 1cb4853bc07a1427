package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/kilnhq/kilnd/internal/protocol"
)

// Runs fn against one end of an in-memory connection and returns the
// response the server wrote to the other end.
func exchange(t *testing.T, fn func(conn net.Conn)) (protocol.Envelope, []byte) {
	t.Helper()

	client, srv := net.Pipe()
	defer client.Close()

	go func() {
		defer srv.Close()
		fn(srv)
	}()

	line, err := bufio.NewReader(client).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	env, payload, err := protocol.Decode(line)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}

	return env, payload
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := &Server{}

	env, payload := exchange(t, func(conn net.Conn) {
		s.dispatch(context.Background(), conn, protocol.Command("bogus"), nil)
	})

	if env.Command != protocol.CmdError {
		t.Fatalf("expected %q response, got %q", protocol.CmdError, env.Command)
	}

	result, err := protocol.DecodePayload[protocol.ErrorResult](payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !strings.Contains(result.Message, "bogus") {
		t.Fatalf("expected error message to name the command, got %q", result.Message)
	}
}

func TestHandleStatus(t *testing.T) {
	s := &Server{startedAt: time.Now().Add(-time.Minute)}
	s.builds = 3

	env, payload := exchange(t, func(conn net.Conn) {
		s.handleStatus(conn)
	})

	if env.Command != protocol.CmdOK {
		t.Fatalf("expected %q response, got %q", protocol.CmdOK, env.Command)
	}

	status, err := protocol.DecodePayload[protocol.StatusResult](payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	if !status.Running {
		t.Error("expected running to be true")
	}
	if status.Builds != 3 {
		t.Errorf("expected 3 builds, got %d", status.Builds)
	}
	if status.Pid == 0 {
		t.Error("expected a nonzero pid")
	}
}

func TestContextWithDisconnect(t *testing.T) {
	r, w := io.Pipe()

	ctx, cancel := contextWithDisconnect(context.Background(), r)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before disconnect")
	default:
	}

	w.Close()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after disconnect")
	}
}

func TestContextWithDisconnectCancel(t *testing.T) {
	r, _ := io.Pipe()

	ctx, cancel := contextWithDisconnect(context.Background(), r)
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not propagate")
	}
}
