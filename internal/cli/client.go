package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/kilnhq/kilnd/internal/paths"
	"github.com/kilnhq/kilnd/internal/protocol"
)

// Timeout for a full command exchange with the daemon.
const clientTimeout = 30 * time.Second

// Sentinel error for daemon communication failures.
var ErrClient = errors.New("client error")

// Sends a single command to the daemon and returns the decoded response.
//
// Each exchange uses a fresh connection: one command out, one response back.
func roundTrip(cmd protocol.Command, payload any) (protocol.Envelope, json.RawMessage, error) {
	socketPath := RootCmd.Socket
	if socketPath == "" {
		socketPath = paths.Socket()
	}

	conn, err := net.DialTimeout("unix", socketPath, clientTimeout)
	if err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: daemon not reachable at %s", ErrClient, socketPath)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(clientTimeout))

	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: %w", ErrClient, err)
	}

	if _, err := conn.Write(data); err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: %w", ErrClient, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: %w", ErrClient, err)
	}

	env, result, err := protocol.Decode(line)
	if err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: %w", ErrClient, err)
	}

	if env.Command == protocol.CmdError {
		msg, err := protocol.DecodePayload[protocol.ErrorResult](result)
		if err != nil {
			return env, result, fmt.Errorf("%w: %w", ErrClient, err)
		}
		return env, result, fmt.Errorf("%w: %s", ErrClient, msg.Message)
	}

	return env, result, nil
}
