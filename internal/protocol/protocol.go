package protocol

import (
	"encoding/json"
	"fmt"
)

// Command names exchanged between the CLI and the daemon.
type Command string

const (
	CmdBuild    Command = "build"
	CmdStatus   Command = "status"
	CmdShutdown Command = "shutdown"
	CmdOK       Command = "ok"
	CmdError    Command = "error"
)

// State of a build container as reported by the runtime.
type ContainerState string

const (
	ContainerNotCreated ContainerState = "not-created"
	ContainerRunning    ContainerState = "running"
	ContainerStopped    ContainerState = "stopped"
)

// Wraps a command and its payload for transport as a single JSON line.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Asks the daemon to execute a bootstrap manifest.
type BuildRequest struct {
	Manifest  string   `json:"manifest"`            // Path to the bootstrap manifest.
	Root      string   `json:"root"`                // Build context directory.
	Output    string   `json:"output"`              // Directory for the exported image.
	Resource  string   `json:"resource"`            // Name used as a prefix for container IDs.
	Platforms []string `json:"platforms,omitempty"` // Target platforms. Empty means host.
}

// Reports the outcome of a successful build.
type BuildResult struct {
	Output   string `json:"output"`   // Directory containing the exported image.
	CacheHit bool   `json:"cacheHit"` // Whether the dependency layer was restored from cache.
}

// Reports daemon health and counters.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"`
}

// Carries an error message back to the client.
type ErrorResult struct {
	Message string `json:"message"`
}

// Serializes a command and payload into a newline-terminated JSON envelope.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		env.Payload = raw
	}

	line, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	return append(line, '\n'), nil
}

// Parses a JSON line into an envelope, returning the raw payload for
// command-specific decoding.
func Decode(line []byte) (Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Command == "" {
		return Envelope{}, nil, fmt.Errorf("envelope has no command")
	}
	return env, env.Payload, nil
}

// Decodes a raw payload into a concrete request or result type.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	var v T
	if len(payload) == 0 {
		return &v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &v, nil
}
