package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/kilnhq/kilnd/internal"
	"github.com/kilnhq/kilnd/internal/manifest"
	"github.com/kilnhq/kilnd/internal/pipeline"
	"github.com/kilnhq/kilnd/internal/protocol"
)

// Executes a bootstrap build on behalf of a connected client.
//
// The manifest is loaded and validated before any container work starts so
// that malformed requests fail fast with a client error rather than a
// half-finished build.
func (s *Server) handleBuild(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	bootstrap, err := manifest.Load(req.Manifest)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	if err := bootstrap.Validate(); err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	result, err := pipeline.Run(ctx, s.runtime, pipeline.Options{
		Bootstrap: bootstrap,
		Resource:  req.Resource,
		Root:      req.Root,
		Output:    req.Output,
		Platforms: req.Platforms,
		Cache:     s.cache,
	})
	if err != nil {
		slog.Error("build failed", "resource", req.Resource, "error", err)
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.BuildResult{
		Output:   result.Output,
		CacheHit: result.CacheHit,
	})
}

// Reports daemon liveness and build statistics.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	builds := s.builds
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
		Builds:  builds,
	})
}

// Acknowledges the shutdown request, then stops the server.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")
	s.Stop()
}
