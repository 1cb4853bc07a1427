package cli

import (
	"context"
	"log/slog"

	"github.com/kilnhq/kilnd/internal/server"
)

// Represents the 'kilnd start' command.
type StartCmd struct {
	ContainerdAddress   string `help:"Containerd socket address." placeholder:"PATH" default:"${containerd_address}"`
	ContainerdNamespace string `help:"Containerd namespace." placeholder:"NS" default:"${containerd_namespace}"`
	CacheDir            string `help:"Dependency layer cache directory." placeholder:"DIR"`
}

// Executes the start command.
//
// Starts the daemon on a Unix domain socket and blocks until the context is
// cancelled (e.g. via SIGINT or SIGTERM).
func (c *StartCmd) Run(ctx context.Context) error {
	srv, err := server.New(server.Config{
		SocketPath:          RootCmd.Socket,
		ContainerdAddress:   c.ContainerdAddress,
		ContainerdNamespace: c.ContainerdNamespace,
		CacheDir:            c.CacheDir,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("kilnd is running")

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-srv.Done():
	}

	return srv.Stop()
}
