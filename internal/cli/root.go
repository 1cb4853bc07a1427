package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/kilnhq/kilnd/internal"
	"github.com/kilnhq/kilnd/internal/server"
)

// Represents the root command for the kilnd daemon.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Socket  string     `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Start   StartCmd   `cmd:"" help:"Start the daemon."`
	Build   BuildCmd   `cmd:"" help:"Run a bootstrap build without the daemon."`
	Status  StatusCmd  `cmd:"" help:"Show daemon status."`
	Stop    StopCmd    `cmd:"" help:"Stop a running daemon."`
	Prune   PruneCmd   `cmd:"" help:"Clear the dependency layer cache."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The kiln daemon.\n\nBuilds least-privilege container images from bootstrap manifests."),
		kong.UsageOnError(),
		kong.Vars{
			"version":              internal.VersionString(),
			"containerd_address":   server.DefaultContainerdAddress,
			"containerd_namespace": server.DefaultContainerdNamespace,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
//
// Flags override build-time defaults set via linker flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})

	slog.SetDefault(slog.New(handler))
}
