package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// Identity to run an exec process as, overriding the container's default.
type ExecUser struct {
	UID uint32
	GID uint32
}

// Controls a single command execution inside a container.
//
// When Shell is set, Command is passed as a single argument via
// "shell -c command". Otherwise Args is run directly without shell
// wrapping. Env, Workdir, and User override the container's OCI spec for
// this execution only.
type ExecOptions struct {
	Shell   string    // Shell binary for command execution.
	Command string    // Command string, passed to the shell.
	Args    []string  // Direct argv, used when Shell is empty.
	Env     []string  // Environment overrides as "key=value" entries.
	Workdir string    // Working directory override.
	User    *ExecUser // Identity override. Nil keeps the container default.
	Stdin   io.Reader // Optional stdin for the process.
	Stdout  io.Writer // Optional stdout sink. Nil captures into the result.
}

// Output of a command execution inside a container.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Stdout   string // Captured standard output. Empty when a sink was supplied.
	Stderr   string // Captured standard error.
}

// Runs a command inside the container.
//
// A non-zero exit code is not treated as an error; the caller decides how
// to handle it.
func (c *Container) Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	args := opts.Args
	if opts.Shell != "" {
		args = []string{opts.Shell, "-c", opts.Command}
	}

	pspec, err := c.buildProcessSpec(ctx, opts, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	var stdout bytes.Buffer
	out := opts.Stdout
	if out == nil {
		out = &stdout
	}

	var stderr bytes.Buffer
	exitCode, err := c.execProcess(ctx, pspec, opts.Stdin, out, &stderr)
	if err != nil {
		return nil, err
	}

	return &ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Builds an OCI process spec for running a command inside the container.
//
// A process spec defines everything needed to start a process: the command
// and arguments, environment variables, working directory, identity, and
// terminal mode. The base values are copied from the container's own OCI
// spec, then the option overrides are applied.
func (c *Container) buildProcessSpec(ctx context.Context, opts ExecOptions, args []string) (*specs.Process, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args

	if len(opts.Env) > 0 {
		pspec.Env = mergeEnv(pspec.Env, opts.Env)
	}
	if opts.Workdir != "" {
		pspec.Cwd = opts.Workdir
	}
	if opts.User != nil {
		pspec.User = specs.User{
			UID: opts.User.UID,
			GID: opts.User.GID,
		}
	}

	return &pspec, nil
}

// Merges override env vars on top of a base env slice.
func mergeEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	return result
}

// Starts a process inside the container's running task, waits for it to exit,
// and returns the exit code.
//
// The process is attached to the task as an additional exec, not as the
// primary process. This requires the task to already be running (started
// during container creation). stdin, stdout, and stderr are connected to
// the process. A nil stdin is left disconnected. A non-zero exit code is
// not treated as an error; the caller decides how to handle it.
//
// When stdin is provided, the container's stdin is explicitly closed after the
// reader returns EOF so the exec process receives the EOF signal. This is
// required because the containerd shim holds both ends of the stdin FIFO open
// and will not propagate EOF on its own.
func (c *Container) execProcess(ctx context.Context, pspec *specs.Process, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	task, err := c.loadTask(ctx)
	if err != nil {
		return 0, err
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	// Wrap stdin to detect when the reader returns EOF.
	var stdinDone <-chan struct{}
	if stdin != nil {
		dr := newDoneReader(stdin)
		stdin = dr
		stdinDone = dr.done
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(stdin, stdout, stderr),
	))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return awaitProcess(ctx, process, stdinDone)
}

// Loads the container's running task.
func (c *Container) loadTask(ctx context.Context) (containerd.Task, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return task, nil
}

// Waits for an exec process to exit and returns the exit code.
//
// The process is started, then the function blocks until it exits. If
// stdinDone is non-nil, the process stdin is closed when the channel fires
// so the exec process receives EOF. The process is always deleted before
// returning.
func awaitProcess(ctx context.Context, process containerd.Process, stdinDone <-chan struct{}) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	// Close the container's stdin after the reader is exhausted. Without this
	// the shim keeps its write end of the stdin FIFO open and the exec process
	// never receives EOF.
	if stdinDone != nil {
		go func() {
			<-stdinDone
			process.CloseIO(ctx, containerd.WithStdinCloser)
		}()
	}

	exitStatus := <-statusC
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return int(code), nil
}
