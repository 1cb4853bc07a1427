package runtime

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
)

// Creates a directory inside the container, including parents.
func (c *Container) MkdirAll(ctx context.Context, path string) error {
	return c.mustExec(ctx, "mkdir", ExecOptions{
		Args: []string{"mkdir", "-p", path},
	})
}

// Recursively changes ownership of a path inside the container.
//
// The owner is given as "user:group" and resolved by the container's own
// chown, so provisioned accounts are honored.
func (c *Container) ChownAll(ctx context.Context, path, owner string) error {
	return c.mustExec(ctx, "chown", ExecOptions{
		Args: []string{"chown", "-R", owner, path},
	})
}

// Copies a tar stream into the container's filesystem.
//
// The contents of r are extracted into destDir by piping them to "tar xf - -C
// destDir" inside the container.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return c.mustExec(ctx, "tar extract", ExecOptions{
		Args:  []string{"tar", "xf", "-", "-C", destDir},
		Stdin: r,
	})
}

// Copies a path from the container's filesystem as a tar stream.
//
// The file or directory at path is archived by running "tar cf - -C <dir>
// <base>" inside the container and streaming the output to w.
func (c *Container) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	return c.mustExec(ctx, "tar archive", ExecOptions{
		Args:   []string{"tar", "cf", "-", "-C", filepath.Dir(path), filepath.Base(path)},
		Stdout: w,
	})
}

// Helper method that runs a command inside the container, returning an error
// that includes desc if the process exits with a non-zero code.
func (c *Container) mustExec(ctx context.Context, desc string, opts ExecOptions) error {
	result, err := c.Exec(ctx, opts)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s failed with exit code %d (%s)", ErrRuntime, desc, result.ExitCode, result.Stderr)
	}
	return nil
}
