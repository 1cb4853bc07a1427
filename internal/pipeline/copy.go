package pipeline

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kilnhq/kilnd/internal/runtime"
)

// Copies a single host file into a container directory under the given
// archive name.
func copyFileTo(ctx context.Context, ctr *runtime.Container, hostPath, name, destDir string) error {
	if _, err := os.Stat(hostPath); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		err := writeFileToTar(tw, hostPath, name)
		tw.Close()
		pw.CloseWithError(err)
	}()

	if err := ctr.CopyTo(ctx, pr, destDir); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	return nil
}

// Copies the contents of a host directory tree into a container directory.
//
// The tree's entries land directly inside destDir rather than under a
// subdirectory named after the source.
func copyTreeTo(ctx context.Context, ctr *runtime.Container, hostDir, destDir string) error {
	info, err := os.Stat(hostDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source %q is not a directory", ErrCopy, hostDir)
	}

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		err := writeDirToTar(tw, hostDir, ".")
		tw.Close()
		pw.CloseWithError(err)
	}()

	if err := ctr.CopyTo(ctx, pr, destDir); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	return nil
}

// Writes a single file to a tar writer with the given archive name.
func writeFileToTar(tw *tar.Writer, hostPath, name string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

// Writes a directory tree to a tar writer rooted at the given archive prefix.
func writeDirToTar(tw *tar.Writer, hostDir, prefix string) error {
	return filepath.WalkDir(hostDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(hostDir, path)
		if err != nil {
			return err
		}

		archivePath := filepath.ToSlash(filepath.Join(prefix, relPath))
		return writeTarEntry(tw, path, archivePath, d)
	})
}

// Writes a single file or directory entry to a tar writer.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, d os.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}

	return nil
}
