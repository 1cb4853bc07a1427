// Package runtime manages build containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon and provides the container
// operations the bootstrap pipeline needs. Base images are pulled from a
// registry by pinned reference, or imported from local OCI archives (the
// form dependency-layer cache entries take), unpacked for the target
// platform, and used to create containers with overlayfs snapshots.
//
// Each [Container] wraps a running containerd task. Commands execute
// inside the container as additional exec processes, optionally as a
// non-default identity, files stream in and out as tar archives, and the
// final filesystem state is committed and exported as a new OCI archive
// with entrypoint, environment, working directory, and user applied to
// the image config. When a container is no longer needed it should be
// destroyed to release its snapshot and task resources.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "kilnd")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartFromRef(ctx, "docker.io/library/python:3.12-slim", "build-1", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, runtime.ExecOptions{
//	    Shell:   "/bin/sh",
//	    Command: "pip install --no-cache-dir -r requirements.txt",
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = ctr.Export(ctx, "dist", runtime.ImageConfig{
//	    Entrypoint: []string{"python", "main.py"},
//	    User:       "999:999",
//	})
package runtime
