package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kilnhq/kilnd/internal/cache"
	"github.com/kilnhq/kilnd/internal/manifest"
	"github.com/kilnhq/kilnd/internal/pipeline"
	"github.com/kilnhq/kilnd/internal/runtime"
)

// Represents the 'kilnd build' command.
//
// Runs a bootstrap build in-process, without a running daemon. Useful for
// local development and CI environments where a long-lived daemon is
// unnecessary.
type BuildCmd struct {
	File                string   `arg:"" help:"Path to the bootstrap manifest." type:"existingfile"`
	Root                string   `short:"C" help:"Build context directory. Defaults to the manifest's directory." placeholder:"DIR"`
	Name                string   `short:"n" help:"Name for the build. Defaults to the build context directory name." placeholder:"NAME"`
	Output              string   `short:"o" help:"Output directory for the exported image." default:"dist" placeholder:"DIR"`
	Platform            []string `short:"p" help:"Target platforms (e.g. linux/amd64). Defaults to the host platform."`
	NoCache             bool     `help:"Bypass the dependency layer cache."`
	ContainerdAddress   string   `help:"Containerd socket address." placeholder:"PATH" default:"${containerd_address}"`
	ContainerdNamespace string   `help:"Containerd namespace." placeholder:"NS" default:"${containerd_namespace}"`
	CacheDir            string   `help:"Dependency layer cache directory." placeholder:"DIR"`
}

// Executes the build command.
func (c *BuildCmd) Run(ctx context.Context) error {
	bootstrap, err := manifest.Load(c.File)
	if err != nil {
		return err
	}

	if err := bootstrap.Validate(); err != nil {
		return err
	}

	root := c.Root
	if root == "" {
		root = filepath.Dir(c.File)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}

	name := c.Name
	if name == "" {
		name = filepath.Base(root)
	}

	rt, err := runtime.New(c.ContainerdAddress, c.ContainerdNamespace)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := pipeline.Options{
		Bootstrap: bootstrap,
		Resource:  name,
		Root:      root,
		Output:    c.Output,
		Platforms: c.Platform,
	}

	if !c.NoCache {
		layers, err := cache.Open(c.CacheDir)
		if err != nil {
			return err
		}
		opts.Cache = layers
	}

	result, err := pipeline.Run(ctx, rt, opts)
	if err != nil {
		return err
	}

	fmt.Println(result.Output)
	return nil
}
