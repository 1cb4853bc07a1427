package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kilnhq/kilnd/internal/cache"
	"github.com/kilnhq/kilnd/internal/manifest"
	"github.com/kilnhq/kilnd/internal/paths"
	"github.com/kilnhq/kilnd/internal/runtime"
)

// Controls bootstrap execution.
type Options struct {
	Bootstrap *manifest.Bootstrap // Bootstrap manifest to execute.
	Resource  string              // Resource name, used as a prefix for container IDs.
	Root      string              // Build context, for resolving the requirements file and source tree.
	Output    string              // Directory for the exported image.
	Platforms []string            // Target platforms (e.g., ["linux/amd64"]). Defaults to host.
	Cache     *cache.Cache        // Dependency layer cache. Nil disables caching.
}

// Returned after successful bootstrap execution.
type Result struct {
	Output   string // Directory containing the exported image.
	CacheHit bool   // Whether the dependency layer was restored from cache.
}

// Executes a bootstrap manifest against the container runtime.
//
// The eight bootstrap steps run in strict order for each target platform:
// base selection, environment configuration, workdir establishment,
// identity provisioning, dependency installation, source materialization,
// privilege de-escalation, and entrypoint declaration. The first failing
// step aborts the build; partial container state is destroyed and no
// image is exported.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if err := opts.Bootstrap.Validate(); err != nil {
		return nil, err
	}

	if len(opts.Platforms) == 0 {
		opts.Platforms = []string{runtime.DefaultPlatform()}
	}

	slog.Info("executing bootstrap",
		"resource", opts.Resource,
		"base", opts.Bootstrap.Base,
		"output", opts.Output,
		"platforms", opts.Platforms,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	return newBuild(rt, opts).run(ctx)
}
