package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/kilnhq/kilnd/internal/cache"
	"github.com/kilnhq/kilnd/internal/manifest"
	"github.com/kilnhq/kilnd/internal/paths"
	"github.com/kilnhq/kilnd/internal/runtime"
)

// Holds shared state for executing a bootstrap across all platforms.
type build struct {
	rt         *runtime.Runtime     // Container runtime for image and container operations.
	bootstrap  *manifest.Bootstrap  // Manifest being executed.
	resource   string               // Resource name, used as a prefix for container IDs.
	root       string               // Build context directory.
	output     string               // Output directory for the final build artifact.
	platforms  []string             // Target platforms to build for.
	cache      *cache.Cache         // Dependency layer cache. Nil disables caching.
	containers []*runtime.Container // Build containers across all platforms, destroyed after the build completes.
	cacheHit   bool                 // Whether any platform restored its dependency layer from cache.
}

// Creates a new [build] from the given options.
func newBuild(rt *runtime.Runtime, opts Options) *build {
	return &build{
		rt:        rt,
		bootstrap: opts.Bootstrap,
		resource:  opts.Resource,
		root:      opts.Root,
		output:    opts.Output,
		platforms: opts.Platforms,
		cache:     opts.Cache,
	}
}

// Executes the bootstrap end-to-end against the container runtime.
//
// Each target platform is built independently. All build containers are
// destroyed when the build completes, successful or not.
func (b *build) run(ctx context.Context) (*Result, error) {
	defer b.destroyContainers(ctx)

	for _, platform := range b.platforms {
		if err := b.buildPlatform(ctx, platform); err != nil {
			return nil, fmt.Errorf("%w: platform %s: %w", ErrBuild, platform, err)
		}
	}

	return &Result{Output: b.output, CacheHit: b.cacheHit}, nil
}

// Executes the bootstrap steps for a single platform.
//
// The requirements file is read and checked before any container exists,
// so a malformed manifest entry never costs a base pull. When the layer
// cache holds an entry for the dependency key, the first five steps are
// replaced by restoring the cached archive and the pipeline resumes at
// source materialization.
func (b *build) buildPlatform(ctx context.Context, platform string) error {
	slog.Info("building platform", "platform", platform)

	output := b.platformOutput(platform)
	if err := os.MkdirAll(output, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	requirements, err := b.readRequirements()
	if err != nil {
		return err
	}

	state := newBuildState(b.bootstrap.Env)

	ctr, err := b.provision(ctx, state, requirements, platform)
	if err != nil {
		return err
	}

	if err := b.copySource(ctx, ctr, state); err != nil {
		return err
	}

	if err := b.dropPrivileges(ctx, ctr, state); err != nil {
		return err
	}

	return b.declareEntrypoint(ctx, ctr, state, output)
}

// Reads and checks the dependency manifest from the build context.
//
// A syntactically invalid entry fails the build here, before any
// container or network activity.
func (b *build) readRequirements() ([]byte, error) {
	path := filepath.Join(b.root, b.bootstrap.Dependencies.Manifest)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDependencies, err)
	}

	if _, err := manifest.ParseRequirements(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return data, nil
}

// Produces a container whose filesystem holds the provisioned identity and
// installed dependencies, either by executing steps one through five or by
// restoring a cached dependency layer.
func (b *build) provision(ctx context.Context, state *buildState, requirements []byte, platform string) (*runtime.Container, error) {
	key, err := b.layerKey(requirements, platform)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if archived, ok := b.cache.Lookup(key); ok {
			return b.restoreLayer(ctx, state, archived, platform)
		}
	}

	ctr, err := b.selectBase(ctx, state, platform)
	if err != nil {
		return nil, err
	}

	if err := b.configureEnv(state); err != nil {
		return nil, err
	}

	if err := b.establishWorkdir(ctx, ctr, state); err != nil {
		return nil, err
	}

	if err := b.provisionIdentity(ctx, ctr, state); err != nil {
		return nil, err
	}

	if err := b.installDependencies(ctx, ctr, state); err != nil {
		return nil, err
	}

	if b.cache != nil {
		if err := b.commitLayer(ctx, ctr, state, key); err != nil {
			// A failed cache commit costs reuse, not correctness.
			slog.Warn("failed to cache dependency layer", "error", err)
		}
	}

	return ctr, nil
}

// Restores a cached dependency layer as the build container.
//
// The archive already contains the provisioned identity, the workdir, and
// the installed dependencies, so the state is fast-forwarded through the
// five steps the cache replaces. The identity's uid and gid are resolved
// from the restored filesystem.
func (b *build) restoreLayer(ctx context.Context, state *buildState, archived, platform string) (*runtime.Container, error) {
	slog.Info("dependency layer cache hit", "archive", filepath.Base(archived))

	ctr, err := b.rt.StartFromArchive(ctx, archived, b.containerID(platform), platform)
	if err != nil {
		return nil, err
	}
	b.containers = append(b.containers, ctr)

	for _, phase := range []Phase{
		PhaseBaseSelected,
		PhaseEnvConfigured,
		PhaseWorkdirSet,
		PhaseIdentityProvisioned,
		PhaseDependenciesInstalled,
	} {
		if err := state.advance(phase); err != nil {
			return nil, err
		}
	}

	state.workdir = b.bootstrap.Workdir
	if err := b.resolveIdentity(ctx, ctr, state); err != nil {
		return nil, err
	}

	b.cacheHit = true
	return ctr, nil
}

// Computes the cache key for this bootstrap's dependency layer.
func (b *build) layerKey(requirements []byte, platform string) (digest.Digest, error) {
	return cache.Key(b.bootstrap, requirements, platform)
}

// Exports the post-install container state and stores it in the layer
// cache.
//
// The container keeps running; only its snapshot diff is committed. The
// intermediate archive carries the environment and workdir so a restored
// layer behaves identically to a freshly built one, but no entrypoint or
// user: those are declared by later steps.
func (b *build) commitLayer(ctx context.Context, ctr *runtime.Container, state *buildState, key digest.Digest) error {
	tmp, err := os.MkdirTemp("", "kilnd-layer-")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer os.RemoveAll(tmp)

	err = ctr.Export(ctx, tmp, runtime.ImageConfig{
		Env:        state.environ(),
		WorkingDir: state.workdir,
	})
	if err != nil {
		return err
	}

	return b.cache.Store(key, filepath.Join(tmp, runtime.ExportFilename))
}

// Destroys all build containers.
func (b *build) destroyContainers(ctx context.Context) {
	for _, ctr := range b.containers {
		ctr.Destroy(ctx)
	}
}

// Returns a unique container ID for a platform, scoped to this resource.
func (b *build) containerID(platform string) string {
	return fmt.Sprintf("%s-%s-bootstrap", b.resource, platformSlug(platform))
}

// Returns the output directory for a specific platform.
//
// When building for a single platform, the output directory is left as-is
// to preserve the {output}/image.tar convention. For multi-platform
// builds, each platform gets a subdirectory (e.g., {output}/linux-amd64).
func (b *build) platformOutput(platform string) string {
	if len(b.platforms) == 1 {
		return b.output
	}
	return filepath.Join(b.output, platformSlug(platform))
}

// Converts a platform string to a filesystem-safe slug.
//
// Replaces slashes with dashes (e.g., "linux/amd64" becomes "linux-amd64").
func platformSlug(platform string) string {
	return strings.ReplaceAll(platform, "/", "-")
}
