package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilnhq/kilnd/internal/protocol"
	"github.com/kilnhq/kilnd/internal/runtime"
)

// Selects the base image and starts the build container from it.
//
// Registry references are pulled; archive paths are imported. Either way,
// an unresolvable base is fatal and nothing is retried.
func (b *build) selectBase(ctx context.Context, state *buildState, platform string) (*runtime.Container, error) {
	slog.Info("selecting base", "base", b.bootstrap.Base, "platform", platform)

	var (
		ctr *runtime.Container
		err error
	)

	id := b.containerID(platform)
	if b.bootstrap.BaseIsArchive() {
		path := b.bootstrap.Base
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.root, path)
		}
		ctr, err = b.rt.StartFromArchive(ctx, path, id, platform)
	} else {
		ctr, err = b.rt.StartFromRef(ctx, b.bootstrap.Base, id, platform)
	}
	if err != nil {
		return nil, err
	}

	b.containers = append(b.containers, ctr)

	if err := state.advance(PhaseBaseSelected); err != nil {
		return nil, err
	}
	return ctr, nil
}

// Fixes the process-wide environment for every subsequent step and for the
// final image.
//
// The environment was captured into the state when the build started; this
// step only marks it as sealed. From here on every exec and the exported
// config receive the same record.
func (b *build) configureEnv(state *buildState) error {
	slog.Debug("environment configured", "vars", len(state.env))
	return state.advance(PhaseEnvConfigured)
}

// Creates the working directory inside the container and fixes it as the
// root for all subsequent relative operations.
func (b *build) establishWorkdir(ctx context.Context, ctr *runtime.Container, state *buildState) error {
	if err := ctr.MkdirAll(ctx, b.bootstrap.Workdir); err != nil {
		return err
	}

	state.workdir = b.bootstrap.Workdir
	slog.Debug("workdir established", "workdir", state.workdir)

	return state.advance(PhaseWorkdirSet)
}

// Creates the restricted system group and user the application will run as.
//
// The account has no login shell and no home directory. A name collision
// with an existing account is fatal; the build never adopts a pre-existing
// identity it did not provision.
func (b *build) provisionIdentity(ctx context.Context, ctr *runtime.Container, state *buildState) error {
	if err := state.requirePrivileged("identity provisioning"); err != nil {
		return err
	}

	identity := b.bootstrap.Identity
	slog.Info("provisioning identity", "group", identity.Group, "user", identity.User)

	if err := b.identityExec(ctx, ctr, state, "groupadd", "--system", identity.Group); err != nil {
		return err
	}

	err := b.identityExec(ctx, ctr, state,
		"useradd",
		"--system",
		"--gid", identity.Group,
		"--no-create-home",
		"--shell", "/usr/sbin/nologin",
		identity.User,
	)
	if err != nil {
		return err
	}

	if err := b.resolveIdentity(ctx, ctr, state); err != nil {
		return err
	}

	return state.advance(PhaseIdentityProvisioned)
}

// Runs an account-management command, mapping any failure (including name
// collisions) to [ErrIdentity].
func (b *build) identityExec(ctx context.Context, ctr *runtime.Container, state *buildState, args ...string) error {
	result, err := ctr.Exec(ctx, runtime.ExecOptions{
		Args: args,
		Env:  state.environ(),
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited %d: %s", ErrIdentity, args[0], result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Resolves the provisioned account's uid and gid into the build state.
func (b *build) resolveIdentity(ctx context.Context, ctr *runtime.Container, state *buildState) error {
	uid, gid, err := ctr.UserIDs(ctx, b.bootstrap.Identity.User)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIdentity, err)
	}

	state.user = runtime.ExecUser{UID: uint32(uid), GID: uint32(gid)}
	state.owner = b.bootstrap.Identity.User + ":" + b.bootstrap.Identity.Group
	return nil
}

// Copies the dependency manifest into the workdir and runs the installer
// against it.
//
// Only the manifest is copied at this point; the rest of the source tree
// follows in a later step so that this step's cache key depends on the
// manifest's content alone. Any resolution or installation failure is
// fatal; no partially installed state is ever committed to the cache.
func (b *build) installDependencies(ctx context.Context, ctr *runtime.Container, state *buildState) error {
	if err := state.requirePrivileged("dependency installation"); err != nil {
		return err
	}

	deps := b.bootstrap.Dependencies
	hostPath := filepath.Join(b.root, deps.Manifest)
	name := filepath.Base(deps.Manifest)

	if err := copyFileTo(ctx, ctr, hostPath, name, state.workdir); err != nil {
		return err
	}

	argv := append(append([]string(nil), deps.Installer...), name)
	slog.Info("installing dependencies", "installer", argv[0], "manifest", name)

	result, err := ctr.Exec(ctx, runtime.ExecOptions{
		Args:    argv,
		Env:     state.environ(),
		Workdir: state.workdir,
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited %d: %s", ErrDependencies, argv[0], result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return state.advance(PhaseDependenciesInstalled)
}

// Copies the full source tree into the workdir and hands its ownership to
// the restricted identity.
//
// Runs strictly after dependency installation so that source-only changes
// never invalidate the dependency layer.
func (b *build) copySource(ctx context.Context, ctr *runtime.Container, state *buildState) error {
	if err := state.requirePrivileged("source ownership transfer"); err != nil {
		return err
	}

	src := filepath.Join(b.root, b.bootstrap.Source)
	slog.Info("copying source", "src", src, "dest", state.workdir)

	if err := copyTreeTo(ctx, ctr, src, state.workdir); err != nil {
		return err
	}

	if err := ctr.ChownAll(ctx, state.workdir, state.owner); err != nil {
		return err
	}

	return state.advance(PhaseSourceCopied)
}

// Switches the build to the restricted identity for everything that
// follows, and verifies the switch took effect inside the container.
func (b *build) dropPrivileges(ctx context.Context, ctr *runtime.Container, state *buildState) error {
	if err := state.dropPrivileges(); err != nil {
		return err
	}

	result, err := ctr.Exec(ctx, runtime.ExecOptions{
		Args: []string{"id", "-u"},
		User: state.execUser(),
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: id exited %d: %s", ErrPrivilege, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	uid, err := strconv.Atoi(strings.TrimSpace(result.Stdout))
	if err != nil || uid != int(state.user.UID) || uid == 0 {
		return fmt.Errorf("%w: effective uid %q, want %d", ErrPrivilege, strings.TrimSpace(result.Stdout), state.user.UID)
	}

	slog.Info("privileges dropped", "user", state.userSpec())
	return state.advance(PhasePrivilegeDropped)
}

// Declares the image's default command and exports the final image.
//
// The entrypoint is a static declaration: nothing is executed at build
// time. The exported config carries the entrypoint, the sealed
// environment, the workdir, and the restricted identity.
func (b *build) declareEntrypoint(ctx context.Context, ctr *runtime.Container, state *buildState, output string) error {
	if err := ctr.Stop(ctx); err != nil {
		return err
	}

	// The snapshot must be quiescent before export.
	status, err := ctr.Status(ctx)
	if err != nil {
		return err
	}
	if status == protocol.ContainerRunning {
		return fmt.Errorf("%w: container still running after stop", ErrBuild)
	}

	err = ctr.Export(ctx, output, runtime.ImageConfig{
		Entrypoint: b.bootstrap.Entrypoint,
		Env:        state.environ(),
		WorkingDir: state.workdir,
		User:       state.userSpec(),
	})
	if err != nil {
		return err
	}

	return state.advance(PhaseEntrypointDeclared)
}
