package pipeline

import (
	"fmt"
	"slices"

	"github.com/kilnhq/kilnd/internal/runtime"
)

// Identity the build currently executes as.
type privilege int

const (
	privileged privilege = iota // Superuser; the state before de-escalation.
	restricted                  // The provisioned system account.
)

// Accumulated configuration of an in-progress build.
//
// The state is an explicit record threaded through every step: environment
// and working directory are passed to each exec and to the final image
// config rather than relying on ambient process state. The privilege field
// makes de-escalation a one-way transition; once restricted, no step can
// execute as the superuser again.
type buildState struct {
	phase   Phase
	env     map[string]string
	workdir string
	priv    privilege
	user    runtime.ExecUser // Valid once the identity has been provisioned.
	owner   string           // "user:group" form for chown.
}

// Creates the initial build state.
func newBuildState(env map[string]string) *buildState {
	s := &buildState{
		env: make(map[string]string, len(env)),
	}
	for k, v := range env {
		s.env[k] = v
	}
	return s
}

// Advances the build to the next phase.
//
// Only the immediate successor phase is accepted; anything else is a
// pipeline programming error, not a build input error.
func (s *buildState) advance(to Phase) error {
	if err := checkTransition(s.phase, to); err != nil {
		return err
	}
	s.phase = to
	return nil
}

// Fails unless the build still executes as the superuser.
//
// Steps that mutate system state (identity provisioning, dependency
// installation, ownership changes) call this before running so that a step
// ordered after de-escalation fails loudly instead of silently lacking
// permissions.
func (s *buildState) requirePrivileged(op string) error {
	if s.priv != privileged {
		return fmt.Errorf("%w: %s requires superuser but privileges were dropped", ErrPrivilege, op)
	}
	return nil
}

// Switches the build to the restricted identity. One-way: dropping twice
// is a pipeline programming error.
func (s *buildState) dropPrivileges() error {
	if s.priv == restricted {
		return fmt.Errorf("%w: privileges already dropped", ErrPrivilege)
	}
	s.priv = restricted
	return nil
}

// Returns the identity execs run as, or nil while still privileged.
func (s *buildState) execUser() *runtime.ExecUser {
	if s.priv == restricted {
		user := s.user
		return &user
	}
	return nil
}

// Returns the image config user string, e.g. "999:999".
func (s *buildState) userSpec() string {
	return fmt.Sprintf("%d:%d", s.user.UID, s.user.GID)
}

// Formats the environment as sorted "key=value" entries.
//
// Sorting keeps exec invocations and the exported image config
// deterministic across builds.
func (s *buildState) environ() []string {
	env := make([]string, 0, len(s.env))
	for k, v := range s.env {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)
	return env
}
