package pipeline

import "fmt"

// A stage of the bootstrap pipeline.
//
// Phases form a strictly linear sequence: every build passes through each
// phase exactly once, in declaration order, with no branching and no
// rollback. A failed phase halts the build in place; the partial container
// is destroyed, never exported.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseBaseSelected
	PhaseEnvConfigured
	PhaseWorkdirSet
	PhaseIdentityProvisioned
	PhaseDependenciesInstalled
	PhaseSourceCopied
	PhasePrivilegeDropped
	PhaseEntrypointDeclared
)

var phaseNames = map[Phase]string{
	PhaseInitial:               "initial",
	PhaseBaseSelected:          "base-selected",
	PhaseEnvConfigured:         "env-configured",
	PhaseWorkdirSet:            "workdir-set",
	PhaseIdentityProvisioned:   "identity-provisioned",
	PhaseDependenciesInstalled: "dependencies-installed",
	PhaseSourceCopied:          "source-copied",
	PhasePrivilegeDropped:      "privilege-dropped",
	PhaseEntrypointDeclared:    "entrypoint-declared",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Validates a phase transition.
//
// The only legal transition is to the immediate successor: phases cannot
// be skipped, repeated, or revisited.
func checkTransition(from, to Phase) error {
	if to != from+1 || to > PhaseEntrypointDeclared {
		return fmt.Errorf("%w: %s -> %s", ErrPhase, from, to)
	}
	return nil
}
