package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name of the daemon binary.
const Name = "kilnd"

// Placeholder for version fields a local build leaves unset.
const localBuild = "(local)"

var (
	version   = "" // Release version (e.g., "1.2.3"), set via ldflags.
	stage     = "" // Git branch of the release build, set via ldflags.
	gitCommit = "" // Git commit hash, set via ldflags.

	rawQuiet   = "false" // Build-time default for quiet mode.
	rawDebug   = "false" // Build-time default for debug mode.
	rawVerbose = "false" // Build-time default for verbose logging.
)

// Whether this binary was built outside the release pipeline.
//
// Release builds set version, stage, and gitCommit via linker flags; a
// build missing any of them is treated as local.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(stage) == "" ||
		strings.TrimSpace(gitCommit) == ""
}

// Returns a detailed version string.
//
// Local builds report "(local)". Release builds report
// "<version>+<stage> <commit> [<arch>]", with the stage suffix omitted on
// the main branch and any "v" prefix stripped from the version.
func VersionString() string {
	if IsLocal() {
		return localBuild
	}

	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v")

	s := strings.ToLower(strings.TrimSpace(stage))
	if s == "main" {
		s = ""
	} else {
		s = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", v, s, strings.TrimSpace(gitCommit), runtime.GOARCH)
}
