package internal

import "strconv"

var (
	quietMode   bool // Suppress informational output.
	debugMode   bool // Enable debug logging.
	verboseMode bool // Enable verbose logging.
)

// Parses the logging-mode linker flags.
//
// rawQuiet, rawDebug, and rawVerbose may be set via ldflags during the
// build. The modes are fixed after init; CLI flags layer on top of them at
// logger configuration time rather than mutating them.
func init() {
	quietMode = parseBoolFlag(rawQuiet)
	debugMode = parseBoolFlag(rawDebug)
	verboseMode = parseBoolFlag(rawVerbose)
}

// Parses a boolean linker flag, treating anything unparseable as false.
func parseBoolFlag(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// Whether quiet mode was enabled at build time.
func IsQuiet() bool {
	return quietMode
}

// Whether debug mode was enabled at build time.
func IsDebug() bool {
	return debugMode
}

// Whether verbose logging was enabled at build time.
func IsVerbose() bool {
	return verboseMode
}
