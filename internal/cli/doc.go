// Parses flags and dispatches subcommands for the kilnd daemon.
//
// The daemon accepts the following flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path.
//
// Subcommands cover the daemon lifecycle (start, status, stop), standalone
// builds (build) that run the bootstrap pipeline in-process, and layer
// cache maintenance (prune).
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level and verbosity before
// the selected command runs.
package cli
