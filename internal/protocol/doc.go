// Package protocol defines the wire format between the kilnd daemon and
// its clients.
//
// Messages are newline-delimited JSON envelopes carrying a command name
// and an optional payload. A client sends one request envelope and reads
// one response envelope per connection. Responses use [CmdOK] with a
// command-specific result payload, or [CmdError] with an [ErrorResult].
package protocol
