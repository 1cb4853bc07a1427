// Package server implements the kilnd daemon.
//
// The daemon listens on a Unix domain socket and accepts newline-delimited
// JSON commands as defined by the protocol package. Each connection carries
// exactly one command and receives exactly one response. Build commands run
// the bootstrap pipeline against containerd; status and shutdown commands
// manage the daemon itself.
//
// Example usage:
//
//	srv, err := server.New(server.Config{})
//	if err != nil {
//		return err
//	}
//
//	if err := srv.Start(); err != nil {
//		return err
//	}
//
//	<-srv.Done()
//
// Socket access is restricted to the owner and members of the kilnd group.
package server
