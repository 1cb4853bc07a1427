package server

import "errors"

// Sentinel error for all server failures.
var ErrServer = errors.New("server error")
