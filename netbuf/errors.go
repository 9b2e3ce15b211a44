package netbuf

import "errors"

// ErrInvariantViolation marks a call that broke a Buffer invariant, e.g.
// Retrieve(n) with n greater than the readable region. Per the core's
// error-handling design this is a bug in the caller, not a recoverable
// I/O condition, so it panics rather than returning an error value.
var ErrInvariantViolation = errors.New("netbuf: invariant violation")
