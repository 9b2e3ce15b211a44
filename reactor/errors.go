package reactor

import "errors"

var (
	// ErrResourceExhaustion is returned (and only logged, never fatal)
	// when an accepted fd arrives at or above MaxFD; the connection is
	// sent "Server busy!" and closed, the server continues.
	ErrResourceExhaustion = errors.New("reactor: connection limit reached")
	// ErrListenInitFailure means the listen socket could not be built
	// (socket/setsockopt/bind/listen). Unlike ErrResourceExhaustion this
	// is not recoverable: NewServer returns it and the caller must not
	// run the server.
	ErrListenInitFailure = errors.New("reactor: listen socket initialization failed")
	// ErrInvalidPort means cfg.Port fell outside 1024..65535.
	ErrInvalidPort = errors.New("reactor: port must be in 1024..65535")
)
