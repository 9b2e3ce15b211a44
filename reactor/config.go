package reactor

import "github.com/enigmaiiiiiiii/webserver/internal/logging"

// MaxFD is the hard cap on concurrent connections. It is a
// compile-time constant rather than a Config field: the original source
// fixes it at build time too, and a runtime-configurable cap would let
// an operator defeat the connection-table's fixed sizing assumptions.
const MaxFD = 65536

// TriggerMode selects level- versus edge-triggered delivery for the
// listen fd and for connection fds independently:
//
//	0: both level-triggered
//	1: connections edge, listen level
//	2: listen edge, connections level
//	3: both edge-triggered
type TriggerMode int

const (
	TriggerBothLevel TriggerMode = iota
	TriggerConnEdge
	TriggerListenEdge
	TriggerBothEdge
)

func (m TriggerMode) listenEdge() bool {
	return m == TriggerListenEdge || m == TriggerBothEdge
}

func (m TriggerMode) connEdge() bool {
	return m == TriggerConnEdge || m == TriggerBothEdge
}

// Config bundles together everything NewServer needs to build a
// listening reactor, mirroring WebServer's constructor parameter list
// (port, trigger mode, timeout, linger, thread count, resource root).
type Config struct {
	// Port must satisfy 1024 <= Port <= 65535.
	Port int
	// TriggerMode selects level/edge delivery.
	TriggerMode TriggerMode
	// TimeoutMS is the idle-connection timeout armed on accept and
	// refreshed on every read/write event for that fd.
	TimeoutMS int
	// OptLinger enables SO_LINGER{on=1, linger=1s} on the listen socket.
	OptLinger bool
	// ThreadNum sizes the worker pool; 0 defaults to 8.
	ThreadNum int
	// SrcDir is the document root make_response resolves paths against.
	SrcDir string
	// Logger is the sink the reactor and worker pool log through. A nil
	// Logger is replaced with a synchronous, Info-level default.
	Logger *logging.Logger
}

func (c Config) normalized() Config {
	if c.ThreadNum <= 0 {
		c.ThreadNum = 8
	}
	if c.Logger == nil {
		c.Logger = logging.New(logging.Config{Level: logging.Info})
	}
	return c
}
