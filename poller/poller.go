// Package poller wraps the OS readiness multiplexer (epoll on Linux,
// kqueue on the BSDs and Darwin) behind one small interface so the
// reactor never branches on GOOS. Registration takes an interest mask
// built from the Event* bits below; Wait/EventAt deliver whatever fired.
package poller

// Interest bits, OR'd together when registering a fd.
const (
	EventRead uint32 = 1 << iota
	EventWrite
	// OneShot disarms the fd's interest on delivery; the reactor must
	// call Mod to re-arm before any further event for that fd appears.
	// Connection fds always carry this bit; the listen
	// fd never does.
	OneShot
	// EdgeTriggered requests edge- rather than level-triggered delivery
	// for this fd's registration. The trigger-mode flag
	// decides this independently for the listen fd and connection fds.
	EdgeTriggered
)

// ReadyEvent is one delivered readiness notification.
type ReadyEvent struct {
	Fd       int
	Readable bool
	Writable bool
	// HangUp reports peer-hangup/error conditions (EPOLLRDHUP, EPOLLHUP,
	// EPOLLERR on Linux; EV_EOF or EV_ERROR on kqueue).
	HangUp bool
}

// Poller is the minimal readiness-multiplexer contract the reactor
// needs: register/modify/deregister a fd with an interest mask, then
// block for a batch of ready events.
type Poller interface {
	// Add registers fd for the given interest.
	Add(fd int, interest uint32) error
	// Mod changes fd's registered interest.
	Mod(fd int, interest uint32) error
	// Del deregisters fd. It is not an error to call Del on a fd the
	// poller no longer holds a registration for (ENOENT from the kernel).
	Del(fd int) error
	// Wait blocks up to timeoutMS (or indefinitely if negative) for
	// at least one ready event, returning how many are available via
	// EventAt. timeoutMS == 0 polls without blocking.
	Wait(timeoutMS int) (int, error)
	// EventAt returns the i'th ready event from the most recent Wait.
	EventAt(i int) ReadyEvent
	// Close releases the underlying poll fd.
	Close() error
}
