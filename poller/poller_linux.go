//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

const maxEpollEvents = 1024

// epollPoller implements Poller over epoll(7). Interest bits translate
// directly to EPOLLIN/EPOLLOUT/EPOLLONESHOT/EPOLLET, matching
// webserver.cpp's InitEventMode_ mapping of the trigger-mode flag.
type epollPoller struct {
	epfd   int
	events [maxEpollEvents]unix.EpollEvent
	n      int
}

// Open creates a new readiness multiplexer backed by epoll_create1(2).
func Open() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd}, nil
}

func toEpollEvents(interest uint32) uint32 {
	var ev uint32
	if interest&EventRead != 0 {
		ev |= unix.EPOLLIN
	}
	if interest&EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	if interest&OneShot != 0 {
		ev |= unix.EPOLLONESHOT
	}
	if interest&EdgeTriggered != 0 {
		ev |= unix.EPOLLET
	}
	// Peer hangup is always reported: the reactor's close path relies on
	// seeing EPOLLRDHUP promptly rather than via a failed read.
	ev |= unix.EPOLLRDHUP
	return ev
}

func (p *epollPoller) Add(fd int, interest uint32) error {
	ev := unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Mod(fd int, interest uint32) error {
	ev := unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Del(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeoutMS int) (int, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events[:], timeoutMS)
		if err == unix.EINTR {
			continue
		}
		p.n = n
		return n, err
	}
}

func (p *epollPoller) EventAt(i int) ReadyEvent {
	e := p.events[i]
	return ReadyEvent{
		Fd:       int(e.Fd),
		Readable: e.Events&unix.EPOLLIN != 0,
		Writable: e.Events&unix.EPOLLOUT != 0,
		HangUp:   e.Events&(unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0,
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
