//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package poller

import (
	"golang.org/x/sys/unix"
)

const maxKqueueEvents = 1024

// kqueuePoller implements Poller over kqueue(2), the BSD/Darwin
// counterpart to epoll. One-shot is expressed as EV_ONESHOT; edge
// triggering is expressed as EV_CLEAR, kqueue's equivalent of EPOLLET.
type kqueuePoller struct {
	kq     int
	events [maxKqueueEvents]unix.Kevent_t
}

// Open creates a new readiness multiplexer backed by kqueue(2).
func Open() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{kq: kq}, nil
}

func (p *kqueuePoller) register(fd int, interest uint32, del bool) error {
	var changes []unix.Kevent_t
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if del {
		flags = unix.EV_DELETE
	}
	if interest&OneShot != 0 {
		flags |= unix.EV_ONESHOT
	}
	if interest&EdgeTriggered != 0 {
		flags |= unix.EV_CLEAR
	}

	if interest&EventRead != 0 || del {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if interest&EventWrite != 0 || del {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) Add(fd int, interest uint32) error {
	return p.register(fd, interest, false)
}

func (p *kqueuePoller) Mod(fd int, interest uint32) error {
	return p.register(fd, interest, false)
}

func (p *kqueuePoller) Del(fd int) error {
	err := p.register(fd, EventRead|EventWrite, true)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *kqueuePoller) Wait(timeoutMS int) (int, error) {
	var ts *unix.Timespec
	if timeoutMS >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMS) * int64(1e6))
		ts = &t
	}
	for {
		n, err := unix.Kevent(p.kq, nil, p.events[:], ts)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (p *kqueuePoller) EventAt(i int) ReadyEvent {
	e := p.events[i]
	return ReadyEvent{
		Fd:       int(e.Ident),
		Readable: e.Filter == unix.EVFILT_READ,
		Writable: e.Filter == unix.EVFILT_WRITE,
		HangUp:   e.Flags&unix.EV_EOF != 0 || e.Flags&unix.EV_ERROR != 0,
	}
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}
