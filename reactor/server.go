// Package reactor implements R1: the single reactor goroutine that
// binds the listen socket, drives the readiness loop, accepts
// connections, dispatches read/write tasks to the worker pool, and owns
// both the connection table and the timer heap. Grounded on
// webserver.cpp's Start/DealListen_/DealRead_/DealWrite_/CloseConn_
// methods.
package reactor

import (
	"context"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/enigmaiiiiiiii/webserver/poller"
	"github.com/enigmaiiiiiiii/webserver/timer"
	"github.com/enigmaiiiiiiii/webserver/workerpool"
)

// busyMessage is sent verbatim to any fd accepted at or above MaxFD
// before the fd is closed.
const busyMessage = "Server busy!"

type pendingClose struct {
	c      *conn
	reason string
}

// Server is the reactor: one goroutine runs Run's event loop, N worker
// goroutines (workerpool.Pool) execute the OnRead/OnWrite tasks it
// dispatches. The connection table and timer heap are touched only from
// inside Run (or from finishClose, invoked only from Run); workers
// signal closes through closeConn's queue rather than mutating either
// directly, preserving a single-writer discipline for both.
type Server struct {
	cfg      Config
	listenFd int
	pfd      poller.Poller

	wakeR, wakeW int

	timers *timer.Heap
	pool   *workerpool.Pool
	conns  map[int]*conn

	userCount atomic.Int64
	closed    atomic.Bool

	closeMu    sync.Mutex
	closeQueue []pendingClose
}

// NewServer builds the listen socket (IPv4, SO_REUSEADDR always,
// SO_LINGER when cfg.OptLinger, backlog 6, non-blocking), opens the
// platform poller, and registers the listen fd plus an internal wake
// pipe used to break Run's Wait promptly on Close or on a worker-
// requested close. It does not start serving; call Run for that.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, ErrInvalidPort
	}
	cfg = cfg.normalized()

	listenFd, err := buildListenSocket(cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(ErrListenInitFailure, err.Error())
	}

	pfd, err := poller.Open()
	if err != nil {
		unix.Close(listenFd)
		return nil, pkgerrors.Wrap(ErrListenInitFailure, err.Error())
	}

	var wakeFds [2]int
	if err := unix.Pipe(wakeFds[:]); err != nil {
		unix.Close(listenFd)
		_ = pfd.Close()
		return nil, pkgerrors.Wrap(ErrListenInitFailure, err.Error())
	}
	_ = unix.SetNonblock(wakeFds[0], true)
	_ = unix.SetNonblock(wakeFds[1], true)

	s := &Server{
		cfg:      cfg,
		listenFd: listenFd,
		pfd:      pfd,
		wakeR:    wakeFds[0],
		wakeW:    wakeFds[1],
		timers:   timer.New(),
		pool:     workerpool.New(cfg.ThreadNum),
		conns:    make(map[int]*conn),
	}

	listenInterest := poller.EventRead
	if cfg.TriggerMode.listenEdge() {
		listenInterest |= poller.EdgeTriggered
	}
	if err := pfd.Add(listenFd, listenInterest); err != nil {
		s.shutdown()
		return nil, pkgerrors.Wrap(ErrListenInitFailure, err.Error())
	}
	if err := pfd.Add(s.wakeR, poller.EventRead); err != nil {
		s.shutdown()
		return nil, pkgerrors.Wrap(ErrListenInitFailure, err.Error())
	}

	return s, nil
}

func buildListenSocket(cfg Config) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, pkgerrors.Wrap(err, "socket")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, pkgerrors.Wrap(err, "SO_REUSEADDR")
	}
	if cfg.OptLinger {
		linger := unix.Linger{Onoff: 1, Linger: 1}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &linger); err != nil {
			unix.Close(fd)
			return -1, pkgerrors.Wrap(err, "SO_LINGER")
		}
	}
	addr := &unix.SockaddrInet4{Port: cfg.Port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, pkgerrors.Wrap(err, "bind")
	}
	if err := unix.Listen(fd, 6); err != nil {
		unix.Close(fd)
		return -1, pkgerrors.Wrap(err, "listen")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, pkgerrors.Wrap(err, "set nonblocking")
	}
	return fd, nil
}

// Run drives the event loop until ctx is cancelled or Close is called,
// then unwinds everything (shutdown). It blocks in Poller.Wait for
// timer.Heap.NextTickMS, the only suspension point for the reactor
// goroutine itself.
func (s *Server) Run(ctx context.Context) error {
	defer s.shutdown()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stopWatch:
		}
	}()

	for !s.closed.Load() {
		timeoutMS := s.timers.NextTickMS()
		n, err := s.pfd.Wait(timeoutMS)
		if err != nil {
			if isWouldBlock(err) || err == unix.EINTR {
				continue
			}
			return pkgerrors.Wrap(err, "reactor: poller wait")
		}
		for i := 0; i < n; i++ {
			s.dispatch(s.pfd.EventAt(i))
		}
	}
	return nil
}

// Close stops the loop at the next Wait boundary. Safe to call more
// than once or concurrently with Run.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.wake()
}

func (s *Server) wake() {
	var b [1]byte
	_, _ = unix.Write(s.wakeW, b[:])
}

// dispatch routes one delivered event by fd identity, refreshing the
// idle timer for data fds before handing off to the worker pool.
func (s *Server) dispatch(ev poller.ReadyEvent) {
	if ev.Fd == s.wakeR {
		s.drainWake()
		return
	}
	if ev.Fd == s.listenFd {
		s.acceptLoop()
		return
	}

	c, ok := s.conns[ev.Fd]
	if !ok {
		return
	}
	if ev.HangUp {
		s.finishClose(c, "peer hangup")
		return
	}

	s.timers.Adjust(ev.Fd, s.cfg.TimeoutMS)

	switch {
	case ev.Readable:
		s.pool.Submit(c.handleReadable)
	case ev.Writable:
		s.pool.Submit(c.handleWritable)
	}
}

// drainWake empties the self-pipe and runs every queued close on the
// reactor goroutine — the only place the connection table and timer
// heap are mutated.
func (s *Server) drainWake() {
	var buf [64]byte
	for {
		_, err := unix.Read(s.wakeR, buf[:])
		if err != nil {
			break
		}
	}

	s.closeMu.Lock()
	queue := s.closeQueue
	s.closeQueue = nil
	s.closeMu.Unlock()

	for _, pc := range queue {
		s.finishClose(pc.c, pc.reason)
	}
}

// acceptLoop accepts until EAGAIN under edge-triggered listen mode, or
// once under level-triggered.
// Connections at or above MaxFD are sent busyMessage and closed; the
// listen fd itself stays armed so the kernel keeps queuing pending
// accepts until slots free.
func (s *Server) acceptLoop() {
	edge := s.cfg.TriggerMode.listenEdge()
	for {
		fd, sa, err := unix.Accept(s.listenFd)
		if err != nil {
			if isWouldBlock(err) {
				return
			}
			if err == unix.EINTR {
				continue
			}
			s.cfg.Logger.Warnf("reactor: accept: %v", err)
			return
		}

		if s.userCount.Load() >= MaxFD {
			_, _ = unix.Write(fd, []byte(busyMessage))
			_ = unix.Close(fd)
			s.cfg.Logger.Warnf("reactor: %v", ErrResourceExhaustion)
			if !edge {
				return
			}
			continue
		}

		_ = unix.SetNonblock(fd, true)
		s.registerConn(fd, sa)

		if !edge {
			return
		}
	}
}

func (s *Server) registerConn(fd int, peer unix.Sockaddr) {
	c := newConn(s, fd, peer)

	interest := poller.EventRead | poller.OneShot
	if s.cfg.TriggerMode.connEdge() {
		interest |= poller.EdgeTriggered
	}
	if err := s.pfd.Add(fd, interest); err != nil {
		s.cfg.Logger.Errorf("reactor: register conn %d: %v", fd, err)
		_ = unix.Close(fd)
		return
	}

	s.conns[fd] = c
	s.userCount.Add(1)
	s.timers.Add(fd, s.cfg.TimeoutMS, func() { s.closeConn(c, "idle timeout") })
}

func (s *Server) rearmReadable(c *conn) {
	interest := poller.EventRead | poller.OneShot
	if s.cfg.TriggerMode.connEdge() {
		interest |= poller.EdgeTriggered
	}
	if err := s.pfd.Mod(c.fd, interest); err != nil {
		s.closeConn(c, "rearm readable failed")
	}
}

func (s *Server) rearmWritable(c *conn) {
	interest := poller.EventWrite | poller.OneShot
	if s.cfg.TriggerMode.connEdge() {
		interest |= poller.EdgeTriggered
	}
	if err := s.pfd.Mod(c.fd, interest); err != nil {
		s.closeConn(c, "rearm writable failed")
	}
}

// closeConn is the entry point workers (and timer callbacks, which also
// run on the reactor goroutine but go through the same path for
// uniformity) use to request a close. It only flags the connection and
// queues it; finishClose does the actual table/timer/poller mutation,
// always from the reactor goroutine.
func (s *Server) closeConn(c *conn, reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	s.closeMu.Lock()
	s.closeQueue = append(s.closeQueue, pendingClose{c, reason})
	s.closeMu.Unlock()
	s.wake()
}

// finishClose unmaps, deregisters, closes and accounts for c. It is
// idempotent against a connection table that no longer holds c.
func (s *Server) finishClose(c *conn, reason string) {
	if _, ok := s.conns[c.fd]; !ok {
		return
	}
	c.setState(stateClosed)
	s.timers.Remove(c.fd)
	_ = s.pfd.Del(c.fd)
	delete(s.conns, c.fd)
	if c.mapped != nil {
		_ = c.mapped.Unmap()
		c.mapped = nil
	}
	_ = unix.Close(c.fd)
	s.userCount.Add(-1)
	s.cfg.Logger.Debugf("reactor: conn %d closed: %s", c.fd, reason)
}

// shutdown unwinds the server once Run's loop exits: stop accepting,
// let the pool finish any in-flight read/write task (so no task is ever
// racing a close of the fd it owns), then close every
// remaining connection and release the poller and listen/wake fds.
func (s *Server) shutdown() {
	_ = s.pfd.Del(s.listenFd)
	_ = unix.Close(s.listenFd)

	s.pool.Close()

	for _, c := range s.conns {
		s.finishClose(c, "server shutdown")
	}

	_ = unix.Close(s.wakeR)
	_ = unix.Close(s.wakeW)
	_ = s.pfd.Close()
	s.cfg.Logger.Close()
}
