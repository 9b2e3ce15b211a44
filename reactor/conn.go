package reactor

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/enigmaiiiiiiii/webserver/httpcodec"
	"github.com/enigmaiiiiiiii/webserver/netbuf"
)

// connState is purely descriptive (logging/assertions); control flow is
// event-driven rather than a switch over these constants.
type connState int32

const (
	stateAccepted connState = iota
	stateReading
	statePending
	stateWriting
	stateKeepAlive
	stateClosed
)

// conn is one accepted connection's state: owned fd, peer address, the
// two buffers, parsed request, response's mapped file, and the 2-slot
// scatter descriptor for the pending write (headers, then body).
// Mutated only by the reactor goroutine (fields touching the connection
// table) and by whichever single worker currently owns its task
// (everything else) — never both at once.
type conn struct {
	fd   int
	peer unix.Sockaddr

	in  *netbuf.Buffer
	out *netbuf.Buffer

	req    httpcodec.Request
	mapped *httpcodec.MappedFile

	// iovHeader and iovBody are the remaining, re-sliced bytes of the
	// two write slots; both empty means the response is fully drained.
	iovHeader []byte
	iovBody   []byte

	keepAlive bool
	closed    atomic.Bool
	state     atomic.Int32

	srv *Server
}

func newConn(srv *Server, fd int, peer unix.Sockaddr) *conn {
	c := &conn{fd: fd, peer: peer, in: netbuf.New(1024), out: netbuf.New(1024), srv: srv}
	c.state.Store(int32(stateAccepted))
	return c
}

func (c *conn) setState(s connState) { c.state.Store(int32(s)) }

// handleReadable is the OnRead task: drain the socket (looping under
// edge trigger until EAGAIN, once under level trigger), then try to
// parse a complete request out of whatever accumulated. A complete
// parse (success or malformed) composes a response and arms writable
// interest; an incomplete parse re-arms readable interest to wait for
// the rest.
func (c *conn) handleReadable() {
	c.setState(stateReading)
	edge := c.srv.cfg.TriggerMode.connEdge()

	for {
		n, err := c.in.ReadFd(c.fd)
		if err != nil {
			if isWouldBlock(err) {
				break
			}
			c.srv.closeConn(c, "read error")
			return
		}
		if n == 0 {
			c.srv.closeConn(c, "peer closed")
			return
		}
		if !edge {
			break
		}
	}

	c.setState(statePending)
	req, perr := httpcodec.Parse(c.in)
	switch perr {
	case nil:
		c.req = req
		c.compose(req.Path, req.KeepAlive, 200)
	case httpcodec.ErrIncomplete:
		c.srv.rearmReadable(c)
		return
	default:
		c.compose("", false, 400)
	}

	c.srv.rearmWritable(c)
}

// compose builds the response into c.out (status line, headers,
// Content-length, optional inline error body) and, for a 200, maps the
// resource file — populating the 2-slot scatter descriptor exactly as
// the ACCEPTED -> READING -> PROCESSING -> WRITING transition describes.
func (c *conn) compose(path string, keepAlive bool, status int) {
	c.keepAlive = keepAlive
	mapped, err := httpcodec.MakeResponse(c.out, c.srv.cfg.SrcDir, path, keepAlive, status)
	if err != nil {
		c.srv.cfg.Logger.Errorf("conn %d: compose response: %v", c.fd, err)
	}
	c.mapped = mapped
	c.setState(stateWriting)
	c.iovHeader = c.out.Peek()
	c.iovBody = nil
	if mapped != nil {
		c.iovBody = mapped.Bytes()
	}
}

// handleWritable is the OnWrite task: Writev the remaining header/body
// slots until both drain or the call would block, advancing the iov
// pointers after every partial write. Unlike the original source's
// OnWrite_, this always re-arms writable interest whenever bytes remain
// after the loop exits — it does not special-case a ">10KiB remaining,
// level-triggered" threshold that would otherwise leave the fd silently
// unarmed; see DESIGN.md.
func (c *conn) handleWritable() {
	c.setState(stateWriting)
	edge := c.srv.cfg.TriggerMode.connEdge()

	for len(c.iovHeader) > 0 || len(c.iovBody) > 0 {
		n, err := unix.Writev(c.fd, nonEmptyIovs(c.iovHeader, c.iovBody))
		if err != nil {
			if isWouldBlock(err) {
				c.srv.rearmWritable(c)
				return
			}
			c.srv.closeConn(c, "write error")
			return
		}
		c.advanceIov(n)
		if !edge {
			break
		}
	}

	if len(c.iovHeader) > 0 || len(c.iovBody) > 0 {
		c.srv.rearmWritable(c)
		return
	}

	c.out.RetrieveAll()
	if c.mapped != nil {
		if err := c.mapped.Unmap(); err != nil {
			c.srv.cfg.Logger.Warnf("conn %d: unmap: %v", c.fd, err)
		}
		c.mapped = nil
	}

	if c.keepAlive {
		c.resetForKeepAlive()
		c.srv.rearmReadable(c)
		return
	}

	c.srv.closeConn(c, "response complete")
}

// advanceIov consumes n written bytes from the front of the
// header-then-body scatter descriptor, matching httpconn.cpp::write's
// branching on whether the write crossed the boundary between slot 0
// and slot 1.
func (c *conn) advanceIov(n int) {
	if n < len(c.iovHeader) {
		c.iovHeader = c.iovHeader[n:]
		return
	}
	n -= len(c.iovHeader)
	c.iovHeader = nil
	c.iovBody = c.iovBody[n:]
}

func (c *conn) resetForKeepAlive() {
	c.setState(stateKeepAlive)
	c.req = httpcodec.Request{}
	c.iovHeader = nil
	c.iovBody = nil
	c.keepAlive = false
}

// nonEmptyIovs drops empty slots so Writev never receives a zero-length
// iovec ahead of real data.
func nonEmptyIovs(header, body []byte) [][]byte {
	iovs := make([][]byte, 0, 2)
	if len(header) > 0 {
		iovs = append(iovs, header)
	}
	if len(body) > 0 {
		iovs = append(iovs, body)
	}
	return iovs
}

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
