// Package netbuf implements the growable scatter/gather byte buffer used
// on both sides of a connection: a contiguous byte slice with three
// monotonic indices splitting it into a prependable region, a readable
// region and a writable region.
package netbuf

import (
	"golang.org/x/sys/unix"
)

// spillSize is the size of the stack-local spillover slice ReadFd uses
// as the second iovec, so a single readv(2) can drain a socket's receive
// queue under edge-triggered epoll even when the buffer's own writable
// region is smaller than what's pending.
const spillSize = 65536

const initialCapacity = 1024

// Buffer is a growable byte buffer with read_pos <= write_pos <= cap(buf).
// The zero value is not usable; construct with New.
type Buffer struct {
	buf  []byte
	rPos int
	wPos int
}

// New returns a Buffer with the given initial capacity.
func New(initialSize int) *Buffer {
	if initialSize <= 0 {
		initialSize = initialCapacity
	}
	return &Buffer{buf: make([]byte, initialSize)}
}

// Readable returns the number of bytes available for consumption.
func (b *Buffer) Readable() int {
	return b.wPos - b.rPos
}

// Writable returns the number of bytes that can be appended without growing.
func (b *Buffer) Writable() int {
	return len(b.buf) - b.wPos
}

// Prependable returns the number of bytes before the readable region.
func (b *Buffer) Prependable() int {
	return b.rPos
}

// Peek returns the readable region without consuming it.
func (b *Buffer) Peek() []byte {
	return b.buf[b.rPos:b.wPos]
}

// Retrieve advances the read position by n, consuming n bytes.
// It panics with ErrInvariantViolation if n exceeds Readable().
func (b *Buffer) Retrieve(n int) {
	if n > b.Readable() {
		panic(ErrInvariantViolation)
	}
	b.rPos += n
}

// RetrieveUntil consumes bytes up to (but not including) end, a pointer
// produced by slicing Peek()'s result.
func (b *Buffer) RetrieveUntil(end []byte) {
	n := len(b.buf) - cap(end) - b.rPos
	b.Retrieve(n)
}

// RetrieveAll zeroes the buffer contents and resets both indices to 0.
func (b *Buffer) RetrieveAll() {
	for i := range b.buf {
		b.buf[i] = 0
	}
	b.rPos = 0
	b.wPos = 0
}

// RetrieveAllToString copies the readable region to a new string and
// resets the buffer.
func (b *Buffer) RetrieveAllToString() string {
	s := string(b.Peek())
	b.RetrieveAll()
	return s
}

// BeginWrite returns the writable region for direct writes followed by
// HasWritten, for callers that format directly into the buffer rather
// than calling Append.
func (b *Buffer) BeginWrite() []byte {
	return b.buf[b.wPos:]
}

// HasWritten advances the write position after a direct write into the
// slice returned by BeginWrite.
func (b *Buffer) HasWritten(n int) {
	b.wPos += n
}

// Append copies data into the writable region, growing or compacting
// first if necessary.
func (b *Buffer) Append(data []byte) {
	b.ensureWritable(len(data))
	copy(b.buf[b.wPos:], data)
	b.HasWritten(len(data))
}

// AppendString is a convenience wrapper around Append.
func (b *Buffer) AppendString(s string) {
	b.Append([]byte(s))
}

func (b *Buffer) ensureWritable(n int) {
	if b.Writable() < n {
		b.makeSpace(n)
	}
}

// makeSpace implements the growth policy from the core's data model: if
// the writable plus prependable space is still short, grow the backing
// array to write_pos+n+1; otherwise compact by sliding the readable
// region down to offset 0.
func (b *Buffer) makeSpace(n int) {
	if b.Writable()+b.Prependable() < n {
		grown := make([]byte, b.wPos+n+1)
		copy(grown, b.buf)
		b.buf = grown
		return
	}
	readable := b.Readable()
	copy(b.buf, b.buf[b.rPos:b.wPos])
	b.rPos = 0
	b.wPos = readable
}

// ReadFd performs a vectored read from fd: the buffer's own writable
// region first, then a 64KiB stack-local spillover. Under edge-triggered
// epoll this lets one syscall drain the socket's receive queue while
// keeping per-call memory bounded. If the kernel filled more than the
// buffer's own writable region, the remainder is appended (growing the
// buffer if needed).
func (b *Buffer) ReadFd(fd int) (int, error) {
	var spill [spillSize]byte
	writable := b.Writable()

	iovs := [][]byte{b.buf[b.wPos:], spill[:]}
	n, err := unix.Readv(fd, iovs)
	if err != nil {
		return n, err
	}

	if n <= writable {
		b.wPos += n
	} else {
		b.wPos = len(b.buf)
		b.Append(spill[:n-writable])
	}
	return n, nil
}

// WriteFd performs a single non-vectored write of the readable region,
// advancing the read position by however many bytes the kernel accepted.
func (b *Buffer) WriteFd(fd int) (int, error) {
	n, err := unix.Write(fd, b.Peek())
	if n > 0 {
		b.Retrieve(n)
	}
	return n, err
}
