package httpcodec

import (
	"bytes"
	"strings"

	"github.com/enigmaiiiiiiii/webserver/netbuf"
)

// Request is the subset of an HTTP/1.1 request the core's state machine
// consumes: method, path, protocol version and the keep-alive flag.
// Header lines other than Connection are scanned but not surfaced, a
// query string stays part of Path, and the body is not read, since
// request parsing beyond these tokens is out of the core's scope.
type Request struct {
	Method    string
	Path      string
	Version   string
	KeepAlive bool
}

var crlfcrlf = []byte("\r\n\r\n")

// Parse scans buf's readable region for a complete HTTP/1.1 request. It
// returns ErrIncomplete if no terminating blank line is present yet
// (the caller should wait for more bytes), or ErrMalformedRequest if the
// request line itself doesn't parse. On success it consumes exactly the
// header block from buf (Retrieve), leaving any pipelined bytes past
// it untouched — though request pipelining beyond sequential keep-alive
// reuse isn't supported elsewhere in this engine, so callers only ever
// see one request worth of bytes at a time in practice.
func Parse(buf *netbuf.Buffer) (Request, error) {
	readable := buf.Peek()
	end := bytes.Index(readable, crlfcrlf)
	if end < 0 {
		return Request{}, ErrIncomplete
	}

	headerBlock := readable[:end]
	lines := strings.Split(string(headerBlock), "\r\n")
	if len(lines) == 0 {
		buf.Retrieve(end + len(crlfcrlf))
		return Request{}, ErrMalformedRequest
	}

	req, ok := parseRequestLine(lines[0])
	if !ok {
		buf.Retrieve(end + len(crlfcrlf))
		return Request{}, ErrMalformedRequest
	}

	req.KeepAlive = defaultKeepAlive(req.Version)
	for _, line := range lines[1:] {
		name, value, ok := splitHeader(line)
		if !ok {
			continue
		}
		if strings.EqualFold(name, "Connection") {
			req.KeepAlive = strings.EqualFold(strings.TrimSpace(value), "keep-alive")
		}
	}

	buf.Retrieve(end + len(crlfcrlf))
	return req, nil
}

func defaultKeepAlive(version string) bool {
	return version == "HTTP/1.1"
}

func parseRequestLine(line string) (Request, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Request{}, false
	}
	method, path, version := fields[0], fields[1], fields[2]
	if !strings.HasPrefix(version, "HTTP/") {
		return Request{}, false
	}
	if path == "" || path[0] != '/' {
		return Request{}, false
	}
	return Request{Method: method, Path: path, Version: version}, true
}

func splitHeader(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return line[:idx], line[idx+1:], true
}
