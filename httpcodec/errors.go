package httpcodec

import "errors"

var (
	// ErrIncomplete means the buffer does not yet hold a full request
	// (no terminating CRLFCRLF found); the caller should wait for more
	// bytes from the socket rather than treating this as malformed.
	ErrIncomplete = errors.New("httpcodec: incomplete request")
	// ErrMalformedRequest means the request line or headers could not
	// be parsed; the core composes a 400 response and proceeds to
	// WRITING rather than closing outright.
	ErrMalformedRequest = errors.New("httpcodec: malformed request")
	// ErrFileNotFound and ErrPermissionDenied classify static-resource
	// lookup failures: MakeResponse answers 404/403 with the status's
	// template page under srcDir, or an inline error body when that
	// template cannot be mapped.
	ErrFileNotFound     = errors.New("httpcodec: file not found")
	ErrPermissionDenied = errors.New("httpcodec: permission denied")
)
