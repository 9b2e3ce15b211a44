package httpcodec

import (
	"fmt"
	"os"
	"strconv"

	"github.com/enigmaiiiiiiii/webserver/netbuf"
	"golang.org/x/sys/unix"
)

// MappedFile is a read-only memory-mapped response body. Its lifetime
// must cover any in-flight writev referencing it; Unmap is
// idempotent so it's safe to call from both the keep-alive reset path
// and the close path.
type MappedFile struct {
	data []byte
}

// Bytes returns the mapped region, suitable as the second slot of a
// vectored write.
func (m *MappedFile) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.data
}

// Unmap releases the mapping. Calling Unmap twice, or on a nil
// *MappedFile, is a no-op.
func (m *MappedFile) Unmap() error {
	if m == nil || m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// statusTentativeOK is the status callers pass after a successful parse
// (httpconn.cpp::process passes 200 explicitly, not a sentinel): it
// still goes through the stat()-based 404/403 resolution below, exactly
// as HttpResponse::MakeResponse does regardless of what code_ already
// held. Any other status (e.g. 400 for a parse failure) is treated as
// final and bypasses the stat check entirely, so a deliberately forced
// error status can never be clobbered by an incidental stat() result
// for a garbage or empty path.
const statusTentativeOK = 200

// MakeResponse appends a status line, headers (including
// Content-length) and the terminating blank line to dst, grounded on
// HttpResponse::MakeResponse. When the resolved status is 200 it
// memory-maps the resource file read-only and returns it. For any other
// status it mirrors ErrorHtml_/CODE_PATH: the path is redirected to the
// status's static template under srcDir and that file is mapped instead;
// only if the template itself can't be mapped does it fall back to an
// inline HTML error body. The error return classifies why a non-200 was
// reached (ErrFileNotFound, ErrPermissionDenied) or is nil for a status
// the caller forced explicitly (e.g. a parse failure's 400).
func MakeResponse(dst *netbuf.Buffer, srcDir, path string, keepAlive bool, status int) (*MappedFile, error) {
	resolved := status
	fullPath := srcDir + path
	typePath := path

	var info os.FileInfo
	var outErr error
	if resolved == statusTentativeOK {
		var statErr error
		info, statErr = os.Stat(fullPath)
		switch {
		case statErr != nil || info.IsDir():
			resolved = 404
			outErr = ErrFileNotFound
		case info.Mode().Perm()&0004 == 0:
			resolved = 403
			outErr = ErrPermissionDenied
		default:
			resolved = 200
		}
	}

	reason, ok := codeStatus[resolved]
	if !ok {
		resolved = 400
		reason = codeStatus[400]
	}

	// Resolve the file mapping (if any) before writing a single byte of
	// header: a late mmap failure must still downgrade the status line
	// we're about to emit, not just the body.
	var mapped *MappedFile
	if resolved == 200 {
		m, err := mapFile(fullPath, info.Size())
		if err != nil {
			// The file vanished or became unmappable between stat and
			// open/mmap; degrade to 404 the way the original falls
			// back to ErrorContent_ on an open() failure.
			resolved = 404
			reason = codeStatus[404]
			outErr = ErrFileNotFound
		} else {
			mapped = m
		}
	}

	if resolved != 200 {
		if tmplPath, ok := codePath[resolved]; ok {
			typePath = tmplPath
			if m, tplInfo, ok := mapErrorTemplate(srcDir, tmplPath); ok {
				mapped = m
				info = tplInfo
			}
		}
	}

	dst.AppendString("HTTP/1.1 " + strconv.Itoa(resolved) + " " + reason + "\r\n")
	dst.AppendString("Connection: ")
	if keepAlive {
		dst.AppendString("keep-alive\r\n")
		dst.AppendString("keep-alive: max=6, timeout=120\r\n")
	} else {
		dst.AppendString("close\r\n")
	}
	dst.AppendString("Content-type: " + mimeType(typePath) + "\r\n")

	if resolved != 200 && mapped == nil {
		writeInlineError(dst, resolved, reason)
		return nil, outErr
	}

	dst.AppendString("Content-length: " + strconv.FormatInt(info.Size(), 10) + "\r\n\r\n")
	return mapped, outErr
}

// mapErrorTemplate stats and maps the static error page for a non-200
// status under srcDir, mirroring ErrorHtml_ redirecting path_ so
// AddContent_ reopens the template rather than the originally requested
// resource. ok is false if the template is missing, is a directory, or
// can't be mapped, telling the caller to fall back to an inline body.
func mapErrorTemplate(srcDir, tmplPath string) (*MappedFile, os.FileInfo, bool) {
	fullPath := srcDir + tmplPath
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return nil, nil, false
	}
	m, err := mapFile(fullPath, info.Size())
	if err != nil {
		return nil, nil, false
	}
	return m, info, true
}

func mapFile(fullPath string, size int64) (*MappedFile, error) {
	if size == 0 {
		return &MappedFile{data: nil}, nil
	}
	fd, err := unix.Open(fullPath, unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &MappedFile{data: data}, nil
}

// writeInlineError appends a Content-length header plus the inline HTML
// error body, copied in shape from HttpResponse::ErrorContent.
func writeInlineError(dst *netbuf.Buffer, status int, reason string) {
	body := fmt.Sprintf(
		"<html><title>Error</title><body bgcolor=\"ffffff\">%d : %s\n<p>%s</p><hr><em>WebServer</em></body></html>",
		status, reason, errorMessage(status))
	dst.AppendString("Content-length: " + strconv.Itoa(len(body)) + "\r\n\r\n")
	dst.AppendString(body)
}

func errorMessage(status int) string {
	switch status {
	case 403:
		return "Forbidden!"
	case 404:
		return "File NotFound!"
	default:
		return "Bad Request!"
	}
}
