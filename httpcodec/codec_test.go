package httpcodec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/enigmaiiiiiiii/webserver/netbuf"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleGet(t *testing.T) {
	buf := netbuf.New(64)
	buf.AppendString("GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n")

	req, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, "GET", req.Method)
	require.Equal(t, "/index.html", req.Path)
	require.True(t, req.KeepAlive)
	require.Equal(t, 0, buf.Readable())
}

func TestParseConnectionClose(t *testing.T) {
	buf := netbuf.New(64)
	buf.AppendString("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")

	req, err := Parse(buf)
	require.NoError(t, err)
	require.False(t, req.KeepAlive)
}

func TestParseIncompleteWaitsForMore(t *testing.T) {
	buf := netbuf.New(64)
	buf.AppendString("GET / HTTP/1.1\r\nHost: x")

	_, err := Parse(buf)
	require.ErrorIs(t, err, ErrIncomplete)
	require.Equal(t, len("GET / HTTP/1.1\r\nHost: x"), buf.Readable())
}

func TestParseMalformedRequestLine(t *testing.T) {
	buf := netbuf.New(64)
	buf.AppendString("NOT_HTTP\r\n\r\n")

	_, err := Parse(buf)
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestMakeResponseServesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello"), 0o644))

	dst := netbuf.New(64)
	mapped, err := MakeResponse(dst, dir, "/index.html", true, 200)
	require.NoError(t, err)
	require.NotNil(t, mapped)
	defer mapped.Unmap()

	out := dst.RetrieveAllToString()
	require.Contains(t, out, "HTTP/1.1 200 OK")
	require.Contains(t, out, "Content-length: 5")
	require.Equal(t, []byte("hello"), mapped.Bytes())
}

func TestMakeResponseMissingFileIs404(t *testing.T) {
	dir := t.TempDir()
	dst := netbuf.New(64)
	mapped, err := MakeResponse(dst, dir, "/nope", true, 200)
	require.ErrorIs(t, err, ErrFileNotFound)
	require.Nil(t, mapped)
	require.Contains(t, dst.RetrieveAllToString(), "HTTP/1.1 404 Not Found")
}

func TestMakeResponseUnreadableFileIs403(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	p := filepath.Join(dir, "secret.html")
	require.NoError(t, os.WriteFile(p, []byte("shh"), 0o600))

	dst := netbuf.New(64)
	mapped, err := MakeResponse(dst, dir, "/secret.html", true, 200)
	require.ErrorIs(t, err, ErrPermissionDenied)
	require.Nil(t, mapped)
	require.Contains(t, dst.RetrieveAllToString(), "HTTP/1.1 403 Forbidden")
}

func TestMakeResponseDirectoryIs404(t *testing.T) {
	dir := t.TempDir()
	dst := netbuf.New(64)
	mapped, err := MakeResponse(dst, dir, "/", true, 200)
	require.ErrorIs(t, err, ErrFileNotFound)
	require.Nil(t, mapped)
	require.Contains(t, dst.RetrieveAllToString(), "HTTP/1.1 404 Not Found")
}

func TestMakeResponseForcedBadRequest(t *testing.T) {
	dir := t.TempDir()
	dst := netbuf.New(64)
	mapped, err := MakeResponse(dst, dir, "/whatever", false, 400)
	require.NoError(t, err)
	require.Nil(t, mapped)
	require.Contains(t, dst.RetrieveAllToString(), "HTTP/1.1 400 Bad Request")
}

func TestMakeResponseMissingFileServesTemplatePage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "404.html"), []byte("<html>not here</html>"), 0o644))

	dst := netbuf.New(64)
	mapped, err := MakeResponse(dst, dir, "/nope", true, 200)
	require.ErrorIs(t, err, ErrFileNotFound)
	require.NotNil(t, mapped)
	defer mapped.Unmap()

	out := dst.RetrieveAllToString()
	require.Contains(t, out, "HTTP/1.1 404 Not Found")
	require.Contains(t, out, "Content-type: text/html")
	require.Contains(t, out, "Content-length: 21")
	require.Equal(t, []byte("<html>not here</html>"), mapped.Bytes())
}

func TestMimeTypeUnknownExtensionIsPlainText(t *testing.T) {
	require.Equal(t, "text/plain", mimeType("/file.unknownext"))
	require.Equal(t, "text/html", mimeType("/index.html"))
}
