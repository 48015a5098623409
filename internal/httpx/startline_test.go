package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wire1/h1/internal/netx"
)

func TestParseRequestLine(t *testing.T) {
	rl, err := ParseRequestLine([]byte("GET /index.html HTTP/1.1"))
	require.NoError(t, err)
	assert.Equal(t, "GET", string(rl.Method))
	assert.Equal(t, "/index.html", string(rl.Target))
	assert.Equal(t, "1.1", string(rl.Version))
}

func TestParseRequestLineRejectsLowercaseMethod(t *testing.T) {
	_, err := ParseRequestLine([]byte("get / HTTP/1.1"))
	assert.Error(t, err)
}

func TestParseRequestLineRejectsMalformed(t *testing.T) {
	_, err := ParseRequestLine([]byte("GET /"))
	assert.Error(t, err)
}

func TestParseStatusLine(t *testing.T) {
	sl, err := ParseStatusLine([]byte("HTTP/1.1 200 OK"))
	require.NoError(t, err)
	assert.Equal(t, "1.1", string(sl.Version))
	assert.Equal(t, 200, sl.StatusCode)
	assert.Equal(t, "OK", string(sl.Reason))
}

func TestParseStatusLineWithoutReason(t *testing.T) {
	sl, err := ParseStatusLine([]byte("HTTP/1.1 204"))
	require.NoError(t, err)
	assert.Equal(t, 204, sl.StatusCode)
	assert.Empty(t, sl.Reason)
}

func TestReadMessageHeadNeedsMoreData(t *testing.T) {
	buf := netx.NewReceiveBuffer()
	defer buf.Release()
	buf.Append([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))
	_, _, ok, err := ReadMessageHead(buf, 1024)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadMessageHeadParsesStartLineAndHeaders(t *testing.T) {
	buf := netx.NewReceiveBuffer()
	defer buf.Release()
	buf.Append([]byte("GET / HTTP/1.1\r\nHost: x\r\nX-A: 1\r\n\r\nleftover"))
	startLine, headerLines, ok, err := ReadMessageHead(buf, 1024)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GET / HTTP/1.1", string(startLine))
	assert.Len(t, headerLines, 2)
	assert.Equal(t, "leftover", string(buf.Bytes()))
}

func TestReadMessageHeadRejectsObsoleteLineFolding(t *testing.T) {
	buf := netx.NewReceiveBuffer()
	defer buf.Release()
	buf.Append([]byte("GET / HTTP/1.1\r\nX-A: 1\r\n continued\r\n\r\n"))
	_, _, _, err := ReadMessageHead(buf, 1024)
	assert.Error(t, err)
}

func TestReadMessageHeadTooLarge(t *testing.T) {
	buf := netx.NewReceiveBuffer()
	defer buf.Release()
	buf.Append([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))
	_, _, ok, err := ReadMessageHead(buf, 4)
	assert.False(t, ok)
	require.Error(t, err)
}

func TestParseHeaderLinesRejectsMalformed(t *testing.T) {
	_, err := ParseHeaderLines([][]byte{[]byte("no-colon-here")})
	assert.Error(t, err)
}
