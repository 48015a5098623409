package httpx

import (
	"bytes"
	"strconv"

	"github.com/wire1/h1/internal/h1err"
	"github.com/wire1/h1/internal/netx"
)

// httpVersionPrefix is the literal that precedes the version digits on both
// request and status lines.
var httpVersionPrefix = []byte("HTTP/")

// ReadMessageHead locates a double-CRLF-terminated block at the front of
// buf, consumes it, and splits it into its start line and header lines. It
// returns ok=false (without consuming anything) if the terminator hasn't
// arrived yet and the buffer is still under maxSize; it fails with a
// *h1err.ProtocolError hinting 431 if the terminator hasn't arrived and the
// buffer has reached maxSize (spec.md §4.3).
func ReadMessageHead(buf *netx.ReceiveBuffer, maxSize int) (startLine []byte, headerLines [][]byte, ok bool, err error) {
	idx := buf.IndexDoubleCRLF()
	if idx < 0 {
		if buf.Len() >= maxSize {
			return nil, nil, false, h1err.WithHint(431, "start line + headers exceed max buffer size")
		}
		return nil, nil, false, nil
	}

	data := buf.Bytes()
	// Find exactly where the blank-line terminator ends so we know how
	// many bytes to consume. idx points at the start of either "\r\n\r\n"
	// or "\n\n".
	var termLen int
	if idx+3 < len(data) && data[idx] == '\r' {
		termLen = 4
	} else {
		termLen = 2
	}
	block := data[:idx]
	consumed := idx + termLen

	lines := splitLines(block)
	if len(lines) == 0 {
		return nil, nil, false, h1err.WithHint(400, "empty start line")
	}
	for i := 1; i < len(lines); i++ {
		if len(lines[i]) > 0 && (lines[i][0] == ' ' || lines[i][0] == '\t') {
			return nil, nil, false, h1err.WithHint(400, "obsolete line folding is not allowed")
		}
	}

	buf.Consume(consumed)
	return lines[0], lines[1:], true, nil
}

// splitLines splits block on "\n", stripping a trailing "\r" from each
// line. Unlike bytes.Split on "\r\n", this also tolerates input that used a
// lone "\n" as a separator, per spec.md §6's interoperability allowance.
func splitLines(block []byte) [][]byte {
	raw := bytes.Split(block, []byte("\n"))
	out := make([][]byte, 0, len(raw))
	for _, l := range raw {
		out = append(out, bytes.TrimSuffix(l, []byte("\r")))
	}
	return out
}

// RequestLine is the parsed form of an HTTP request line.
type RequestLine struct {
	Method  []byte
	Target  []byte
	Version []byte // bytes after "HTTP/", e.g. "1.1"
}

// ParseRequestLine parses "METHOD SP request-target SP HTTP/x.y" per the
// strict ABNF of RFC 7230 §3.1.1: method is an uppercase ASCII token, the
// target is a single opaque non-whitespace run, and the version must be
// exactly "HTTP/" followed by one digit, '.', one digit.
func ParseRequestLine(line []byte) (RequestLine, error) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return RequestLine{}, h1err.WithHint(400, "malformed request line")
	}
	method, target, proto := parts[0], parts[1], parts[2]

	if len(method) == 0 || !isToken(method) {
		return RequestLine{}, h1err.WithHint(400, "invalid method")
	}
	for _, c := range method {
		if c < 'A' || c > 'Z' {
			return RequestLine{}, h1err.WithHint(400, "method must be an uppercase token")
		}
	}
	if len(target) == 0 || bytes.ContainsAny(target, " \t") {
		return RequestLine{}, h1err.WithHint(400, "invalid request-target")
	}
	version, err := parseHTTPVersion(proto)
	if err != nil {
		return RequestLine{}, err
	}
	return RequestLine{Method: method, Target: target, Version: version}, nil
}

// StatusLine is the parsed form of an HTTP status line.
type StatusLine struct {
	Version    []byte
	StatusCode int
	Reason     []byte
}

// ParseStatusLine parses "HTTP/x.y SP status-code SP reason-phrase".
func ParseStatusLine(line []byte) (StatusLine, error) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 {
		return StatusLine{}, h1err.WithHint(400, "malformed status line")
	}
	version, err := parseHTTPVersion(parts[0])
	if err != nil {
		return StatusLine{}, err
	}
	if len(parts[1]) != 3 {
		return StatusLine{}, h1err.WithHint(400, "invalid status code")
	}
	code, convErr := strconv.Atoi(string(parts[1]))
	if convErr != nil || code < 100 || code > 999 {
		return StatusLine{}, h1err.WithHint(400, "invalid status code")
	}
	var reason []byte
	if len(parts) == 3 {
		reason = parts[2]
	}
	return StatusLine{Version: version, StatusCode: code, Reason: reason}, nil
}

func parseHTTPVersion(proto []byte) ([]byte, error) {
	if !bytes.HasPrefix(proto, httpVersionPrefix) {
		return nil, h1err.WithHint(400, "invalid protocol version")
	}
	v := proto[len(httpVersionPrefix):]
	if len(v) != 3 {
		return nil, h1err.WithHint(400, "invalid protocol version")
	}
	if _, _, ok := splitVersion(v); !ok {
		return nil, h1err.WithHint(400, "invalid protocol version")
	}
	return v, nil
}

func isToken(s []byte) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '!', c == '#', c == '$', c == '%', c == '&', c == '\'',
			c == '*', c == '+', c == '-', c == '.', c == '^', c == '_',
			c == '`', c == '|', c == '~':
			continue
		default:
			return false
		}
	}
	return true
}

// ParseHeaderLines parses a sequence of "Name: value" lines into Headers,
// rejecting malformed field lines.
func ParseHeaderLines(lines [][]byte) (Headers, error) {
	h := make(Headers, 0, len(lines))
	for _, line := range lines {
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return nil, h1err.WithHint(400, "malformed header field")
		}
		name := line[:colon]
		value := bytes.TrimSpace(line[colon+1:])
		f := Field{Name: append([]byte(nil), name...), Value: append([]byte(nil), value...)}
		if err := ValidateField(f); err != nil {
			return nil, err
		}
		h = append(h, f)
	}
	return h, nil
}
