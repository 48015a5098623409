package httpx

import (
	"bytes"
	"strconv"

	"github.com/wire1/h1/internal/h1err"
)

// FramingKind identifies which body-reading/writing strategy applies to a
// message, per RFC 7230 §3.3.3 (spec.md §4.6).
type FramingKind int

const (
	FramingContentLength FramingKind = iota
	FramingChunked
	FramingHTTP10
)

// Framing is the outcome of the body-framing decision: a kind plus, for
// FramingContentLength, the declared length.
type Framing struct {
	Kind          FramingKind
	ContentLength int64
}

// MessageKind distinguishes a Request from a Response for framing purposes;
// InformationalResponse never reaches this function (spec.md §4.6 step 1:
// "for a response" only considers status >= 200).
type MessageKind int

const (
	MsgRequest MessageKind = iota
	MsgResponse
)

// BodyFraming implements the §3.3.3 decision: given the request method that
// started the exchange (empty for a standalone request being framed
// itself), the message kind, the status code (ignored for requests), and
// the message's own headers, decide how its body is framed.
func BodyFraming(requestMethod []byte, kind MessageKind, statusCode int, h Headers) (Framing, error) {
	if kind == MsgResponse {
		if statusCode == 204 || statusCode == 304 ||
			bytes.Equal(requestMethod, []byte("HEAD")) ||
			(bytes.Equal(requestMethod, []byte("CONNECT")) && statusCode >= 200 && statusCode < 300) {
			return Framing{Kind: FramingContentLength, ContentLength: 0}, nil
		}
	}

	transferEncodings := GetCommaHeader(h, "Transfer-Encoding")
	if len(transferEncodings) > 0 {
		if len(transferEncodings) != 1 || !bytes.Equal(transferEncodings[0], []byte("chunked")) {
			return Framing{}, h1err.WithHint(400, "Transfer-Encoding must be exactly \"chunked\"")
		}
		return Framing{Kind: FramingChunked}, nil
	}

	contentLengths := GetCommaHeader(h, "Content-Length")
	if len(contentLengths) > 0 {
		n, err := parseContentLength(contentLengths)
		if err != nil {
			return Framing{}, err
		}
		return Framing{Kind: FramingContentLength, ContentLength: n}, nil
	}

	if kind == MsgRequest {
		return Framing{Kind: FramingContentLength, ContentLength: 0}, nil
	}
	return Framing{Kind: FramingHTTP10}, nil
}

// parseContentLength rejects multiple conflicting Content-Length values
// (spec.md §4.6) and requires a single consistent non-negative integer.
func parseContentLength(values [][]byte) (int64, error) {
	first := ""
	for i, v := range values {
		s := string(v)
		if i == 0 {
			first = s
			continue
		}
		if s != first {
			return 0, h1err.WithHint(400, "conflicting Content-Length values")
		}
	}
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return 0, h1err.WithHint(400, "invalid Content-Length")
	}
	return n, nil
}
