package httpx

import "github.com/wire1/h1/internal/netx"

// ReadRequest reads a request line plus header block (spec.md §4.3, the
// IDLE-state reader). ok=false means more data is needed.
func ReadRequest(buf *netx.ReceiveBuffer, maxSize int) (RequestLine, Headers, bool, error) {
	startLine, headerLines, ok, err := ReadMessageHead(buf, maxSize)
	if err != nil || !ok {
		return RequestLine{}, nil, ok, err
	}
	rl, err := ParseRequestLine(startLine)
	if err != nil {
		return RequestLine{}, nil, false, err
	}
	h, err := ParseHeaderLines(headerLines)
	if err != nil {
		return RequestLine{}, nil, false, err
	}
	return rl, h, true, nil
}

// ReadStatusAndHeaders reads a status line plus header block (spec.md §4.3,
// the SEND_RESPONSE-state reader, shared by Response and
// InformationalResponse). ok=false means more data is needed.
func ReadStatusAndHeaders(buf *netx.ReceiveBuffer, maxSize int) (StatusLine, Headers, bool, error) {
	startLine, headerLines, ok, err := ReadMessageHead(buf, maxSize)
	if err != nil || !ok {
		return StatusLine{}, nil, ok, err
	}
	sl, err := ParseStatusLine(startLine)
	if err != nil {
		return StatusLine{}, nil, false, err
	}
	h, err := ParseHeaderLines(headerLines)
	if err != nil {
		return StatusLine{}, nil, false, err
	}
	return sl, h, true, nil
}
