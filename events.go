// Package h1 implements a sans-I/O HTTP/1.1 protocol engine: a Connection
// object that translates between bytes on a bidirectional stream and
// high-level protocol events, performing no network I/O, threading, or
// buffering beyond what the protocol itself requires (spec.md §1).
package h1

import "github.com/wire1/h1/internal/httpx"

// HeaderField is a single (name, value) header pair, stored as the raw
// bytes that appeared (or will appear) on the wire.
type HeaderField = httpx.Field

// Headers is an ordered sequence of header fields; names compare
// case-insensitively, and order is preserved on emission (spec.md §3).
type Headers = httpx.Headers

// Event is the sealed set of protocol-level occurrences the engine
// produces and consumes (spec.md §3). Paused is intentionally not part of
// this interface's "wire-facing" family conceptually, but implements it so
// it can still flow through the same receive_data return slice.
type Event interface {
	isEvent()
}

// Request is the first event of a client/server exchange.
type Request struct {
	Method      []byte
	Target      []byte
	Headers     Headers
	HTTPVersion []byte // bytes after "HTTP/", e.g. "1.1"
}

func (Request) isEvent() {}

// InformationalResponse is a 1xx response; zero or more may precede the
// final Response.
type InformationalResponse struct {
	StatusCode  int
	Headers     Headers
	HTTPVersion []byte
}

func (InformationalResponse) isEvent() {}

// Response is the final, non-informational (>=200) response.
type Response struct {
	StatusCode  int
	Headers     Headers
	HTTPVersion []byte
	Reason      []byte // optional; nil selects the standard reason phrase when sending
}

func (Response) isEvent() {}

// Data is one slice of body. Receivers may emit multiple per message;
// senders emit as many as they produce.
type Data struct {
	Data []byte
}

func (Data) isEvent() {}

// EndOfMessage terminates a body; Headers (trailers) default to empty.
type EndOfMessage struct {
	Headers Headers
}

func (EndOfMessage) isEvent() {}

// ConnectionClosed signals that the peer has shut down its send direction.
type ConnectionClosed struct{}

func (ConnectionClosed) isEvent() {}

// Paused is a pseudo-event: it signals that further parsing requires
// external action (protocol switch or connection reuse). It never crosses
// the state machine (spec.md §3, §9).
type Paused struct {
	Reason State
}

func (Paused) isEvent() {}
