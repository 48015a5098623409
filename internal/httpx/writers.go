package httpx

import (
	"strconv"

	"github.com/wire1/h1/internal/h1err"
)

// Sink receives successive slices of wire bytes. Writers never retain the
// slices they're given (spec.md §5); for Data payloads they forward the
// caller's own slice unchanged, preserving identity for the zero-copy send
// path (spec.md §9).
type Sink func([]byte)

var (
	sp   = []byte(" ")
	crlf = []byte("\r\n")
)

// WriteRequestLine emits "METHOD SP target SP HTTP/1.1 CRLF". The engine
// never generates HTTP/1.0 requests (spec.md §4.4).
func WriteRequestLine(method, target []byte, sink Sink) {
	sink(method)
	sink(sp)
	sink(target)
	sink(sp)
	sink([]byte("HTTP/1.1"))
	sink(crlf)
}

// WriteStatusLine emits "HTTP/1.1 SP code SP reason CRLF". If reason is
// nil, the standard table phrase is used (an empty reason phrase, after the
// SP, if the code is not in the table).
func WriteStatusLine(statusCode int, reason []byte, sink Sink) {
	sink([]byte("HTTP/1.1"))
	sink(sp)
	sink([]byte(strconv.Itoa(statusCode)))
	sink(sp)
	if reason == nil {
		if phrase := ReasonPhrase(statusCode); phrase != "" {
			sink([]byte(phrase))
		}
	} else {
		sink(reason)
	}
	sink(crlf)
}

// WriteHeaders emits each field as "Name: Value\r\n", followed by the blank
// line terminating the header section.
func WriteHeaders(h Headers, sink Sink) {
	for _, f := range h {
		sink(f.Name)
		sink([]byte(": "))
		sink(f.Value)
		sink(crlf)
	}
	sink(crlf)
}

// --- body writers ------------------------------------------------------

// BodyWriter is the writer-side counterpart of BodyReader (spec.md §4.4).
type BodyWriter interface {
	WriteData(data []byte, sink Sink) error
	WriteEndOfMessage(trailers Headers, sink Sink) error
}

// ChunkedBodyWriter emits "hex(len) CRLF data CRLF" per Data event, and
// "0 CRLF trailers CRLF" on EndOfMessage.
type ChunkedBodyWriter struct{}

func (ChunkedBodyWriter) WriteData(data []byte, sink Sink) error {
	if len(data) == 0 {
		return nil
	}
	sink([]byte(strconv.FormatInt(int64(len(data)), 16)))
	sink(crlf)
	sink(data)
	sink(crlf)
	return nil
}

func (ChunkedBodyWriter) WriteEndOfMessage(trailers Headers, sink Sink) error {
	sink([]byte("0"))
	sink(crlf)
	WriteHeaders(trailers, sink)
	return nil
}

// ContentLengthBodyWriter appends data verbatim, erroring if the total
// exceeds the declared length; EndOfMessage emits nothing.
type ContentLengthBodyWriter struct {
	declared  int64
	written   int64
}

func NewContentLengthBodyWriter(declared int64) *ContentLengthBodyWriter {
	return &ContentLengthBodyWriter{declared: declared}
}

func (w *ContentLengthBodyWriter) WriteData(data []byte, sink Sink) error {
	w.written += int64(len(data))
	if w.written > w.declared {
		return h1err.New("Data exceeds declared Content-Length")
	}
	sink(data)
	return nil
}

func (w *ContentLengthBodyWriter) WriteEndOfMessage(trailers Headers, sink Sink) error {
	return nil
}

// HTTP10BodyWriter appends bytes verbatim; the framing is implicitly the
// subsequent connection close. EndOfMessage emits nothing.
type HTTP10BodyWriter struct{}

func (HTTP10BodyWriter) WriteData(data []byte, sink Sink) error {
	sink(data)
	return nil
}

func (HTTP10BodyWriter) WriteEndOfMessage(trailers Headers, sink Sink) error {
	return nil
}
