package httpx

import (
	"bytes"
	"strconv"

	"github.com/wire1/h1/internal/h1err"
	"github.com/wire1/h1/internal/netx"
)

// BodyEvent is what a body reader produces on each call: either a slice of
// body data, or the terminating end-of-message with its (possibly empty)
// trailers.
type BodyEvent struct {
	Data     []byte
	EOM      bool
	Trailers Headers
}

// BodyReader is the common shape of the three body-reading strategies
// (spec.md §4.3). Next returns ok=false when more bytes are needed before
// progress can be made; it never blocks, since there is nothing to block
// on.
type BodyReader interface {
	Next(buf *netx.ReceiveBuffer) (ev BodyEvent, ok bool, err error)
}

// EOFReader is implemented only by body readers whose framing depends on
// connection close (HTTP/1.0-until-close bodies); it is invoked by the
// façade only when the buffer is empty and the peer has half-closed
// (spec.md §4.3, §4.6).
type EOFReader interface {
	ReadEOF() BodyEvent
}

// --- content-length ---------------------------------------------------

// ContentLengthReader tracks a declared remaining byte count, emitting Data
// as bytes arrive and a final EndOfMessage (empty trailers) on reaching
// zero. A declared length of zero emits EndOfMessage immediately on the
// first call (spec.md §4.3).
type ContentLengthReader struct {
	remaining int64
	eomSent   bool
}

func NewContentLengthReader(n int64) *ContentLengthReader {
	return &ContentLengthReader{remaining: n}
}

func (r *ContentLengthReader) Next(buf *netx.ReceiveBuffer) (BodyEvent, bool, error) {
	if r.eomSent {
		return BodyEvent{}, false, nil
	}
	if r.remaining == 0 {
		r.eomSent = true
		return BodyEvent{EOM: true}, true, nil
	}
	avail := buf.Bytes()
	if len(avail) == 0 {
		return BodyEvent{}, false, nil
	}
	n := int64(len(avail))
	if n > r.remaining {
		n = r.remaining
	}
	data := append([]byte(nil), avail[:n]...)
	buf.Consume(int(n))
	r.remaining -= n
	// If this exhausts the declared length, the EndOfMessage is reported
	// on the next call, mirroring the one-event-per-call contract used
	// throughout this package.
	return BodyEvent{Data: data}, true, nil
}

// --- HTTP/1.0 until-close ------------------------------------------------

// HTTP10Reader emits whatever bytes have arrived as Data, with no framing
// of its own; EndOfMessage is only produced via ReadEOF once the peer has
// closed (spec.md §4.3).
type HTTP10Reader struct{}

func NewHTTP10Reader() *HTTP10Reader {
	return &HTTP10Reader{}
}

func (r *HTTP10Reader) Next(buf *netx.ReceiveBuffer) (BodyEvent, bool, error) {
	avail := buf.Bytes()
	if len(avail) == 0 {
		return BodyEvent{}, false, nil
	}
	data := append([]byte(nil), avail...)
	buf.Consume(len(avail))
	return BodyEvent{Data: data}, true, nil
}

func (r *HTTP10Reader) ReadEOF() BodyEvent {
	return BodyEvent{EOM: true}
}

// --- chunked ---------------------------------------------------------

type chunkState int

const (
	chunkAwaitingSize chunkState = iota
	chunkAwaitingData
	chunkAwaitingDataCRLF
	chunkAwaitingTrailers
	chunkDone
)

// ChunkedReader parses chunked transfer encoding: hex chunk sizes, optional
// (ignored) chunk extensions, CRLF-delimited data, the final zero-size
// chunk, optional trailer headers, and the terminating CRLF (spec.md §4.3).
// Grounded on badu-http/utils_chunks.go's readChunkLine/removeChunkExtension
// for the chunk-extension-stripping and hex-size parsing behavior.
type ChunkedReader struct {
	state   chunkState
	remain  int64
	maxLine int
}

func NewChunkedReader() *ChunkedReader {
	return &ChunkedReader{maxLine: 8192}
}

func (r *ChunkedReader) Next(buf *netx.ReceiveBuffer) (BodyEvent, bool, error) {
	switch r.state {
	case chunkDone:
		return BodyEvent{}, false, nil

	case chunkAwaitingSize:
		line, ok, err := buf.ReadLine(r.maxLine)
		if err != nil {
			return BodyEvent{}, false, h1err.Wrap(err, "reading chunk size line")
		}
		if !ok {
			return BodyEvent{}, false, nil
		}
		size, err := parseChunkSizeLine(line)
		if err != nil {
			return BodyEvent{}, false, err
		}
		if size == 0 {
			r.state = chunkAwaitingTrailers
			return r.Next(buf)
		}
		r.remain = size
		r.state = chunkAwaitingData
		return r.Next(buf)

	case chunkAwaitingData:
		avail := buf.Bytes()
		if len(avail) == 0 {
			return BodyEvent{}, false, nil
		}
		n := int64(len(avail))
		if n > r.remain {
			n = r.remain
		}
		data := append([]byte(nil), avail[:n]...)
		buf.Consume(int(n))
		r.remain -= n
		if r.remain == 0 {
			r.state = chunkAwaitingDataCRLF
		}
		return BodyEvent{Data: data}, true, nil

	case chunkAwaitingDataCRLF:
		line, ok, err := buf.ReadLine(2)
		if err != nil {
			return BodyEvent{}, false, h1err.WithHint(400, "malformed chunk terminator")
		}
		if !ok {
			return BodyEvent{}, false, nil
		}
		if len(line) != 0 {
			return BodyEvent{}, false, h1err.WithHint(400, "malformed chunk terminator")
		}
		r.state = chunkAwaitingSize
		return r.Next(buf)

	case chunkAwaitingTrailers:
		trailers, ok, err := readTrailers(buf, r.maxLine)
		if err != nil {
			return BodyEvent{}, false, err
		}
		if !ok {
			return BodyEvent{}, false, nil
		}
		r.state = chunkDone
		return BodyEvent{EOM: true, Trailers: trailers}, true, nil

	default:
		return BodyEvent{}, false, h1err.New("invalid chunk reader state")
	}
}

func parseChunkSizeLine(line []byte) (int64, error) {
	if semi := bytes.IndexByte(line, ';'); semi >= 0 {
		line = line[:semi] // chunk extensions are ignored (spec.md §4.3)
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return 0, h1err.WithHint(400, "empty chunk size")
	}
	n, err := strconv.ParseInt(string(line), 16, 64)
	if err != nil || n < 0 {
		return 0, h1err.WithHint(400, "invalid chunk size")
	}
	return n, nil
}

// readTrailers reads zero or more "Name: value" lines terminated by a blank
// line, without requiring the whole block to be a single double-CRLF
// terminated unit (trailers may arrive incrementally after the zero-size
// chunk line already consumed).
func readTrailers(buf *netx.ReceiveBuffer, maxLine int) (Headers, bool, error) {
	var lines [][]byte
	// Peek without consuming until we have every trailer line plus the
	// blank terminator, so a short read doesn't lose already-parsed
	// trailers if more data hasn't arrived yet.
	snapshot := *buf
	for {
		line, ok, err := snapshot.ReadLine(maxLine)
		if err != nil {
			return nil, false, h1err.Wrap(err, "reading trailer line")
		}
		if !ok {
			return nil, false, nil
		}
		if len(line) == 0 {
			*buf = snapshot
			h, err := ParseHeaderLines(lines)
			if err != nil {
				return nil, false, err
			}
			return h, true, nil
		}
		lines = append(lines, append([]byte(nil), line...))
	}
}
