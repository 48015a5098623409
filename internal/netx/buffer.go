// Package netx provides the low-level byte buffer used by the protocol
// engine to accumulate bytes received from a peer before they can be parsed
// into events.
package netx

import (
	"bytes"

	"github.com/valyala/bytebufferpool"
)

var pool bytebufferpool.Pool

// ReceiveBuffer is an append-only byte buffer with line-scanning and
// compaction support. It holds bytes that have arrived from a peer but not
// yet been consumed by a reader. It is not safe for concurrent use; callers
// are expected to serialize access externally (see spec.md §5).
type ReceiveBuffer struct {
	buf    *bytebufferpool.ByteBuffer
	start  int // index of the first unconsumed byte in buf.B
	closed bool
}

// NewReceiveBuffer returns an empty ReceiveBuffer backed by a pooled
// allocation.
func NewReceiveBuffer() *ReceiveBuffer {
	return &ReceiveBuffer{buf: pool.Get()}
}

// Release returns the buffer's backing storage to the pool. After Release,
// the ReceiveBuffer must not be used again.
func (b *ReceiveBuffer) Release() {
	if b.buf != nil {
		pool.Put(b.buf)
		b.buf = nil
	}
}

// Append adds data to the end of the buffer.
func (b *ReceiveBuffer) Append(data []byte) {
	b.buf.B = append(b.buf.B, data...)
}

// Len returns the number of unconsumed bytes currently buffered.
func (b *ReceiveBuffer) Len() int {
	return len(b.buf.B) - b.start
}

// Bytes returns the unconsumed bytes. The returned slice is only valid
// until the next call to Append, Consume, or Compact.
func (b *ReceiveBuffer) Bytes() []byte {
	return b.buf.B[b.start:]
}

// Consume removes the first n unconsumed bytes from the buffer.
func (b *ReceiveBuffer) Consume(n int) {
	if n < 0 || n > b.Len() {
		panic("netx: Consume out of range")
	}
	b.start += n
}

// Compact drops already-consumed prefix bytes, shrinking the buffer's
// logical backing without copying more than necessary. It should be invoked
// after each parse pass (spec.md §4.1).
func (b *ReceiveBuffer) Compact() {
	if b.start == 0 {
		return
	}
	n := copy(b.buf.B, b.buf.B[b.start:])
	b.buf.B = b.buf.B[:n]
	b.start = 0
}

// IndexCRLF returns the index of the first "\r\n" within the unconsumed
// bytes, or -1 if not present. A lone "\n" is also accepted as a line
// terminator for interoperability (spec.md §6); in that case the returned
// index refers to the "\n" itself, and the caller is responsible for
// distinguishing the one-byte vs two-byte terminator width.
func (b *ReceiveBuffer) IndexCRLF() int {
	data := b.Bytes()
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		if i > 0 && data[i-1] == '\r' {
			return i - 1
		}
		return i
	}
	return -1
}

// IndexDoubleCRLF returns the index of the start of the first blank-line
// terminator ("\r\n\r\n" or "\n\n") within the unconsumed bytes, or -1 if
// not present.
func (b *ReceiveBuffer) IndexDoubleCRLF() int {
	data := b.Bytes()
	if i := bytes.Index(data, []byte("\r\n\r\n")); i >= 0 {
		return i
	}
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i
	}
	return -1
}
