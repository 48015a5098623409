package netx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiveBufferAppendConsume(t *testing.T) {
	b := NewReceiveBuffer()
	defer b.Release()

	b.Append([]byte("hello "))
	b.Append([]byte("world"))
	assert.Equal(t, "hello world", string(b.Bytes()))
	assert.Equal(t, 11, b.Len())

	b.Consume(6)
	assert.Equal(t, "world", string(b.Bytes()))
	assert.Equal(t, 5, b.Len())
}

func TestReceiveBufferConsumeOutOfRangePanics(t *testing.T) {
	b := NewReceiveBuffer()
	defer b.Release()
	b.Append([]byte("hi"))
	assert.Panics(t, func() { b.Consume(3) })
}

func TestReceiveBufferCompact(t *testing.T) {
	b := NewReceiveBuffer()
	defer b.Release()

	b.Append([]byte("xxxxhello"))
	b.Consume(4)
	b.Compact()
	assert.Equal(t, "hello", string(b.Bytes()))

	b.Append([]byte(" world"))
	assert.Equal(t, "hello world", string(b.Bytes()))
}

func TestIndexCRLFAndDoubleCRLF(t *testing.T) {
	b := NewReceiveBuffer()
	defer b.Release()

	b.Append([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\nbody"))
	assert.Equal(t, 14, b.IndexCRLF())
	idx := b.IndexDoubleCRLF()
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "GET / HTTP/1.1\r\nHost: x", string(b.Bytes()[:idx]))
}

func TestIndexDoubleCRLFAcceptsLoneLF(t *testing.T) {
	b := NewReceiveBuffer()
	defer b.Release()
	b.Append([]byte("GET / HTTP/1.1\nHost: x\n\nbody"))
	assert.GreaterOrEqual(t, b.IndexDoubleCRLF(), 0)
}

func TestIndexDoubleCRLFMissing(t *testing.T) {
	b := NewReceiveBuffer()
	defer b.Release()
	b.Append([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))
	assert.Equal(t, -1, b.IndexDoubleCRLF())
}
