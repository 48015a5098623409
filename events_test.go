package h1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWithDataPassthroughPreservesSliceIdentity(t *testing.T) {
	p := newConnPair()
	p.sendToPeer(t, CLIENT, Request{
		Method:      []byte("POST"),
		Target:      []byte("/"),
		Headers:     Headers{{Name: []byte("Host"), Value: []byte("x")}, {Name: []byte("Content-Length"), Value: []byte("5")}},
		HTTPVersion: []byte("1.1"),
	})

	payload := []byte("hello")
	parts, err := p.client.SendWithDataPassthrough(Data{Data: payload})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Same(t, &payload[0], &parts[0][0], "the Data payload slice must be forwarded unchanged, not copied")
}

func TestExpect100ContinueBookkeeping(t *testing.T) {
	p := newConnPair()
	req := Request{
		Method:      []byte("POST"),
		Target:      []byte("/"),
		Headers:     Headers{{Name: []byte("Host"), Value: []byte("x")}, {Name: []byte("Expect"), Value: []byte("100-continue")}, {Name: []byte("Content-Length"), Value: []byte("5")}},
		HTTPVersion: []byte("1.1"),
	}
	p.sendToPeer(t, CLIENT, req)
	assert.True(t, p.server.TheyAreWaitingFor100Continue())

	p.sendToPeer(t, SERVER, InformationalResponse{StatusCode: 100})
	assert.False(t, p.server.TheyAreWaitingFor100Continue())
}

func TestRequestWithoutExpectHeaderDoesNotWait(t *testing.T) {
	p := newConnPair()
	p.sendToPeer(t, CLIENT, Request{Method: []byte("GET"), Target: []byte("/"), Headers: Headers{{Name: []byte("Host"), Value: []byte("x")}}, HTTPVersion: []byte("1.1")})
	assert.False(t, p.server.TheyAreWaitingFor100Continue())
}
