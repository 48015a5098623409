package h1

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wire1/h1/internal/h1err"
	"github.com/wire1/h1/internal/h1log"
	"github.com/wire1/h1/internal/h1state"
	"github.com/wire1/h1/internal/httpx"
	"github.com/wire1/h1/internal/netx"
)

// DefaultMaxBufferSize bounds how much unparsed data Connection will buffer
// before raising a 431 ProtocolError; in practice this only limits the size
// of a request/status line plus its headers (spec.md §4.1).
const DefaultMaxBufferSize = 16 * 1024

// Connection is the sans-I/O engine: it turns bytes received from a peer
// into Events, and Events to be sent into bytes, while enforcing the
// HTTP/1.1 state machine (spec.md §1, §3). It performs no I/O of its own.
type Connection struct {
	ourRole       h1state.Role
	maxBufferSize int
	cstate        *h1state.ConnState

	recvBuf    *netx.ReceiveBuffer
	recvClosed bool

	theirBodyReader httpx.BodyReader
	ourBodyWriter   httpx.BodyWriter

	theirHTTPVersion            []byte
	requestMethod               []byte
	clientWaitingFor100Continue bool

	log *h1log.Logger
}

// NewConnection returns a fresh Connection playing ourRole (CLIENT or
// SERVER). A maxBufferSize of 0 selects DefaultMaxBufferSize.
func NewConnection(ourRole Role, maxBufferSize int) *Connection {
	if maxBufferSize <= 0 {
		maxBufferSize = DefaultMaxBufferSize
	}
	return &Connection{
		ourRole:       ourRole,
		maxBufferSize: maxBufferSize,
		cstate:        h1state.New(ourRole),
		recvBuf:       netx.NewReceiveBuffer(),
		log:           h1log.Nop(),
	}
}

// SetLogger attaches a diagnostic logger; it never affects control flow.
func (c *Connection) SetLogger(l *h1log.Logger) {
	if l == nil {
		l = h1log.Nop()
	}
	c.log = l
}

// Release returns the connection's receive buffer to its pool. The
// Connection must not be used again afterward.
func (c *Connection) Release() {
	c.recvBuf.Release()
}

// StateOf returns the current state of the given role (spec.md §3).
func (c *Connection) StateOf(role Role) State { return c.cstate.StateOf(role) }

// ClientState is the current state of CLIENT.
func (c *Connection) ClientState() State { return c.cstate.StateOf(h1state.Client) }

// ServerState is the current state of SERVER.
func (c *Connection) ServerState() State { return c.cstate.StateOf(h1state.Server) }

// OurState is the current state of whichever role this Connection plays.
func (c *Connection) OurState() State { return c.cstate.StateOf(c.ourRole) }

// TheirState is the current state of the peer's role.
func (c *Connection) TheirState() State { return c.cstate.StateOf(c.cstate.TheirRole()) }

// TheirHTTPVersion is the HTTP version last seen on a message from the peer,
// or nil if none has been seen yet.
func (c *Connection) TheirHTTPVersion() []byte { return c.theirHTTPVersion }

// TheyAreWaitingFor100Continue reports whether the peer is a client that
// sent "Expect: 100-continue" and hasn't yet seen a response.
func (c *Connection) TheyAreWaitingFor100Continue() bool {
	return c.cstate.TheirRole() == h1state.Client && c.clientWaitingFor100Continue
}

// TrailingData returns whatever bytes have been received but not yet
// consumed into events, and whether the peer's send direction has closed
// (spec.md §9, protocol switching).
func (c *Connection) TrailingData() ([]byte, bool) {
	return c.recvBuf.Bytes(), c.recvClosed
}

// PrepareToReuse resets both roles to IDLE for a new request/response cycle
// on the same connection. It requires both roles be DONE and keep-alive
// still in effect (spec.md §4.5).
func (c *Connection) PrepareToReuse() error {
	if err := c.cstate.PrepareToReuse(); err != nil {
		return err
	}
	c.requestMethod = nil
	c.theirBodyReader = nil
	c.ourBodyWriter = nil
	return nil
}

func (c *Connection) processError(role h1state.Role) {
	c.cstate.ProcessError(role)
}

// --- receiving -----------------------------------------------------------

// ReceiveData feeds bytes received from the peer into the engine and
// returns every event that can now be parsed.
//
// data == nil re-parses whatever is already buffered without adding
// anything, which is only useful right after PrepareToReuse. A non-nil,
// zero-length data signals that the peer has closed its send direction
// (spec.md §4.1, §9).
func (c *Connection) ReceiveData(data []byte) ([]Event, error) {
	if c.cstate.StateOf(c.cstate.TheirRole()) == h1state.Error {
		return nil, h1err.New("can't receive data when peer state is ERROR")
	}

	if data != nil {
		if len(data) > 0 {
			if c.recvClosed {
				return nil, h1err.New("received close, then received more data")
			}
			c.recvBuf.Append(data)
		} else {
			c.recvClosed = true
		}
	}

	var events []Event
	for {
		ev, err := c.nextReceiveEvent()
		if err != nil {
			c.processError(c.cstate.TheirRole())
			return nil, err
		}
		if ev == nil {
			break
		}
		events = append(events, ev)
		if _, paused := ev.(Paused); paused {
			break
		}
		if err := c.applyEvent(c.cstate.TheirRole(), ev); err != nil {
			c.processError(c.cstate.TheirRole())
			return nil, err
		}
		if _, closed := ev.(ConnectionClosed); closed {
			break
		}
	}

	c.recvBuf.Compact()

	lastPaused := false
	if n := len(events); n > 0 {
		_, lastPaused = events[n-1].(Paused)
	}
	if !lastPaused && c.recvBuf.Len() > c.maxBufferSize {
		err := h1err.WithHint(431, "receive buffer too long")
		c.processError(c.cstate.TheirRole())
		return nil, err
	}

	if c.recvClosed {
		final := false
		if n := len(events); n > 0 {
			switch events[n-1].(type) {
			case Paused, ConnectionClosed:
				final = true
			}
		}
		if !final {
			err := h1err.New("peer unexpectedly closed connection")
			c.processError(c.cstate.TheirRole())
			return nil, err
		}
	}

	return events, nil
}

// nextReceiveEvent produces at most one event from the current buffer
// contents, or nil if more data is needed (spec.md §4.1).
func (c *Connection) nextReceiveEvent() (Event, error) {
	their := c.cstate.TheirRole()
	state := c.cstate.StateOf(their)

	// The peer can still send ConnectionClosed from DONE, but if we already
	// have buffered bytes then it isn't about to do that: the caller needs
	// to intervene (usually via PrepareToReuse).
	if state == h1state.Done && c.recvBuf.Len() > 0 {
		return Paused{Reason: state}, nil
	}
	if state == h1state.MightSwitchProtocol || state == h1state.SwitchedProtocol {
		return Paused{Reason: state}, nil
	}

	ev, ok, err := c.readFor(their, state)
	if err != nil {
		return nil, err
	}
	if ok {
		return ev, nil
	}

	if c.recvBuf.Len() == 0 && c.recvClosed {
		if state == h1state.SendBody && c.theirBodyReader != nil {
			if eofReader, isEOF := c.theirBodyReader.(httpx.EOFReader); isEOF {
				return bodyEventToEvent(eofReader.ReadEOF()), nil
			}
		}
		return ConnectionClosed{}, nil
	}
	return nil, nil
}

// readFor dispatches to the reader appropriate for the peer's current
// state: the message head for IDLE (peer is CLIENT) or SEND_RESPONSE (peer
// is SERVER), or the active body reader for SEND_BODY.
func (c *Connection) readFor(their h1state.Role, state h1state.State) (Event, bool, error) {
	switch {
	case state == h1state.SendBody:
		if c.theirBodyReader == nil {
			return nil, false, nil
		}
		be, ok, err := c.theirBodyReader.Next(c.recvBuf)
		if err != nil || !ok {
			return nil, ok, err
		}
		return bodyEventToEvent(be), true, nil

	case their == h1state.Client && state == h1state.Idle:
		rl, h, ok, err := httpx.ReadRequest(c.recvBuf, c.maxBufferSize)
		if err != nil || !ok {
			return nil, ok, err
		}
		return Request{Method: rl.Method, Target: rl.Target, Headers: h, HTTPVersion: rl.Version}, true, nil

	case their == h1state.Server && state == h1state.SendResponse:
		sl, h, ok, err := httpx.ReadStatusAndHeaders(c.recvBuf, c.maxBufferSize)
		if err != nil || !ok {
			return nil, ok, err
		}
		if sl.StatusCode < 200 {
			return InformationalResponse{StatusCode: sl.StatusCode, Headers: h, HTTPVersion: sl.Version}, true, nil
		}
		return Response{StatusCode: sl.StatusCode, Headers: h, HTTPVersion: sl.Version, Reason: sl.Reason}, true, nil

	default:
		return nil, false, nil
	}
}

func bodyEventToEvent(be httpx.BodyEvent) Event {
	if be.EOM {
		return EndOfMessage{Headers: be.Trailers}
	}
	return Data{Data: be.Data}
}

// --- sending ---------------------------------------------------------

// Send converts event into wire bytes. It returns nil for ConnectionClosed
// and for any event that puts no bytes on the wire (such as EndOfMessage on
// a Content-Length or HTTP/1.0 body).
func (c *Connection) Send(event Event) ([]byte, error) {
	parts, err := c.SendWithDataPassthrough(event)
	if err != nil {
		return nil, err
	}
	if parts == nil {
		return nil, nil
	}
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// SendWithDataPassthrough is identical to Send, except a Data event's
// payload is returned as the same slice that was passed in, unsplit, so the
// caller can hand it to something like a sendfile-style API without a copy
// (spec.md §9).
func (c *Connection) SendWithDataPassthrough(event Event) ([][]byte, error) {
	if c.cstate.StateOf(c.ourRole) == h1state.Error {
		return nil, h1err.New("can't send data when our state is ERROR")
	}

	if resp, ok := event.(Response); ok {
		cleaned, err := c.cleanUpResponseHeadersForSending(resp)
		if err != nil {
			c.processError(c.ourRole)
			return nil, err
		}
		event = cleaned
	}

	if err := c.applyEvent(c.ourRole, event); err != nil {
		c.processError(c.ourRole)
		return nil, err
	}

	if _, ok := event.(ConnectionClosed); ok {
		return nil, nil
	}

	var out [][]byte
	sink := func(b []byte) { out = append(out, b) }

	switch e := event.(type) {
	case Request:
		httpx.WriteRequestLine(e.Method, e.Target, sink)
		httpx.WriteHeaders(e.Headers, sink)
	case InformationalResponse:
		httpx.WriteStatusLine(e.StatusCode, nil, sink)
		httpx.WriteHeaders(e.Headers, sink)
	case Response:
		httpx.WriteStatusLine(e.StatusCode, e.Reason, sink)
		httpx.WriteHeaders(e.Headers, sink)
	case Data:
		if c.ourBodyWriter == nil {
			return nil, h1err.New("no active body writer")
		}
		if err := c.ourBodyWriter.WriteData(e.Data, sink); err != nil {
			c.processError(c.ourRole)
			return nil, err
		}
	case EndOfMessage:
		if c.ourBodyWriter == nil {
			return nil, h1err.New("no active body writer")
		}
		if err := c.ourBodyWriter.WriteEndOfMessage(e.Headers, sink); err != nil {
			c.processError(c.ourRole)
			return nil, err
		}
	}

	return out, nil
}

// cleanUpResponseHeadersForSending fills in the headers we take
// responsibility for on an outgoing Response: clearing a stale
// Content-Length when the body is actually unknown-length, selecting
// chunked vs. close-delimited framing based on the peer's HTTP version,
// and setting Connection: close when required (spec.md §4.6). It never
// mutates the caller's header slice.
func (c *Connection) cleanUpResponseHeadersForSending(resp Response) (Response, error) {
	framing, err := httpx.BodyFraming(c.requestMethod, httpx.MsgResponse, resp.StatusCode, resp.Headers)
	if err != nil {
		return Response{}, err
	}

	headers := resp.Headers.Clone()
	needClose := false

	if framing.Kind == httpx.FramingChunked || framing.Kind == httpx.FramingHTTP10 {
		headers = httpx.SetCommaHeader(headers, "Content-Length", nil)
		if c.theirHTTPVersion == nil || httpx.VersionLess(c.theirHTTPVersion, []byte("1.1")) {
			// Either we never got a valid request (their_http_version is
			// nil, so we assume the worst), or we did and it was 1.0:
			// either way the peer doesn't understand chunked encoding.
			headers = httpx.SetCommaHeader(headers, "Transfer-Encoding", nil)
			needClose = true
		} else {
			headers = httpx.SetCommaHeader(headers, "Transfer-Encoding", [][]byte{[]byte("chunked")})
		}
	}

	if !c.cstate.KeepAlive || needClose {
		headers = httpx.SetCommaHeader(headers, "Connection", connectionHeaderWithClose(httpx.GetCommaHeader(headers, "Connection")))
	}

	resp.Headers = headers
	return resp, nil
}

func connectionHeaderWithClose(existing [][]byte) [][]byte {
	set := map[string]bool{"close": true}
	for _, v := range existing {
		s := string(v)
		if s == "keep-alive" {
			continue
		}
		set[s] = true
	}
	names := make([]string, 0, len(set))
	for s := range set {
		names = append(names, s)
	}
	sort.Strings(names)
	out := make([][]byte, len(names))
	for i, s := range names {
		out[i] = []byte(s)
	}
	return out
}

// --- shared event application -----------------------------------------

// applyEvent drives an event of either role through the state machine and
// applies its side effects: request-method/version bookkeeping, keep-alive
// latching, 100-continue tracking, and constructing the body reader/writer
// that a SEND_BODY transition requires (spec.md §4.5, §4.6).
func (c *Connection) applyEvent(role h1state.Role, ev Event) error {
	before := c.cstate.StateOf(role)

	if role == h1state.Client {
		if req, ok := ev.(Request); ok {
			c.cstate.ProcessClientSwitchProposals(clientSwitchProposals(req))
		}
	}
	var serverSwitch *h1state.SwitchProposal
	if role == h1state.Server {
		serverSwitch = c.serverSwitchEvent(ev)
	}

	kind, err := eventKind(ev)
	if err != nil {
		return err
	}
	if err := c.cstate.ProcessEvent(role, kind, serverSwitch); err != nil {
		c.log.ProtocolError(role.String(), err.Error(), statusHintOf(err))
		return err
	}

	if req, ok := ev.(Request); ok {
		c.requestMethod = append([]byte(nil), req.Method...)
	}

	if role == c.cstate.TheirRole() {
		switch e := ev.(type) {
		case Request:
			c.theirHTTPVersion = e.HTTPVersion
		case Response:
			c.theirHTTPVersion = e.HTTPVersion
		case InformationalResponse:
			c.theirHTTPVersion = e.HTTPVersion
		}
	}

	switch e := ev.(type) {
	case Request:
		if !keepAliveHeaders(e.Headers, e.HTTPVersion) {
			c.cstate.ProcessKeepAliveDisabled()
		}
		if httpx.HasExpect100Continue(e.HTTPVersion, e.Headers) {
			c.clientWaitingFor100Continue = true
		}
	case Response:
		if !keepAliveHeaders(e.Headers, e.HTTPVersion) {
			c.cstate.ProcessKeepAliveDisabled()
		}
		c.clientWaitingFor100Continue = false
	case InformationalResponse:
		c.clientWaitingFor100Continue = false
	}

	if role == h1state.Client {
		switch ev.(type) {
		case Data, EndOfMessage:
			c.clientWaitingFor100Continue = false
		}
	}

	after := c.cstate.StateOf(role)
	if after != before {
		c.log.Transition(role.String(), before.String(), after.String(), fmt.Sprintf("%T", ev))
		if after == h1state.SendBody {
			framing, ferr := bodyFramingForEvent(c.requestMethod, ev)
			if ferr != nil {
				return ferr
			}
			if role == c.ourRole {
				c.ourBodyWriter = newBodyWriterForFraming(framing)
			} else {
				c.theirBodyReader = newBodyReaderForFraming(framing)
			}
		}
	}

	return nil
}

func statusHintOf(err error) int {
	if pe, ok := err.(*h1err.ProtocolError); ok {
		return pe.StatusHint
	}
	return 0
}

func eventKind(ev Event) (h1state.EventKind, error) {
	switch ev.(type) {
	case Request:
		return h1state.EvRequest, nil
	case InformationalResponse:
		return h1state.EvInformationalResponse, nil
	case Response:
		return h1state.EvResponse, nil
	case Data:
		return h1state.EvData, nil
	case EndOfMessage:
		return h1state.EvEndOfMessage, nil
	case ConnectionClosed:
		return h1state.EvConnectionClosed, nil
	default:
		return 0, h1err.Newf("unrecognized event type %T", ev)
	}
}

func clientSwitchProposals(req Request) []h1state.SwitchProposal {
	var out []h1state.SwitchProposal
	if bytes.Equal(req.Method, []byte("CONNECT")) {
		out = append(out, h1state.SwitchConnect)
	}
	if len(httpx.GetCommaHeader(req.Headers, "Upgrade")) > 0 {
		out = append(out, h1state.SwitchUpgrade)
	}
	return out
}

func (c *Connection) serverSwitchEvent(ev Event) *h1state.SwitchProposal {
	switch e := ev.(type) {
	case InformationalResponse:
		if e.StatusCode == 101 {
			p := h1state.SwitchUpgrade
			return &p
		}
	case Response:
		if c.cstate.PendingSwitchProposals[h1state.SwitchConnect] && e.StatusCode >= 200 && e.StatusCode < 300 {
			p := h1state.SwitchConnect
			return &p
		}
	}
	return nil
}

// keepAliveHeaders implements spec.md §4.5's keep-alive rule: Connection:
// close always wins, and anything below HTTP/1.1 defaults to close.
func keepAliveHeaders(h Headers, version []byte) bool {
	for _, v := range httpx.GetCommaHeader(h, "Connection") {
		if string(v) == "close" {
			return false
		}
	}
	if version == nil {
		version = []byte("1.1")
	}
	if httpx.VersionLess(version, []byte("1.1")) {
		return false
	}
	return true
}

func bodyFramingForEvent(requestMethod []byte, ev Event) (httpx.Framing, error) {
	switch e := ev.(type) {
	case Request:
		return httpx.BodyFraming(requestMethod, httpx.MsgRequest, 0, e.Headers)
	case Response:
		return httpx.BodyFraming(requestMethod, httpx.MsgResponse, e.StatusCode, e.Headers)
	default:
		return httpx.Framing{}, h1err.Newf("unexpected event %T entering SEND_BODY", ev)
	}
}

func newBodyReaderForFraming(f httpx.Framing) httpx.BodyReader {
	switch f.Kind {
	case httpx.FramingChunked:
		return httpx.NewChunkedReader()
	case httpx.FramingHTTP10:
		return httpx.NewHTTP10Reader()
	default:
		return httpx.NewContentLengthReader(f.ContentLength)
	}
}

func newBodyWriterForFraming(f httpx.Framing) httpx.BodyWriter {
	switch f.Kind {
	case httpx.FramingChunked:
		return httpx.ChunkedBodyWriter{}
	case httpx.FramingHTTP10:
		return httpx.HTTP10BodyWriter{}
	default:
		return httpx.NewContentLengthBodyWriter(f.ContentLength)
	}
}
