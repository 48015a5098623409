// Package h1state implements the coupled per-role state machines described
// in spec.md §4.5: two interlocking finite state machines (one per role)
// plus the cross-role rules for keep-alive and protocol switching. The
// combined state of both roles lives in one ConnState, driven by a few
// methods, so it can be tested and reasoned about independent of any I/O.
//
// This package is grounded on h11's _connection.py and _state.py
// (see original_source), which use the same two-FSM-plus-cross-rules
// design; the Go port has ProcessEvent check an event against the current
// state before mutating the ConnState in place, so a rejected event leaves
// the state unchanged, rather than h11's mutate-then-rollback-on-exception
// style.
package h1state

import "github.com/wire1/h1/internal/h1err"

// Role identifies which side of the HTTP exchange a state belongs to.
type Role int

const (
	Client Role = iota
	Server
)

func (r Role) String() string {
	if r == Client {
		return "client"
	}
	return "server"
}

// Other returns the complementary role.
func (r Role) Other() Role {
	if r == Client {
		return Server
	}
	return Client
}

// State is a per-role lifecycle state (spec.md §3).
type State int

const (
	Idle State = iota
	SendResponse
	SendBody
	Done
	MustClose
	Closed
	Error
	MightSwitchProtocol
	SwitchedProtocol
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case SendResponse:
		return "SEND_RESPONSE"
	case SendBody:
		return "SEND_BODY"
	case Done:
		return "DONE"
	case MustClose:
		return "MUST_CLOSE"
	case Closed:
		return "CLOSED"
	case Error:
		return "ERROR"
	case MightSwitchProtocol:
		return "MIGHT_SWITCH_PROTOCOL"
	case SwitchedProtocol:
		return "SWITCHED_PROTOCOL"
	default:
		return "UNKNOWN"
	}
}

// EventKind identifies which wire-facing event variant is being processed,
// without carrying its payload (the state machine only needs the shape).
type EventKind int

const (
	EvRequest EventKind = iota
	EvInformationalResponse
	EvResponse
	EvData
	EvEndOfMessage
	EvConnectionClosed
)

// SwitchProposal identifies a protocol-switch mechanism a client Request can
// advertise (spec.md §4.5).
type SwitchProposal int

const (
	SwitchUpgrade SwitchProposal = iota
	SwitchConnect
)

// ConnState is the connection-scoped state described in spec.md §3,
// excluding the receive buffer, active reader/writer handles, and the
// per-exchange bookkeeping (their_http_version, request_method,
// client_is_waiting_for_100_continue) that the façade tracks directly
// since only it consults them when composing outbound bytes.
type ConnState struct {
	OurRole Role

	states [2]State // indexed by Role

	KeepAlive              bool
	PendingSwitchProposals map[SwitchProposal]bool
}

// New returns the initial connection state for a freshly constructed
// connection playing ourRole.
func New(ourRole Role) *ConnState {
	return &ConnState{
		OurRole:                ourRole,
		states:                 [2]State{Idle, Idle},
		KeepAlive:              true,
		PendingSwitchProposals: make(map[SwitchProposal]bool),
	}
}

// StateOf returns the current state of the given role.
func (cs *ConnState) StateOf(role Role) State {
	return cs.states[role]
}

func (cs *ConnState) setState(role Role, s State) {
	cs.states[role] = s
}

// TheirRole is the complement of OurRole.
func (cs *ConnState) TheirRole() Role {
	return cs.OurRole.Other()
}

// ProcessClientSwitchProposals records the switch proposals advertised by an
// outgoing/incoming client Request. It must be called before the client's
// EndOfMessage is processed, so that ProcessEvent can move the client to
// MIGHT_SWITCH_PROTOCOL instead of DONE.
func (cs *ConnState) ProcessClientSwitchProposals(proposals []SwitchProposal) {
	for _, p := range proposals {
		cs.PendingSwitchProposals[p] = true
	}
}

// ProcessEvent validates and applies the transition caused by role producing
// an event of the given kind. serverSwitchEvent is non-nil only when role is
// Server and the event is the one that commits a pending switch proposal
// (spec.md §4.5); pass nil otherwise, including for a Response that declines
// the proposals.
func (cs *ConnState) ProcessEvent(role Role, kind EventKind, serverSwitchEvent *SwitchProposal) error {
	cur := cs.states[role]

	switch kind {
	case EvConnectionClosed:
		switch cur {
		case Done, MustClose, Closed, Idle:
			cs.setState(role, Closed)
			cs.fireStateTriggeredTransitions()
			return nil
		default:
			return h1err.Newf("can't receive ConnectionClosed in state %s", cur)
		}

	case EvRequest:
		if role != Client {
			return h1err.New("only the client may send Request")
		}
		if cur != Idle {
			return h1err.Newf("can't send Request in state %s", cur)
		}
		cs.setState(Client, SendBody)
		cs.fireStateTriggeredTransitions()
		return nil

	case EvInformationalResponse:
		if role != Server {
			return h1err.New("only the server may send InformationalResponse")
		}
		if cur != SendResponse {
			return h1err.Newf("can't send InformationalResponse in state %s", cur)
		}
		if serverSwitchEvent != nil && *serverSwitchEvent == SwitchUpgrade {
			cs.commitSwitch()
			return nil
		}
		// Other informational responses don't change state.
		return nil

	case EvResponse:
		if role != Server {
			return h1err.New("only the server may send Response")
		}
		if cur != SendResponse {
			return h1err.Newf("can't send Response in state %s", cur)
		}
		if serverSwitchEvent != nil && *serverSwitchEvent == SwitchConnect {
			cs.commitSwitch()
			return nil
		}
		// Any other response drains pending proposals (if any) and
		// resumes the normal flow.
		if len(cs.PendingSwitchProposals) > 0 {
			cs.PendingSwitchProposals = make(map[SwitchProposal]bool)
			if cs.states[Client] == MightSwitchProtocol {
				cs.setState(Client, Done)
			}
		}
		cs.setState(Server, SendBody)
		cs.fireStateTriggeredTransitions()
		return nil

	case EvData:
		if cur != SendBody {
			return h1err.Newf("can't send Data in state %s", cur)
		}
		return nil

	case EvEndOfMessage:
		if cur != SendBody {
			return h1err.Newf("can't send EndOfMessage in state %s", cur)
		}
		if role == Client && len(cs.PendingSwitchProposals) > 0 {
			cs.setState(Client, MightSwitchProtocol)
		} else {
			cs.setState(role, Done)
		}
		cs.fireStateTriggeredTransitions()
		return nil

	default:
		return h1err.Newf("unknown event kind %d", kind)
	}
}

// commitSwitch moves both roles to SWITCHED_PROTOCOL and clears the
// proposal set; it is terminal for the protocol engine (spec.md §4.5).
func (cs *ConnState) commitSwitch() {
	cs.PendingSwitchProposals = make(map[SwitchProposal]bool)
	cs.setState(Client, SwitchedProtocol)
	cs.setState(Server, SwitchedProtocol)
}

// fireStateTriggeredTransitions applies the transitions that depend on the
// *other* role's state rather than on an event: server IDLE advancing once
// the client has left IDLE (spec.md: "IDLE → SEND_RESPONSE when ... the
// server observes the client's Request"), and DONE advancing to MUST_CLOSE
// once keep-alive is disabled. It loops to a fixed point since either rule
// firing could in principle make the other applicable.
func (cs *ConnState) fireStateTriggeredTransitions() {
	for {
		changed := false

		if cs.states[Server] == Idle && cs.states[Client] != Idle {
			// The server always lands in SEND_RESPONSE here, whether or
			// not a switch is pending; MIGHT_SWITCH_PROTOCOL is only ever
			// the *client's* state (spec.md §3) while it waits to learn
			// whether the server commits or declines the proposal.
			cs.setState(Server, SendResponse)
			changed = true
		}

		if !cs.KeepAlive {
			for _, role := range [2]Role{Client, Server} {
				if cs.states[role] == Done {
					cs.setState(role, MustClose)
					changed = true
				}
			}
		}

		if !changed {
			return
		}
	}
}

// ProcessKeepAliveDisabled latches KeepAlive to false (it never becomes true
// again, spec.md §3 invariants) and fires any resulting transitions.
func (cs *ConnState) ProcessKeepAliveDisabled() {
	if !cs.KeepAlive {
		return
	}
	cs.KeepAlive = false
	cs.fireStateTriggeredTransitions()
}

// ProcessError forces role directly into ERROR, bypassing normal transition
// validation. It never affects the other role (spec.md §3 invariant).
func (cs *ConnState) ProcessError(role Role) {
	cs.setState(role, Error)
}

// PrepareToReuse resets both roles to IDLE for a new request/response cycle
// on the same connection, per spec.md §4.5. It requires both roles be DONE
// and KeepAlive true.
func (cs *ConnState) PrepareToReuse() error {
	if cs.states[Client] != Done || cs.states[Server] != Done {
		return h1err.New("can't prepare_to_reuse: not both DONE")
	}
	if !cs.KeepAlive {
		return h1err.New("can't prepare_to_reuse: keep_alive is false")
	}
	cs.setState(Client, Idle)
	cs.setState(Server, Idle)
	cs.PendingSwitchProposals = make(map[SwitchProposal]bool)
	return nil
}
