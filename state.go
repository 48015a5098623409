package h1

import "github.com/wire1/h1/internal/h1state"

// Role identifies which side of the HTTP exchange a Connection plays.
type Role = h1state.Role

const (
	CLIENT = h1state.Client
	SERVER = h1state.Server
)

// State is a per-role lifecycle state (spec.md §3).
type State = h1state.State

const (
	IDLE                  = h1state.Idle
	SEND_RESPONSE         = h1state.SendResponse
	SEND_BODY             = h1state.SendBody
	DONE                  = h1state.Done
	MUST_CLOSE            = h1state.MustClose
	CLOSED                = h1state.Closed
	ERROR                 = h1state.Error
	MIGHT_SWITCH_PROTOCOL = h1state.MightSwitchProtocol
	SWITCHED_PROTOCOL     = h1state.SwitchedProtocol
)
