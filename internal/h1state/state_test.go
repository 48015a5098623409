package h1state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicRequestResponseCycle(t *testing.T) {
	cs := New(Client)

	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	assert.Equal(t, SendBody, cs.StateOf(Client))
	assert.Equal(t, SendResponse, cs.StateOf(Server), "server must advance out of IDLE once the client leaves IDLE")

	require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
	assert.Equal(t, Done, cs.StateOf(Client))

	require.NoError(t, cs.ProcessEvent(Server, EvResponse, nil))
	assert.Equal(t, SendBody, cs.StateOf(Server))

	require.NoError(t, cs.ProcessEvent(Server, EvEndOfMessage, nil))
	assert.Equal(t, Done, cs.StateOf(Server))
}

func TestRequestBeforeIdleIsRejected(t *testing.T) {
	cs := New(Client)
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	err := cs.ProcessEvent(Client, EvRequest, nil)
	assert.Error(t, err)
}

func TestOnlyClientMaySendRequest(t *testing.T) {
	cs := New(Server)
	err := cs.ProcessEvent(Server, EvRequest, nil)
	assert.Error(t, err)
}

func TestInformationalResponsesDontChangeState(t *testing.T) {
	cs := New(Server)
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	require.NoError(t, cs.ProcessEvent(Server, EvInformationalResponse, nil))
	assert.Equal(t, SendResponse, cs.StateOf(Server))
	require.NoError(t, cs.ProcessEvent(Server, EvResponse, nil))
	assert.Equal(t, SendBody, cs.StateOf(Server))
}

func TestKeepAliveDisabledDrivesDoneToMustClose(t *testing.T) {
	cs := New(Client)
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
	assert.Equal(t, Done, cs.StateOf(Client))

	cs.ProcessKeepAliveDisabled()
	assert.Equal(t, MustClose, cs.StateOf(Client))
}

func TestKeepAliveLatchesFalse(t *testing.T) {
	cs := New(Client)
	cs.ProcessKeepAliveDisabled()
	assert.False(t, cs.KeepAlive)
	cs.KeepAlive = true // simulate a bogus re-enable attempt
	cs.ProcessKeepAliveDisabled()
	// ProcessKeepAliveDisabled is idempotent when already false; since we
	// forced it true above this call does latch it false again.
	assert.False(t, cs.KeepAlive)
}

func TestPrepareToReuseRequiresBothDone(t *testing.T) {
	cs := New(Client)
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	err := cs.PrepareToReuse()
	assert.Error(t, err)
}

func TestPrepareToReuseResetsToIdle(t *testing.T) {
	cs := New(Client)
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
	require.NoError(t, cs.ProcessEvent(Server, EvResponse, nil))
	require.NoError(t, cs.ProcessEvent(Server, EvEndOfMessage, nil))

	require.NoError(t, cs.PrepareToReuse())
	assert.Equal(t, Idle, cs.StateOf(Client))
	assert.Equal(t, Idle, cs.StateOf(Server))
}

func TestPrepareToReuseRejectedWithoutKeepAlive(t *testing.T) {
	cs := New(Client)
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
	require.NoError(t, cs.ProcessEvent(Server, EvResponse, nil))
	require.NoError(t, cs.ProcessEvent(Server, EvEndOfMessage, nil))
	cs.ProcessKeepAliveDisabled()

	err := cs.PrepareToReuse()
	assert.Error(t, err)
}

func TestUpgradeSwitchCommitOnInformational101(t *testing.T) {
	cs := New(Client)
	cs.ProcessClientSwitchProposals([]SwitchProposal{SwitchUpgrade})
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))

	sw := SwitchUpgrade
	require.NoError(t, cs.ProcessEvent(Server, EvInformationalResponse, &sw))
	assert.Equal(t, SwitchedProtocol, cs.StateOf(Client))
	assert.Equal(t, SwitchedProtocol, cs.StateOf(Server))
}

func TestConnectSwitchCommitOnResponse2xx(t *testing.T) {
	cs := New(Client)
	cs.ProcessClientSwitchProposals([]SwitchProposal{SwitchConnect})
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	// The server must still be able to read the CONNECT request's response
	// line, i.e. stay in SEND_RESPONSE rather than jump to a
	// MIGHT_SWITCH_PROTOCOL state of its own (spec.md §3: that state is
	// client-only).
	assert.Equal(t, SendResponse, cs.StateOf(Server))

	require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
	assert.Equal(t, MightSwitchProtocol, cs.StateOf(Client))

	sw := SwitchConnect
	require.NoError(t, cs.ProcessEvent(Server, EvResponse, &sw))
	assert.Equal(t, SwitchedProtocol, cs.StateOf(Client))
	assert.Equal(t, SwitchedProtocol, cs.StateOf(Server))
}

func TestDecliningASwitchProposalResumesNormalFlow(t *testing.T) {
	cs := New(Client)
	cs.ProcessClientSwitchProposals([]SwitchProposal{SwitchUpgrade})
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
	assert.Equal(t, MightSwitchProtocol, cs.StateOf(Client))

	require.NoError(t, cs.ProcessEvent(Server, EvResponse, nil))
	assert.Equal(t, Done, cs.StateOf(Client), "declining drains the client out of MIGHT_SWITCH_PROTOCOL into DONE")
	assert.Equal(t, SendBody, cs.StateOf(Server))
}

func TestConnectionClosedFromValidStates(t *testing.T) {
	for _, st := range []State{Idle, Done, MustClose} {
		cs := New(Client)
		switch st {
		case Done:
			require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
			require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
		case MustClose:
			require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
			require.NoError(t, cs.ProcessEvent(Client, EvEndOfMessage, nil))
			cs.ProcessKeepAliveDisabled()
		}
		require.NoError(t, cs.ProcessEvent(Client, EvConnectionClosed, nil))
		assert.Equal(t, Closed, cs.StateOf(Client))
	}
}

func TestConnectionClosedRejectedFromSendBody(t *testing.T) {
	cs := New(Client)
	require.NoError(t, cs.ProcessEvent(Client, EvRequest, nil))
	err := cs.ProcessEvent(Client, EvConnectionClosed, nil)
	assert.Error(t, err)
}

func TestProcessErrorForcesErrorStateForOnlyThatRole(t *testing.T) {
	cs := New(Client)
	cs.ProcessError(Client)
	assert.Equal(t, Error, cs.StateOf(Client))
	assert.Equal(t, Idle, cs.StateOf(Server))
}

func TestRoleOtherAndString(t *testing.T) {
	assert.Equal(t, Server, Client.Other())
	assert.Equal(t, Client, Server.Other())
	assert.Equal(t, "client", Client.String())
	assert.Equal(t, "server", Server.String())
}
