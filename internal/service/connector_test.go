package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/api"
	"switchboard/internal/capability"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/registry"
	"switchboard/internal/sequence"
	"switchboard/pkg/logging"
)

func startedContext(t *testing.T, svc Service) (*sequence.Runner, *fakeBroker, *Context) {
	t.Helper()
	logging.Discard()
	r := sequence.NewManual("test")
	broker, req := newFakeBroker(t, r)
	ctx := NewContext(svc, req, r)
	broker.start()
	return r, broker, ctx
}

func TestConnector_BuffersUntilReply(t *testing.T) {
	svc := &recordingService{accept: true}
	r, broker, ctx := startedContext(t, svc)

	conn := ctx.Connector().Connect("peer")
	first := conn.GetInterface("peer.First")
	second := conn.GetInterface("peer.Second")
	r.RunUntilIdle()

	require.Len(t, broker.calls, 1)
	call := broker.calls[0]
	assert.Equal(t, "peer", call.Target.Name)
	assert.False(t, conn.Completed())

	peerRegistry := registry.NewUnfiltered(peerID, selfID)
	var bound []string
	peerRegistry.SetDefaultBinder(registry.BinderFunc(func(_ identity.Identity, name string, _ *pipe.Endpoint) {
		bound = append(bound, name)
	}))
	require.NoError(t, peerRegistry.Bind(call.Interfaces, r))
	r.RunUntilIdle()
	assert.Empty(t, bound, "requests are held until the broker replies")

	completed := false
	conn.AddConnectionCompletedClosure(func() { completed = true })

	require.NoError(t, broker.connector.Send(protocol.ConnectReply{
		ID:           call.ID,
		Result:       api.ResultSucceeded,
		Identity:     peerID,
		Capabilities: capability.NewRequest([]string{"foo"}, nil),
	}))
	r.RunUntilIdle()

	assert.True(t, completed)
	assert.NoError(t, conn.Err())
	assert.Equal(t, api.ResultSucceeded, conn.Result())
	assert.Equal(t, peerID, conn.RemoteIdentity())
	assert.Equal(t, []string{"peer.First", "peer.Second"}, bound)
	assert.False(t, first.IsClosed())
	assert.False(t, second.IsClosed())

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done should be closed after the reply")
	}

	// The caller's OnConnect sees the target, and the target can bind what
	// class foo grants through the exposed pipe.
	assert.Equal(t, []identity.Identity{peerID}, svc.connected)
	require.NotNil(t, conn.Registry())
	exposed := registry.NewForwardedProvider(call.Exposed)
	exposed.GetInterface("test.Foo")
	exposed.GetInterface("test.Bar")
	r.RunUntilIdle()
	assert.Equal(t, []string{"test.Foo"}, svc.binds)
}

func TestConnector_FailureClosesHeldHandles(t *testing.T) {
	svc := &recordingService{}
	r, broker, ctx := startedContext(t, svc)

	conn := ctx.Connector().Connect("bad:name")
	handle := conn.GetInterface("anything")
	handleClosed := false
	require.NoError(t, handle.Start(r, nil, func() { handleClosed = true }))
	r.RunUntilIdle()

	require.Len(t, broker.calls, 1)
	require.NoError(t, broker.connector.Send(protocol.ConnectReply{
		ID:     broker.calls[0].ID,
		Result: api.ResultResolutionFailure,
		Reason: "manifest bad:name not found",
	}))
	r.RunUntilIdle()

	assert.True(t, handleClosed)
	assert.True(t, api.IsResolutionFailure(conn.Err()))
	assert.Equal(t, api.ResultResolutionFailure, conn.Result())
	assert.True(t, conn.RemoteIdentity().IsZero())
	assert.Nil(t, conn.Registry())
	assert.Empty(t, svc.connected)
}

func TestConnector_BrokerGoneFailsPending(t *testing.T) {
	r, broker, ctx := startedContext(t, &recordingService{})

	conn := ctx.Connector().Connect("peer")
	r.RunUntilIdle()
	broker.connector.Close()
	r.RunUntilIdle()

	assert.True(t, api.IsConnectionLost(conn.Err()))

	late := ctx.Connector().Connect("peer")
	r.RunUntilIdle()
	assert.True(t, api.IsConnectionLost(late.Err()))
}

func TestConnector_ConnectWithParamsPinsIdentity(t *testing.T) {
	r, broker, ctx := startedContext(t, &recordingService{})

	target := identity.NewWithInstance("peer", identity.NewUserID(), "second")
	ctx.Connector().ConnectWithParams(ConnectParams{Target: target})
	r.RunUntilIdle()

	require.Len(t, broker.calls, 1)
	assert.Equal(t, target, broker.calls[0].Target)
}

func TestConnector_StartServiceAndClientProcess(t *testing.T) {
	r, broker, ctx := startedContext(t, &recordingService{})

	started := ctx.Connector().StartService("peer")
	req, _ := ctx.Connector().StartServiceWithProcess(identity.New("hosted", identity.RootUserID), 42)
	r.RunUntilIdle()

	require.Len(t, broker.calls, 2)
	assert.Nil(t, broker.calls[0].Interfaces)
	assert.Nil(t, broker.calls[0].ClientProcess)
	assert.NotNil(t, broker.calls[1].ClientProcess)
	assert.Equal(t, 42, broker.calls[1].PID)
	assert.NotNil(t, req.Endpoint)

	assert.True(t, started.GetInterface("x").IsClosed(), "StartService exchanges no interfaces")
}

func TestConnector_ConnectionLostAfterSuccess(t *testing.T) {
	r, broker, ctx := startedContext(t, &recordingService{})

	conn := ctx.Connector().Connect("peer")
	lost := 0
	conn.SetConnectionLostClosure(func() { lost++ })
	r.RunUntilIdle()

	call := broker.calls[0]
	require.NoError(t, broker.connector.Send(protocol.ConnectReply{ID: call.ID, Result: api.ResultSucceeded, Identity: peerID}))
	r.RunUntilIdle()

	call.Interfaces.Close()
	r.RunUntilIdle()
	assert.Equal(t, 1, lost)
}
