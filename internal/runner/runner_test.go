package runner

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/api"
	"switchboard/internal/builtin"
	"switchboard/internal/catalog"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/sequence"
	"switchboard/pkg/logging"
)

func echoResult() *catalog.ResolveResult {
	return &catalog.ResolveResult{Name: builtin.EchoName, ResolvedName: builtin.EchoName}
}

func TestInProcessRunner_StartAndExit(t *testing.T) {
	logging.Discard()
	factory := NewInProcessFactory(builtin.Default(), builtin.Env{})
	id := identity.New(builtin.EchoName, identity.RootUserID)

	broker := sequence.NewManual("broker")
	serviceEnd, brokerEnd := pipe.New()
	var mu sync.Mutex
	var received []any
	require.NoError(t, brokerEnd.Start(broker, func(msg any) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
	}, nil))

	var pid int
	exited := make(chan error, 1)
	err := factory.Create(id).Start(echoResult(), protocol.ServiceRequest{Endpoint: serviceEnd},
		func(p int) { pid = p },
		func(err error) { exited <- err })
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, brokerEnd.Send(protocol.StartRequest{Info: api.ServiceInfo{Identity: id}}))
	assert.Eventually(t, func() bool {
		broker.RunUntilIdle()
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	brokerEnd.Close()
	select {
	case err := <-exited:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not report exit")
	}
}

func TestInProcessRunner_UnknownService(t *testing.T) {
	logging.Discard()
	factory := NewInProcessFactory(builtin.NewRegistry(), builtin.Env{})
	id := identity.New("missing", identity.RootUserID)

	_, serviceEnd := pipe.New()
	err := factory.Create(id).Start(&catalog.ResolveResult{Name: "missing", ResolvedName: "missing"},
		protocol.ServiceRequest{Endpoint: serviceEnd}, nil, nil)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestInProcessRunner_NilManifest(t *testing.T) {
	factory := NewInProcessFactory(builtin.Default(), builtin.Env{})
	err := factory.Create(identity.New("echo", identity.RootUserID)).Start(nil, protocol.ServiceRequest{}, nil, nil)
	assert.Error(t, err)
}

func TestFactoryFunc(t *testing.T) {
	var created []identity.Identity
	f := FactoryFunc(func(id identity.Identity) Runner {
		created = append(created, id)
		return RunnerFunc(func(*catalog.ResolveResult, protocol.ServiceRequest, func(int), func(error)) error {
			return nil
		})
	})

	id := identity.New("a", identity.RootUserID)
	require.NoError(t, f.Create(id).Start(nil, protocol.ServiceRequest{}, nil, nil))
	assert.Equal(t, []identity.Identity{id}, created)
}
