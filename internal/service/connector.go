package service

import (
	"sync"

	"switchboard/internal/api"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/registry"
	"switchboard/pkg/logging"
)

// ConnectParams selects a connection target. Leaving UserID empty uses the
// caller's user; a non-empty Instance picks a specific qualifier.
type ConnectParams struct {
	Target identity.Identity
}

// Connector originates outbound connections for one instance. It is safe
// for concurrent use; replies are processed on the owning context's
// sequence.
type Connector struct {
	ctx *Context

	mu       sync.Mutex
	endpoint *pipe.Endpoint
	nextID   uint64
	pending  map[uint64]*Connection
	closed   bool
}

func newConnector(ctx *Context, endpoint *pipe.Endpoint) *Connector {
	c := &Connector{
		ctx:      ctx,
		endpoint: endpoint,
		pending:  make(map[uint64]*Connection),
	}
	if err := endpoint.Start(ctx.runner, c.onMessage, c.onConnectionError); err != nil {
		logging.Error("ServiceContext", err, "Failed to bind connector pipe")
	}
	return c
}

// Connect connects to the default instance of name for the caller's user.
func (c *Connector) Connect(name string) *Connection {
	return c.ConnectWithParams(ConnectParams{Target: identity.Identity{Name: name}})
}

// ConnectWithParams connects to params.Target. The returned connection
// accepts GetInterface calls at once; they are sent once the broker
// confirms the connection.
func (c *Connector) ConnectWithParams(params ConnectParams) *Connection {
	forwardLocal, forwardRemote := pipe.New()
	exposedLocal, exposedRemote := pipe.New()

	conn := newConnection(c, params.Target, registry.NewInterfaceProvider(forwardLocal), forwardLocal, exposedLocal)
	c.send(conn, protocol.ConnectCall{
		Target:     params.Target,
		Interfaces: forwardRemote,
		Exposed:    exposedRemote,
	})
	return conn
}

// StartService makes sure an instance of name is running without
// exchanging interfaces with it.
func (c *Connector) StartService(name string) *Connection {
	conn := newConnection(c, identity.Identity{Name: name}, nil, nil, nil)
	c.send(conn, protocol.ConnectCall{Target: identity.Identity{Name: name}})
	return conn
}

// BindInterface connects to name and requests iface in one step.
func (c *Connector) BindInterface(name, iface string) *pipe.Endpoint {
	return c.Connect(name).GetInterface(iface)
}

// StartServiceWithProcess registers a caller-hosted instance of target with
// the broker. The returned request is the service end to hand to
// NewContext. The caller needs the service_manager:client_process class.
func (c *Connector) StartServiceWithProcess(target identity.Identity, pid int) (protocol.ServiceRequest, *Connection) {
	serviceEnd, brokerEnd := pipe.New()
	conn := newConnection(c, target, nil, nil, nil)
	c.send(conn, protocol.ConnectCall{
		Target:        target,
		ClientProcess: brokerEnd,
		PID:           pid,
	})
	return protocol.ServiceRequest{Endpoint: serviceEnd}, conn
}

// Clone returns a connector bound to the same instance over a new pipe.
func (c *Connector) Clone() *Connector {
	local, remote := pipe.New()
	c.mu.Lock()
	err := c.endpoint.Send(protocol.CloneConnector{Connector: remote})
	c.mu.Unlock()
	if err != nil {
		remote.Close()
	}
	return newConnector(c.ctx, local)
}

// Close shuts the connector pipe. Pending connections fail with
// ConnectionLost.
func (c *Connector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.endpoint.Close()
	c.mu.Unlock()

	c.ctx.runner.PostTask(c.failPending)
}

func (c *Connector) send(conn *Connection, call protocol.ConnectCall) {
	c.mu.Lock()
	c.nextID++
	call.ID = c.nextID
	var err error
	if c.closed {
		err = pipe.ErrClosed
	} else {
		c.pending[call.ID] = conn
		err = c.endpoint.Send(call)
		if err != nil {
			delete(c.pending, call.ID)
		}
	}
	c.mu.Unlock()

	if err != nil {
		for _, ep := range call.Endpoints() {
			if ep != nil {
				ep.Close()
			}
		}
		c.ctx.runner.PostTask(func() {
			conn.complete(protocol.ConnectReply{Result: api.ResultConnectionLost, Reason: err.Error()})
		})
	}
}

func (c *Connector) onMessage(msg any) {
	reply, ok := msg.(protocol.ConnectReply)
	if !ok {
		logging.Warn("ServiceContext", "Connector dropping unexpected message %T", msg)
		return
	}

	c.mu.Lock()
	conn, found := c.pending[reply.ID]
	delete(c.pending, reply.ID)
	c.mu.Unlock()

	if !found {
		logging.Warn("ServiceContext", "Connector got reply for unknown call %d", reply.ID)
		return
	}
	conn.complete(reply)
}

func (c *Connector) onConnectionError() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.failPending()
}

func (c *Connector) failPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]*Connection)
	c.mu.Unlock()

	for id, conn := range pending {
		conn.complete(protocol.ConnectReply{ID: id, Result: api.ResultConnectionLost, Reason: "broker connection closed"})
	}
}
