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

// Connection is the caller's handle on one outbound connection.
type Connection struct {
	connector *Connector
	target    identity.Identity

	provider *registry.InterfaceProvider
	forward  *pipe.Endpoint
	exposed  *pipe.Endpoint

	done chan struct{}

	mu             sync.Mutex
	completed      bool
	result         api.Result
	err            error
	remote         identity.Identity
	reg            *registry.InterfaceRegistry
	onCompleted    []func()
	connectionLost func()
	lost           bool
}

func newConnection(connector *Connector, target identity.Identity, provider *registry.InterfaceProvider, forward, exposed *pipe.Endpoint) *Connection {
	return &Connection{
		connector: connector,
		target:    target,
		provider:  provider,
		forward:   forward,
		exposed:   exposed,
		done:      make(chan struct{}),
	}
}

// Target returns what the caller asked to connect to.
func (c *Connection) Target() identity.Identity {
	return c.target
}

// GetInterface requests iface from the target. Calls made before the broker
// replies are held and sent in order. On failure the handle closes.
func (c *Connection) GetInterface(iface string) *pipe.Endpoint {
	if c.provider == nil {
		local, remote := pipe.New()
		remote.Close()
		return local
	}
	return c.provider.GetInterface(iface)
}

// Done is closed once the broker has replied.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Completed reports whether the broker has replied.
func (c *Connection) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Result returns the reply code. It is ResultSucceeded until completion.
func (c *Connection) Result() api.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Err returns the structured error for a failed connection.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// RemoteIdentity returns the identity the broker connected to. It is zero
// until the connection succeeds.
func (c *Connection) RemoteIdentity() identity.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// Registry returns the registry through which the target may bind this
// side's interfaces, or nil when there is none.
func (c *Connection) Registry() *registry.InterfaceRegistry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg
}

// AddConnectionCompletedClosure runs fn on the owning sequence once the
// broker has replied. If it already has, fn is posted immediately.
func (c *Connection) AddConnectionCompletedClosure(fn func()) {
	c.mu.Lock()
	if !c.completed {
		c.onCompleted = append(c.onCompleted, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.connector.ctx.runner.PostTask(fn)
}

// SetConnectionLostClosure registers fn to run once if the target drops the
// connection after it succeeded.
func (c *Connection) SetConnectionLostClosure(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectionLost = fn
}

// Close drops the connection.
func (c *Connection) Close() {
	if c.provider != nil {
		c.provider.Close()
	}
	c.mu.Lock()
	reg := c.reg
	c.mu.Unlock()
	if reg != nil {
		c.connector.ctx.runner.PostTask(reg.Close)
	} else if c.exposed != nil {
		c.exposed.Close()
	}
}

// complete runs on the owning sequence.
func (c *Connection) complete(reply protocol.ConnectReply) {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return
	}
	c.completed = true
	c.result = reply.Result
	c.err = api.ErrorFromResult(reply.Result, c.target.String(), reply.Reason)
	if reply.Result == api.ResultSucceeded {
		c.remote = reply.Identity
	}
	closures := c.onCompleted
	c.onCompleted = nil
	c.mu.Unlock()

	ctx := c.connector.ctx
	if reply.Result == api.ResultSucceeded {
		logging.Debug("ServiceContext", "%s connected to %s", ctx.info.Identity, reply.Identity)
		if c.provider != nil {
			c.provider.Forward()
		}
		if c.forward != nil {
			if err := c.forward.Start(ctx.runner, nil, c.onConnectionLost); err != nil {
				logging.Debug("ServiceContext", "Connection to %s already closed: %v", reply.Identity, err)
			}
		}
		if c.exposed != nil {
			c.bindExposed(reply)
		}
	} else {
		logging.Debug("ServiceContext", "Connection from %s to %s failed: %s", ctx.info.Identity, c.target, reply.Result)
		if c.provider != nil {
			c.provider.Fail()
		}
		if c.exposed != nil {
			c.exposed.Close()
		}
	}

	close(c.done)
	for _, fn := range closures {
		fn()
	}
}

func (c *Connection) bindExposed(reply protocol.ConnectReply) {
	ctx := c.connector.ctx
	reg := registry.New(ctx.info.Identity, ctx.info.Spec, reply.Identity, reply.Capabilities)
	if !ctx.onOutgoingConnection(reply.Identity, reg) {
		reg.Close()
		c.exposed.Close()
		return
	}
	if err := reg.Bind(c.exposed, ctx.runner); err != nil {
		logging.Error("ServiceContext", err, "Failed to expose interfaces to %s", reply.Identity)
		reg.Close()
		return
	}
	c.mu.Lock()
	c.reg = reg
	c.mu.Unlock()
}

func (c *Connection) onConnectionLost() {
	c.mu.Lock()
	if c.lost {
		c.mu.Unlock()
		return
	}
	c.lost = true
	fn := c.connectionLost
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}
