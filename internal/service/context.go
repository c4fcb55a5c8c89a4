package service

import (
	"fmt"

	"switchboard/internal/api"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/registry"
	"switchboard/internal/sequence"
	"switchboard/pkg/logging"
)

// State is the lifecycle of a Context.
type State int

const (
	StateUnstarted State = iota
	StateStarted
	StateStopped
)

// String makes State satisfy the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "Unstarted"
	case StateStarted:
		return "Started"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Context couples one Service to the broker. It owns the service pipe, the
// instance's Connector and the registries of every inbound connection.
//
// All methods except Connector must be called on the context's sequence.
type Context struct {
	service  Service
	runner   *sequence.Runner
	endpoint *pipe.Endpoint

	state State
	info  api.ServiceInfo

	connector       *Connector
	connectorRemote *pipe.Endpoint

	// incoming holds registries of accepted inbound connections. Closed
	// ones are pruned when the next connection arrives.
	incoming []*registry.InterfaceRegistry

	handlers      map[int]ConnectionHandler
	nextHandlerID int

	connectionLost func()
	terminated     []func()
}

// NewContext binds svc to the service pipe in request. Messages are handled
// on runner.
func NewContext(svc Service, request protocol.ServiceRequest, runner *sequence.Runner) *Context {
	c := &Context{
		service:  svc,
		runner:   runner,
		endpoint: request.Endpoint,
		handlers: make(map[int]ConnectionHandler),
	}

	local, remote := pipe.New()
	c.connector = newConnector(c, local)
	c.connectorRemote = remote

	if aware, ok := svc.(ContextAware); ok {
		aware.SetContext(c)
	}

	if request.Endpoint == nil {
		runner.PostTask(c.onConnectionError)
		return c
	}
	if err := request.Endpoint.Start(runner, c.onMessage, c.onConnectionError); err != nil {
		logging.Error("ServiceContext", err, "Failed to bind service pipe")
		runner.PostTask(c.onConnectionError)
	}
	return c
}

// Identity returns the identity assigned by the broker. It is zero before
// the start request arrives.
func (c *Context) Identity() identity.Identity {
	return c.info.Identity
}

// Info returns the identity and capability spec assigned by the broker.
func (c *Context) Info() api.ServiceInfo {
	return c.info
}

// State returns the lifecycle state.
func (c *Context) State() State {
	return c.state
}

// Runner returns the sequence the context runs on.
func (c *Context) Runner() *sequence.Runner {
	return c.runner
}

// Connector returns the instance's connector. It may be used before start;
// calls are held until the broker binds it.
func (c *Context) Connector() *Connector {
	return c.connector
}

// SetConnectionLostClosure registers fn to run after OnStop returns true.
func (c *Context) SetConnectionLostClosure(fn func()) {
	c.connectionLost = fn
}

// AddOnConnectHandler registers h for every accepted connection and returns
// an id for RemoveOnConnectHandler.
func (c *Context) AddOnConnectHandler(h ConnectionHandler) int {
	c.nextHandlerID++
	c.handlers[c.nextHandlerID] = h
	return c.nextHandlerID
}

// RemoveOnConnectHandler unregisters a handler.
func (c *Context) RemoveOnConnectHandler(id int) {
	delete(c.handlers, id)
}

// OnTerminated registers fn to run once the context has stopped.
func (c *Context) OnTerminated(fn func()) {
	if c.state == StateStopped {
		fn()
		return
	}
	c.terminated = append(c.terminated, fn)
}

// RequestQuit asks the broker to stop this instance. The broker may decline
// while connections to the instance are still being set up.
func (c *Context) RequestQuit() {
	if c.state != StateStarted {
		return
	}
	if err := c.endpoint.Send(protocol.QuitRequest{}); err != nil {
		logging.Debug("ServiceContext", "Quit request for %s not sent: %v", c.info.Identity, err)
	}
}

// QuitNow closes the service pipe and stops the context immediately.
func (c *Context) QuitNow() {
	if c.endpoint != nil {
		c.endpoint.Close()
	}
	c.stop()
}

// IncomingConnections returns the number of live inbound registries.
func (c *Context) IncomingConnections() int {
	c.pruneIncoming()
	return len(c.incoming)
}

func (c *Context) onMessage(msg any) {
	switch m := msg.(type) {
	case protocol.StartRequest:
		c.handleStart(m)
	case protocol.ConnectRequest:
		c.handleConnect(m)
	default:
		logging.Warn("ServiceContext", "Dropping unexpected message %T", msg)
	}
}

func (c *Context) handleStart(m protocol.StartRequest) {
	if c.state != StateUnstarted {
		logging.Warn("ServiceContext", "Ignoring duplicate start request for %s", c.info.Identity)
		return
	}

	c.state = StateStarted
	c.info = m.Info
	logging.Debug("ServiceContext", "Starting %s", m.Info.Identity)

	c.service.OnStart(m.Info.Identity)

	if err := c.endpoint.Send(protocol.StartResponse{Connector: c.connectorRemote}); err != nil {
		logging.Warn("ServiceContext", "Start response for %s not delivered: %v", m.Info.Identity, err)
	}
	c.connectorRemote = nil
}

func (c *Context) handleConnect(m protocol.ConnectRequest) {
	if c.state != StateStarted {
		logging.Warn("ServiceContext", "Dropping connection from %s received in state %s", m.Source.Identity, c.state)
		for _, ep := range m.Endpoints() {
			if ep != nil {
				ep.Close()
			}
		}
		return
	}

	c.pruneIncoming()

	reg := registry.New(c.info.Identity, c.info.Spec, m.Source.Identity, m.Capabilities)
	if m.Remote != nil {
		reg.SetRemoteInterfaces(registry.NewForwardedProvider(m.Remote))
	}

	if !c.accept(m.Source.Identity, reg) {
		logging.Debug("ServiceContext", "%s rejected connection from %s", c.info.Identity, m.Source.Identity)
		reg.Close()
		if m.Interfaces != nil {
			m.Interfaces.Close()
		}
		return
	}

	if m.Interfaces != nil {
		if err := reg.Bind(m.Interfaces, c.runner); err != nil {
			logging.Error("ServiceContext", err, "Failed to bind connection from %s", m.Source.Identity)
			reg.Close()
			return
		}
	}
	c.incoming = append(c.incoming, reg)
}

// accept offers a connection to the handlers and the service. The
// connection is kept if any of them wants it.
func (c *Context) accept(remote identity.Identity, reg *registry.InterfaceRegistry) bool {
	accepted := false
	for _, h := range c.handlers {
		if h(remote, reg) {
			accepted = true
		}
	}
	if c.service.OnConnect(remote, reg) {
		accepted = true
	}
	return accepted
}

// onOutgoingConnection offers the registry built for an outbound
// connection, which exposes this service's interfaces to the target.
func (c *Context) onOutgoingConnection(remote identity.Identity, reg *registry.InterfaceRegistry) bool {
	if c.state != StateStarted {
		return false
	}
	return c.accept(remote, reg)
}

func (c *Context) pruneIncoming() {
	live := c.incoming[:0]
	for _, reg := range c.incoming {
		if !reg.IsClosed() {
			live = append(live, reg)
		}
	}
	for i := len(live); i < len(c.incoming); i++ {
		c.incoming[i] = nil
	}
	c.incoming = live
}

func (c *Context) onConnectionError() {
	logging.Debug("ServiceContext", "Lost broker connection for %s", c.info.Identity)
	c.stop()
}

func (c *Context) stop() {
	if c.state == StateStopped {
		return
	}
	wasStarted := c.state == StateStarted
	c.state = StateStopped

	runClosure := true
	if wasStarted {
		runClosure = c.service.OnStop()
	}

	for _, reg := range c.incoming {
		reg.Close()
	}
	c.incoming = nil
	c.connector.Close()
	if c.connectorRemote != nil {
		c.connectorRemote.Close()
		c.connectorRemote = nil
	}

	if runClosure && c.connectionLost != nil {
		c.connectionLost()
	}

	terminated := c.terminated
	c.terminated = nil
	for _, fn := range terminated {
		fn()
	}
}
