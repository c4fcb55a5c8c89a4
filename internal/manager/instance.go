package manager

import (
	"switchboard/internal/api"
	"switchboard/internal/capability"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/pkg/logging"
)

// Instance is the broker's record of one running service. It is owned by
// the manager's sequence.
type Instance struct {
	manager *ServiceManager

	id    identity.Identity
	spec  capability.Spec
	state api.InstanceState
	pid   int

	// endpoint is the broker end of the service pipe.
	endpoint   *pipe.Endpoint
	connectors []*pipe.Endpoint

	// pending holds connects that arrived before the instance answered its
	// start request.
	pending []*connectParams

	// factoryHandle keeps the ServiceFactory handle of a packaged instance
	// open for the instance's lifetime.
	factoryHandle *pipe.Endpoint
}

func newInstance(m *ServiceManager, id identity.Identity, spec capability.Spec) *Instance {
	return &Instance{
		manager: m,
		id:      id,
		spec:    spec,
		state:   api.InstanceStarting,
	}
}

// Identity returns the instance identity.
func (i *Instance) Identity() identity.Identity {
	return i.id
}

func (i *Instance) info() api.RunningServiceInfo {
	return api.RunningServiceInfo{Identity: i.id, PID: i.pid, State: i.state}
}

func (i *Instance) serviceInfo() api.ServiceInfo {
	return api.ServiceInfo{Identity: i.id, Spec: i.spec}
}

// start binds the service pipe and sends the start request.
func (i *Instance) start(endpoint *pipe.Endpoint) error {
	i.endpoint = endpoint
	if err := endpoint.Start(i.manager.runner, i.onMessage, i.onConnectionError); err != nil {
		return err
	}
	return endpoint.Send(protocol.StartRequest{Info: i.serviceInfo()})
}

func (i *Instance) onMessage(msg any) {
	switch m := msg.(type) {
	case protocol.StartResponse:
		i.onStartResponse(m)
	case protocol.QuitRequest:
		i.manager.onQuitRequest(i)
	default:
		logging.Warn("ServiceManager", "%s sent unexpected message %T", i.id, msg)
		if c, ok := msg.(pipe.Carrier); ok {
			closeEndpoints(c.Endpoints())
		}
	}
}

func (i *Instance) onStartResponse(m protocol.StartResponse) {
	if i.state != api.InstanceStarting {
		logging.Warn("ServiceManager", "%s answered start twice", i.id)
		if m.Connector != nil {
			m.Connector.Close()
		}
		return
	}
	if m.Connector != nil {
		i.bindConnector(m.Connector)
	}
	i.state = api.InstanceRunning
	logging.Debug("ServiceManager", "%s is running", i.id)

	pending := i.pending
	i.pending = nil
	for _, p := range pending {
		i.deliver(p)
	}
}

func (i *Instance) onConnectionError() {
	logging.Debug("ServiceManager", "Service pipe of %s closed", i.id)
	i.manager.removeInstance(i)
}

func (i *Instance) bindConnector(ep *pipe.Endpoint) {
	if i.state == api.InstanceRemoved {
		ep.Close()
		return
	}
	err := ep.Start(i.manager.runner, func(msg any) {
		i.onConnectorMessage(ep, msg)
	}, func() {
		i.dropConnector(ep)
	})
	if err != nil {
		logging.Warn("ServiceManager", "Failed to bind connector for %s: %v", i.id, err)
		return
	}
	i.connectors = append(i.connectors, ep)
}

func (i *Instance) dropConnector(ep *pipe.Endpoint) {
	for n, c := range i.connectors {
		if c == ep {
			i.connectors = append(i.connectors[:n], i.connectors[n+1:]...)
			return
		}
	}
}

func (i *Instance) onConnectorMessage(ep *pipe.Endpoint, msg any) {
	switch m := msg.(type) {
	case protocol.ConnectCall:
		i.manager.connect(i, m, connectorReply(ep, m.ID))
	case protocol.CloneConnector:
		if m.Connector != nil {
			i.bindConnector(m.Connector)
		}
	default:
		logging.Warn("ServiceManager", "%s sent unexpected connector message %T", i.id, msg)
		if c, ok := msg.(pipe.Carrier); ok {
			closeEndpoints(c.Endpoints())
		}
	}
}

// connect completes p against this instance, queueing it while the
// instance is starting.
func (i *Instance) connect(p *connectParams) {
	switch i.state {
	case api.InstanceStarting:
		i.pending = append(i.pending, p)
	case api.InstanceRunning:
		i.deliver(p)
	default:
		i.manager.fail(p, api.ResultInstanceStartFailure, "instance %s is gone", i.id)
	}
}

func (i *Instance) deliver(p *connectParams) {
	if p.interfaces == nil {
		i.manager.succeed(p, i)
		return
	}
	err := i.endpoint.Send(protocol.ConnectRequest{
		Source:       p.source.serviceInfo(),
		Capabilities: p.source.spec.RequestFor(i.id.Name),
		Interfaces:   p.interfaces,
		Remote:       p.exposed,
	})
	if err != nil {
		i.manager.fail(p, api.ResultConnectionLost, "instance %s: %v", i.id, err)
		return
	}
	p.interfaces, p.exposed = nil, nil
	i.manager.succeed(p, i)
}

func (i *Instance) setPID(pid int) {
	if i.state == api.InstanceRemoved || i.pid != 0 {
		return
	}
	i.pid = pid
	i.manager.notify(func(l Listener) { l.OnServiceStarted(i.id, pid) })
}

// close tears down every pipe the instance holds and returns the connects
// that were still waiting on it.
func (i *Instance) close() []*connectParams {
	if i.endpoint != nil {
		i.endpoint.Close()
	}
	for _, c := range i.connectors {
		c.Close()
	}
	i.connectors = nil
	if i.factoryHandle != nil {
		i.factoryHandle.Close()
		i.factoryHandle = nil
	}
	pending := i.pending
	i.pending = nil
	return pending
}

func closeEndpoints(eps []*pipe.Endpoint) {
	for _, ep := range eps {
		if ep != nil {
			ep.Close()
		}
	}
}
