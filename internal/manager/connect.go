package manager

import (
	"fmt"
	"time"

	"switchboard/internal/api"
	"switchboard/internal/capability"
	"switchboard/internal/catalog"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/registry"
	"switchboard/pkg/logging"
)

// replyFunc completes a connect towards whoever asked for it.
type replyFunc func(reply protocol.ConnectReply)

func connectorReply(ep *pipe.Endpoint, id uint64) replyFunc {
	return func(reply protocol.ConnectReply) {
		reply.ID = id
		if err := ep.Send(reply); err != nil {
			logging.Debug("ServiceManager", "Connect reply %d not delivered: %v", id, err)
		}
	}
}

// connectParams is one connect in flight.
type connectParams struct {
	source *Instance
	target identity.Identity

	interfaces    *pipe.Endpoint
	exposed       *pipe.Endpoint
	clientProcess *pipe.Endpoint
	pid           int

	reply replyFunc
	done  bool
}

func (p *connectParams) endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{p.interfaces, p.exposed, p.clientProcess}
}

type pendingKey struct {
	userID string
	name   string
}

func (m *ServiceManager) succeed(p *connectParams, target *Instance) {
	if p.done {
		return
	}
	p.done = true
	logging.Debug("ServiceManager", "Connected %s to %s", p.source.id, target.id)
	m.observeResult(target.id, api.ResultSucceeded)
	p.reply(protocol.ConnectReply{
		Result:       api.ResultSucceeded,
		Identity:     target.id,
		Capabilities: target.spec.RequestFor(p.source.id.Name),
	})
}

func (m *ServiceManager) fail(p *connectParams, result api.Result, format string, args ...any) {
	if p.done {
		return
	}
	p.done = true
	closeEndpoints(p.endpoints())
	p.interfaces, p.exposed, p.clientProcess = nil, nil, nil

	reason := fmt.Sprintf(format, args...)
	logging.Debug("ServiceManager", "Connect from %s to %s failed: %s: %s", p.source.id, p.target, result, reason)
	m.observeResult(p.target, result)
	p.reply(protocol.ConnectReply{Result: result, Reason: reason})
}

func (m *ServiceManager) observeResult(target identity.Identity, result api.Result) {
	if m.observer != nil {
		m.observer.OnConnectResult(target, result)
	}
}

// connect runs a ConnectCall received from source.
func (m *ServiceManager) connect(source *Instance, call protocol.ConnectCall, reply replyFunc) {
	target := call.Target
	if target.InheritsUser() {
		target.UserID = source.id.UserID
	}
	p := &connectParams{
		source:        source,
		target:        target,
		interfaces:    call.Interfaces,
		exposed:       call.Exposed,
		clientProcess: call.ClientProcess,
		pid:           call.PID,
		reply:         reply,
	}

	if m.shutdown {
		m.fail(p, api.ResultConnectionLost, "service manager is shutting down")
		return
	}
	if result, reason := m.validate(p); result != api.ResultSucceeded {
		m.fail(p, result, "%s", reason)
		return
	}

	if p.clientProcess == nil {
		if inst := m.lookup(target); inst != nil {
			inst.connect(p)
			return
		}
	}
	m.resolve(p)
}

// validate checks the connect against the identity rules and the source's
// service_manager classes.
func (m *ServiceManager) validate(p *connectParams) (api.Result, string) {
	if p.interfaces != nil && p.clientProcess != nil {
		return api.ResultInvalidArgument, "interfaces and client process are mutually exclusive"
	}
	if err := p.target.Validate(); err != nil {
		return api.ResultInvalidArgument, err.Error()
	}

	spec := p.source.spec
	checks := []struct {
		needed bool
		class  string
	}{
		{p.target.UserID != p.source.id.UserID, capability.ClassUserID},
		{p.target.Instance != "", capability.ClassInstanceName},
		{p.clientProcess != nil, capability.ClassClientProcess},
	}
	for _, c := range checks {
		if c.needed && !spec.HasClass(protocol.ServiceManagerName, c.class) {
			logging.Audit(logging.AuditEvent{
				Action:  "connect",
				Outcome: "denied",
				Source:  p.source.id.String(),
				Target:  p.target.String(),
				Reason:  "missing class " + c.class,
			})
			return api.ResultAccessDenied, fmt.Sprintf("%s lacks %s", p.source.id.Name, c.class)
		}
	}
	return api.ResultSucceeded, ""
}

// lookup finds a live instance for id, falling back to the shared instance
// of a singleton.
func (m *ServiceManager) lookup(id identity.Identity) *Instance {
	if inst, ok := m.instances[id]; ok {
		return inst
	}
	if m.singletons[id.Name] {
		if inst, ok := m.instances[id.WithUserID(identity.RootUserID)]; ok {
			return inst
		}
	}
	return nil
}

func (m *ServiceManager) resolverFor(userID string) catalog.Resolver {
	r, ok := m.resolverCache[userID]
	if !ok {
		r = m.resolvers.ResolverForUser(userID)
		m.resolverCache[userID] = r
	}
	return r
}

// resolve queues p behind any resolution already running for the same name
// and user, or starts one.
func (m *ServiceManager) resolve(p *connectParams) {
	key := pendingKey{userID: p.target.UserID, name: p.target.Name}
	if queued, ok := m.pending[key]; ok {
		m.pending[key] = append(queued, p)
		return
	}
	m.pending[key] = []*connectParams{p}

	started := time.Now()
	m.resolverFor(key.userID).Resolve(key.name, func(result *catalog.ResolveResult, err error) {
		elapsed := time.Since(started)
		if !m.runner.PostTask(func() { m.onResolved(key, result, err, elapsed) }) {
			logging.Debug("ServiceManager", "Dropping resolution of %s after shutdown", key.name)
		}
	})
}

func (m *ServiceManager) onResolved(key pendingKey, result *catalog.ResolveResult, err error, elapsed time.Duration) {
	queued := m.pending[key]
	delete(m.pending, key)

	if m.observer != nil {
		m.observer.OnResolve(key.name, elapsed, err)
	}
	if err == nil && result == nil {
		err = fmt.Errorf("resolver returned no result")
	}
	if err != nil {
		logging.Warn("ServiceManager", "Failed to resolve %s: %v", key.name, err)
	} else if result.Singleton {
		m.singletons[result.Name] = true
	}

	for _, p := range queued {
		if err != nil {
			m.fail(p, api.ResultResolutionFailure, "%v", err)
			continue
		}
		m.connectResolved(p, result)
	}
}

// connectResolved finishes a connect once its target has been resolved.
func (m *ServiceManager) connectResolved(p *connectParams, result *catalog.ResolveResult) {
	if m.shutdown {
		m.fail(p, api.ResultConnectionLost, "service manager is shutting down")
		return
	}

	id := identity.NewWithInstance(result.Name, p.target.UserID, p.target.Instance)
	if result.Singleton || m.singletons[result.Name] {
		id.UserID = identity.RootUserID
	}
	if id.Instance == "" {
		id.Instance = result.Qualifier
	}

	if inst, ok := m.instances[id]; ok {
		if p.clientProcess != nil {
			m.fail(p, api.ResultInvalidArgument, "%s is already running", id)
			return
		}
		inst.connect(p)
		return
	}

	inst := m.createInstance(id, result.Spec)
	switch {
	case p.clientProcess != nil:
		m.startClientProcess(inst, p)
		return
	case result.Packaged():
		m.startPackaged(inst, result)
	default:
		m.startWithRunner(inst, result)
	}
	inst.connect(p)
}

// startClientProcess adopts a service pipe supplied by the caller.
func (m *ServiceManager) startClientProcess(inst *Instance, p *connectParams) {
	ep := p.clientProcess
	p.clientProcess = nil
	if err := inst.start(ep); err != nil {
		m.removeInstance(inst)
		m.fail(p, api.ResultInstanceStartFailure, "%s: %v", inst.id, err)
		return
	}
	if p.pid > 0 {
		inst.setPID(p.pid)
	}
	m.succeed(p, inst)
}

func (m *ServiceManager) startWithRunner(inst *Instance, result *catalog.ResolveResult) {
	serviceEnd, brokerEnd := pipe.New()
	if err := inst.start(brokerEnd); err != nil {
		serviceEnd.Close()
		logging.Error("ServiceManager", err, "Failed to bind service pipe of %s", inst.id)
		m.removeInstance(inst)
		return
	}

	r := m.runners.Create(inst.id)
	err := r.Start(result, protocol.ServiceRequest{Endpoint: serviceEnd},
		func(pid int) {
			m.runner.PostTask(func() { inst.setPID(pid) })
		},
		func(exitErr error) {
			m.runner.PostTask(func() { m.onInstanceExit(inst, exitErr) })
		})
	if err != nil {
		serviceEnd.Close()
		logging.Error("ServiceManager", err, "Failed to start %s", inst.id)
		m.removeInstance(inst)
	}
}

// startPackaged asks the package instance to host inst through its
// ServiceFactory. The manager connects to the package as itself.
func (m *ServiceManager) startPackaged(inst *Instance, result *catalog.ResolveResult) {
	serviceEnd, brokerEnd := pipe.New()
	if err := inst.start(brokerEnd); err != nil {
		serviceEnd.Close()
		logging.Error("ServiceManager", err, "Failed to bind service pipe of %s", inst.id)
		m.removeInstance(inst)
		return
	}

	forwardLocal, forwardRemote := pipe.New()
	provider := registry.NewInterfaceProvider(forwardLocal)
	factory := provider.GetInterface(protocol.ServiceFactoryInterface)
	if err := factory.Send(protocol.CreateService{
		Name:    result.Name,
		Request: protocol.ServiceRequest{Endpoint: serviceEnd},
	}); err != nil {
		serviceEnd.Close()
	}
	inst.factoryHandle = factory

	pkg := identity.New(result.ResolvedName, inst.id.UserID)
	logging.Debug("ServiceManager", "Creating %s through package %s", inst.id, pkg)
	m.connect(m.self, protocol.ConnectCall{Target: pkg, Interfaces: forwardRemote}, func(reply protocol.ConnectReply) {
		if reply.Result != api.ResultSucceeded {
			logging.Warn("ServiceManager", "Package %s for %s unavailable: %s %s", pkg.Name, inst.id, reply.Result, reply.Reason)
			provider.Fail()
			m.removeInstance(inst)
			return
		}
		provider.Forward()
		if host, ok := m.instances[reply.Identity]; ok && host.pid != 0 {
			inst.setPID(host.pid)
		}
	})
}
