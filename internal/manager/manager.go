package manager

import (
	"context"
	"fmt"
	"os"
	"sort"

	"switchboard/internal/api"
	"switchboard/internal/capability"
	"switchboard/internal/catalog"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/runner"
	"switchboard/internal/sequence"
	"switchboard/internal/service"
	"switchboard/pkg/logging"
)

// Config holds the collaborators of a ServiceManager.
type Config struct {
	// Resolvers maps names to placements. Required.
	Resolvers catalog.ResolverFactory
	// Runners launches non-packaged instances. Required.
	Runners runner.Factory
	// Singletons lists names served by one instance regardless of the
	// manifest's instance sharing option.
	Singletons []string
	// Observer, when set, receives connect and resolve outcomes.
	Observer ConnectObserver
	// Runner is the sequence all manager state lives on. When nil the
	// manager creates and owns one.
	Runner *sequence.Runner
}

// ServiceManager brokers connections between service instances, creating
// instances on demand. All of its state is owned by its sequence; the
// exported methods are safe to call from any goroutine.
type ServiceManager struct {
	runner      *sequence.Runner
	ownsRunner  bool
	resolvers   catalog.ResolverFactory
	runners     runner.Factory
	observer    ConnectObserver
	quitHandler func(identity.Identity)

	resolverCache map[string]catalog.Resolver
	singletons    map[string]bool
	instances     map[identity.Identity]*Instance
	pending       map[pendingKey][]*connectParams
	listeners     []Listener

	self     *Instance
	shutdown bool
}

// New creates a manager and starts its own service_manager instance.
func New(cfg Config) (*ServiceManager, error) {
	if cfg.Resolvers == nil {
		return nil, fmt.Errorf("service manager requires a resolver factory")
	}
	if cfg.Runners == nil {
		return nil, fmt.Errorf("service manager requires a runner factory")
	}

	m := &ServiceManager{
		runner:        cfg.Runner,
		resolvers:     cfg.Resolvers,
		runners:       cfg.Runners,
		observer:      cfg.Observer,
		resolverCache: make(map[string]catalog.Resolver),
		singletons:    make(map[string]bool),
		instances:     make(map[identity.Identity]*Instance),
		pending:       make(map[pendingKey][]*connectParams),
	}
	if m.runner == nil {
		m.runner = sequence.New(protocol.ServiceManagerName)
		m.ownsRunner = true
	}
	for _, name := range cfg.Singletons {
		m.singletons[name] = true
	}
	m.singletons[protocol.ServiceManagerName] = true

	if !m.runner.PostTask(m.startSelf) {
		return nil, fmt.Errorf("service manager sequence %s is stopped", m.runner.Name())
	}
	return m, nil
}

// Runner returns the manager's sequence.
func (m *ServiceManager) Runner() *sequence.Runner {
	return m.runner
}

func selfSpec() capability.Spec {
	spec := capability.Permissive()
	spec.Provided = map[string]capability.Set{
		capability.ClassServiceManager: capability.NewSet(protocol.ServiceManagerInterface),
	}
	return spec
}

// startSelf registers the manager as an instance of its own.
func (m *ServiceManager) startSelf() {
	id := identity.New(protocol.ServiceManagerName, identity.RootUserID)
	m.self = m.createInstance(id, selfSpec())

	serviceEnd, brokerEnd := pipe.New()
	service.NewContext(&managerService{manager: m}, protocol.ServiceRequest{Endpoint: serviceEnd}, m.runner)
	if err := m.self.start(brokerEnd); err != nil {
		logging.Error("ServiceManager", err, "Failed to start %s", id)
		return
	}
	m.self.setPID(os.Getpid())
}

// StartEmbedderService registers an instance named name, owned by the root
// user with a permissive spec, that is hosted by the caller. The returned
// request is handed to service.NewContext. Each name may be registered once.
func (m *ServiceManager) StartEmbedderService(name string) protocol.ServiceRequest {
	serviceEnd, brokerEnd := pipe.New()
	posted := m.runner.PostTask(func() {
		id := identity.New(name, identity.RootUserID)
		if err := id.Validate(); err != nil {
			logging.Error("ServiceManager", err, "Invalid embedder service name")
			brokerEnd.Close()
			return
		}
		if _, exists := m.instances[id]; exists || m.shutdown {
			logging.Error("ServiceManager", fmt.Errorf("instance %s already exists", id), "Cannot start embedder service")
			brokerEnd.Close()
			return
		}
		inst := m.createInstance(id, capability.Permissive())
		if err := inst.start(brokerEnd); err != nil {
			logging.Error("ServiceManager", err, "Failed to start embedder service %s", id)
			m.removeInstance(inst)
			return
		}
		inst.setPID(os.Getpid())
	})
	if !posted {
		brokerEnd.Close()
	}
	return protocol.ServiceRequest{Endpoint: serviceEnd}
}

// AddListener subscribes l to instance events. l.OnInit runs first with the
// current instances.
func (m *ServiceManager) AddListener(l Listener) {
	m.runner.PostTask(func() { m.addListener(l) })
}

func (m *ServiceManager) addListener(l Listener) {
	m.listeners = append(m.listeners, l)
	l.OnInit(m.runningServices())
}

// RemoveListener unsubscribes l.
func (m *ServiceManager) RemoveListener(l Listener) {
	m.runner.PostTask(func() { m.removeListener(l) })
}

func (m *ServiceManager) removeListener(l Listener) {
	for n, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:n], m.listeners[n+1:]...)
			return
		}
	}
}

func (m *ServiceManager) addPipeListener(ep *pipe.Endpoint) {
	l := &pipeListener{endpoint: ep}
	l.onError = func() { m.removeListener(l) }
	if err := ep.Start(m.runner, nil, l.onError); err != nil {
		logging.Debug("ServiceManager", "Listener pipe unusable: %v", err)
		return
	}
	m.addListener(l)
}

func (m *ServiceManager) notify(fn func(Listener)) {
	// Listeners may unsubscribe themselves while being notified.
	listeners := append([]Listener(nil), m.listeners...)
	for _, l := range listeners {
		fn(l)
	}
}

// SetInstanceQuitCallback registers fn to be called with the identity of
// every instance that is removed.
func (m *ServiceManager) SetInstanceQuitCallback(fn func(identity.Identity)) {
	m.runner.PostTask(func() { m.quitHandler = fn })
}

// RunningServices returns a snapshot of the instance table.
func (m *ServiceManager) RunningServices(ctx context.Context) ([]api.RunningServiceInfo, error) {
	result := make(chan []api.RunningServiceInfo, 1)
	if !m.runner.PostTask(func() { result <- m.runningServices() }) {
		return nil, fmt.Errorf("service manager is stopped")
	}
	select {
	case running := <-result:
		return running, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *ServiceManager) runningServices() []api.RunningServiceInfo {
	out := make([]api.RunningServiceInfo, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst.info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.String() < out[j].Identity.String()
	})
	return out
}

// Shutdown removes every instance. A manager that owns its sequence stops
// it afterwards.
func (m *ServiceManager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	if !m.runner.PostTask(func() {
		m.shutdownNow()
		close(done)
	}) {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if m.ownsRunner {
		m.runner.Stop()
	}
	return nil
}

func (m *ServiceManager) shutdownNow() {
	if m.shutdown {
		return
	}
	m.shutdown = true
	logging.Info("ServiceManager", "Shutting down %d instances", len(m.instances))

	for key, queued := range m.pending {
		delete(m.pending, key)
		for _, p := range queued {
			m.fail(p, api.ResultConnectionLost, "service manager is shutting down")
		}
	}
	for _, inst := range m.instances {
		if inst != m.self {
			m.removeInstance(inst)
		}
	}
	if m.self != nil {
		m.removeInstance(m.self)
	}
}

func (m *ServiceManager) createInstance(id identity.Identity, spec capability.Spec) *Instance {
	inst := newInstance(m, id, spec)
	m.instances[id] = inst
	logging.Info("ServiceManager", "Created instance %s", id)
	m.notify(func(l Listener) { l.OnServiceCreated(inst.info()) })
	return inst
}

// removeInstance drops inst from the table. Connects still waiting on it
// fail, and listeners learn whether it ever started.
func (m *ServiceManager) removeInstance(inst *Instance) {
	if inst.state == api.InstanceRemoved {
		return
	}
	wasStarting := inst.state == api.InstanceStarting
	inst.state = api.InstanceRemoved
	if current, ok := m.instances[inst.id]; ok && current == inst {
		delete(m.instances, inst.id)
	}

	pending := inst.close()
	result := api.ResultConnectionLost
	if wasStarting {
		result = api.ResultInstanceStartFailure
	}
	for _, p := range pending {
		m.fail(p, result, "instance %s went away", inst.id)
	}

	if wasStarting {
		logging.Warn("ServiceManager", "Instance %s failed to start", inst.id)
		m.notify(func(l Listener) { l.OnServiceFailedToStart(inst.id) })
	} else {
		logging.Info("ServiceManager", "Instance %s stopped", inst.id)
		m.notify(func(l Listener) { l.OnServiceStopped(inst.id) })
	}
	if m.quitHandler != nil {
		m.quitHandler(inst.id)
	}
}

// onQuitRequest removes inst. Quit requests only follow the start
// response, by which point connects are no longer queued on the instance.
func (m *ServiceManager) onQuitRequest(inst *Instance) {
	logging.Debug("ServiceManager", "%s requested quit", inst.id)
	m.removeInstance(inst)
}

func (m *ServiceManager) onInstanceExit(inst *Instance, err error) {
	if inst.state == api.InstanceRemoved {
		return
	}
	if err != nil {
		logging.Warn("ServiceManager", "Instance %s exited: %v", inst.id, err)
	}
	m.removeInstance(inst)
}
