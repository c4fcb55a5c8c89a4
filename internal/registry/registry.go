package registry

import (
	"errors"
	"fmt"

	"switchboard/internal/capability"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/sequence"
	"switchboard/pkg/logging"
)

// ErrAlreadyBound is returned by Bind when the registry already has a pipe.
var ErrAlreadyBound = errors.New("registry already bound")

// Binder handles an accepted bind of one interface.
type Binder interface {
	BindInterface(remote identity.Identity, name string, handle *pipe.Endpoint)
}

// BinderFunc adapts a function to Binder.
type BinderFunc func(remote identity.Identity, name string, handle *pipe.Endpoint)

// BindInterface calls f.
func (f BinderFunc) BindInterface(remote identity.Identity, name string, handle *pipe.Endpoint) {
	f(remote, name, handle)
}

type pendingBind struct {
	name   string
	handle *pipe.Endpoint
}

// InterfaceRegistry is the per-connection dispatcher for inbound interface
// binds. Every request is checked against the connection's capability
// request before any binder sees it.
//
// A registry belongs to one sequence and is not safe for concurrent use.
type InterfaceRegistry struct {
	local      identity.Identity
	localSpec  capability.Spec
	remote     identity.Identity
	request    capability.Request
	unfiltered bool

	binders       map[string]Binder
	defaultBinder Binder

	paused  bool
	pending []pendingBind

	endpoint       *pipe.Endpoint
	remoteProvider *InterfaceProvider

	connectionLost func()
	lostFired      bool
	closed         bool
}

// New creates a registry that exposes local's interfaces to remote as far as
// request allows under localSpec.
func New(local identity.Identity, localSpec capability.Spec, remote identity.Identity, request capability.Request) *InterfaceRegistry {
	return &InterfaceRegistry{
		local:      local,
		localSpec:  localSpec,
		remote:     remote,
		request:    request,
		unfiltered: request.AllowsAllInterfaces(),
		binders:    make(map[string]Binder),
	}
}

// NewUnfiltered creates a registry that accepts every interface name.
func NewUnfiltered(local, remote identity.Identity) *InterfaceRegistry {
	return &InterfaceRegistry{
		local:      local,
		remote:     remote,
		unfiltered: true,
		binders:    make(map[string]Binder),
	}
}

// LocalIdentity returns the identity whose interfaces this registry exposes.
func (r *InterfaceRegistry) LocalIdentity() identity.Identity { return r.local }

// RemoteIdentity returns the peer binding through this registry.
func (r *InterfaceRegistry) RemoteIdentity() identity.Identity { return r.remote }

// Request returns the capability request the peer holds.
func (r *InterfaceRegistry) Request() capability.Request { return r.request }

// AddInterface registers binder for name. It fails on an empty name, a
// closed registry, or a name the peer's capabilities never allow it to bind.
func (r *InterfaceRegistry) AddInterface(name string, binder Binder) bool {
	if r.closed || name == "" || binder == nil {
		return false
	}
	if !r.CanBindRequestForInterface(name) {
		logging.Debug("Registry", "Not registering %s: %s may not bind it", name, r.remote)
		return false
	}
	r.binders[name] = binder
	return true
}

// AddInterfaceFunc registers a handle-only callback for name.
func (r *InterfaceRegistry) AddInterfaceFunc(name string, fn func(handle *pipe.Endpoint)) bool {
	if fn == nil {
		return false
	}
	return r.AddInterface(name, BinderFunc(func(_ identity.Identity, _ string, handle *pipe.Endpoint) {
		fn(handle)
	}))
}

// RemoveInterface drops the binder for name.
func (r *InterfaceRegistry) RemoveInterface(name string) {
	delete(r.binders, name)
}

// HasInterface reports whether a binder is registered for name.
func (r *InterfaceRegistry) HasInterface(name string) bool {
	_, ok := r.binders[name]
	return ok
}

// SetDefaultBinder sets the binder used for allowed names with no binder of
// their own.
func (r *InterfaceRegistry) SetDefaultBinder(binder Binder) {
	r.defaultBinder = binder
}

// CanBindRequestForInterface reports whether the peer may bind name.
func (r *InterfaceRegistry) CanBindRequestForInterface(name string) bool {
	if r.unfiltered {
		return true
	}
	return capability.CanBind(r.localSpec, r.request, name)
}

// GetInterface handles one bind request from the peer. Denied requests and
// requests nobody can serve close the handle.
func (r *InterfaceRegistry) GetInterface(name string, handle *pipe.Endpoint) {
	if handle == nil {
		return
	}
	if r.closed {
		handle.Close()
		return
	}

	if !r.CanBindRequestForInterface(name) {
		logging.Audit(logging.AuditEvent{
			Action:    "bind_interface",
			Outcome:   "denied",
			Source:    r.remote.String(),
			Target:    r.local.String(),
			Interface: name,
			Reason:    "not granted by capability request",
		})
		handle.Close()
		return
	}

	if r.paused {
		r.pending = append(r.pending, pendingBind{name: name, handle: handle})
		return
	}

	r.dispatch(name, handle)
}

func (r *InterfaceRegistry) dispatch(name string, handle *pipe.Endpoint) {
	if binder, ok := r.binders[name]; ok {
		binder.BindInterface(r.remote, name, handle)
		return
	}
	if r.defaultBinder != nil {
		r.defaultBinder.BindInterface(r.remote, name, handle)
		return
	}
	logging.Debug("Registry", "%s has no binder for %s requested by %s", r.local, name, r.remote)
	handle.Close()
}

// PauseBinding queues allowed requests instead of dispatching them.
func (r *InterfaceRegistry) PauseBinding() {
	r.paused = true
}

// ResumeBinding dispatches queued requests in arrival order.
func (r *InterfaceRegistry) ResumeBinding() {
	r.paused = false
	for len(r.pending) > 0 && !r.paused {
		next := r.pending[0]
		r.pending = r.pending[1:]
		if r.closed {
			next.handle.Close()
			continue
		}
		r.dispatch(next.name, next.handle)
	}
}

// Bind attaches the registry to the pipe its peer sends GetInterface on.
func (r *InterfaceRegistry) Bind(endpoint *pipe.Endpoint, runner *sequence.Runner) error {
	if r.endpoint != nil {
		return ErrAlreadyBound
	}
	if r.closed {
		endpoint.Close()
		return pipe.ErrClosed
	}
	r.endpoint = endpoint
	if err := endpoint.Start(runner, r.onMessage, r.onConnectionLost); err != nil {
		return fmt.Errorf("binding registry for %s: %w", r.remote, err)
	}
	return nil
}

// SetRemoteInterfaces attaches the provider through which the local side can
// reach the peer's interfaces on the same connection.
func (r *InterfaceRegistry) SetRemoteInterfaces(provider *InterfaceProvider) {
	r.remoteProvider = provider
}

// RemoteInterfaces returns the provider for the peer's interfaces, or nil
// when the peer exposes none on this connection.
func (r *InterfaceRegistry) RemoteInterfaces() *InterfaceProvider {
	return r.remoteProvider
}

// SetConnectionLostClosure registers fn to run once when the bound pipe is
// closed by the peer.
func (r *InterfaceRegistry) SetConnectionLostClosure(fn func()) {
	r.connectionLost = fn
}

// IsClosed reports whether the registry was closed or lost its pipe.
func (r *InterfaceRegistry) IsClosed() bool {
	return r.closed || r.lostFired
}

// Close tears the connection down. Queued requests are dropped with their
// handles closed.
func (r *InterfaceRegistry) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for _, p := range r.pending {
		p.handle.Close()
	}
	r.pending = nil
	if r.endpoint != nil {
		r.endpoint.Close()
	}
	if r.remoteProvider != nil {
		r.remoteProvider.Close()
	}
}

func (r *InterfaceRegistry) onMessage(msg any) {
	switch m := msg.(type) {
	case protocol.GetInterface:
		r.GetInterface(m.Name, m.Handle)
	default:
		logging.Warn("Registry", "%s dropping unexpected message %T from %s", r.local, msg, r.remote)
		if c, ok := msg.(pipe.Carrier); ok {
			for _, ep := range c.Endpoints() {
				if ep != nil {
					ep.Close()
				}
			}
		}
	}
}

func (r *InterfaceRegistry) onConnectionLost() {
	if r.lostFired {
		return
	}
	r.lostFired = true
	for _, p := range r.pending {
		p.handle.Close()
	}
	r.pending = nil
	if r.connectionLost != nil {
		r.connectionLost()
	}
}
