package service

import (
	"sync"

	"switchboard/internal/identity"
	"switchboard/internal/registry"
)

// Service is implemented by everything the broker can host.
type Service interface {
	// OnStart is called once, before any OnConnect, with the identity the
	// broker assigned to this instance.
	OnStart(id identity.Identity)

	// OnConnect is called for every connection to or from this instance.
	// The registry exposes this service's interfaces to remote. Returning
	// false tears the connection down.
	OnConnect(remote identity.Identity, reg *registry.InterfaceRegistry) bool

	// OnStop is called when the broker connection is lost. Returning true
	// lets a registered connection-lost closure run.
	OnStop() bool
}

// BaseService provides a base implementation of the Service interface that
// other services can embed. It accepts no connections and allows the
// connection-lost closure to run.
type BaseService struct {
	mu       sync.RWMutex
	identity identity.Identity
	started  bool
}

// OnStart records the assigned identity.
func (b *BaseService) OnStart(id identity.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity = id
	b.started = true
}

// OnConnect rejects the connection.
func (b *BaseService) OnConnect(identity.Identity, *registry.InterfaceRegistry) bool {
	return false
}

// OnStop returns true.
func (b *BaseService) OnStop() bool {
	return true
}

// Identity returns the identity received in OnStart.
func (b *BaseService) Identity() identity.Identity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.identity
}

// Started reports whether OnStart has run.
func (b *BaseService) Started() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

// ConnectionHandler observes every connection a context accepts, alongside
// the service. It returns whether it wants the connection kept.
type ConnectionHandler func(remote identity.Identity, reg *registry.InterfaceRegistry) bool

// ContextAware is implemented by services that need their Context. The
// context is handed over before any message is processed.
type ContextAware interface {
	SetContext(ctx *Context)
}
