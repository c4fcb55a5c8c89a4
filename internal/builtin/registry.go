package builtin

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"switchboard/internal/api"
	"switchboard/internal/catalog"
	"switchboard/internal/service"
)

// Env is what a constructor receives from the host.
type Env struct {
	// IdleTimeout is how long an idle service waits before asking to quit.
	IdleTimeout time.Duration
}

// Constructor builds one service instance.
type Constructor func(env Env) service.Service

// Definition is an in-process service implementation with its manifest.
type Definition struct {
	Manifest *catalog.Entry
	New      Constructor
}

// Name returns the manifest name.
func (d *Definition) Name() string {
	return d.Manifest.Name
}

// Registry maps service names to in-process implementations.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]*Definition),
	}
}

// Register adds a definition.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Manifest == nil || def.New == nil {
		return fmt.Errorf("cannot register incomplete service definition")
	}
	if err := def.Manifest.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := def.Name()
	if _, exists := r.definitions[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}
	r.definitions[name] = def
	return nil
}

// Unregister removes a definition.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[name]; !exists {
		return api.NewNotFoundError("service", name)
	}
	delete(r.definitions, name)
	return nil
}

// Get returns a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[name]
	return def, exists
}

// GetAll returns all definitions sorted by name.
func (r *Registry) GetAll() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name() < defs[j].Name() })
	return defs
}

// Create builds the named service.
func (r *Registry) Create(name string, env Env) (service.Service, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, api.NewNotFoundError("service", name)
	}
	return def.New(env), nil
}

// RegisterManifests adds every definition's manifest to c.
func (r *Registry) RegisterManifests(c *catalog.Catalog) error {
	for _, def := range r.GetAll() {
		if err := c.AddEntry(def.Manifest); err != nil {
			return fmt.Errorf("registering manifest for %s: %w", def.Name(), err)
		}
	}
	return nil
}

// Default returns a registry holding the bundled services.
func Default() *Registry {
	r := NewRegistry()
	for _, def := range []*Definition{EchoDefinition(), PackageDefinition(r)} {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}
