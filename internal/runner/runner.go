package runner

import (
	"fmt"
	"os"

	"switchboard/internal/builtin"
	"switchboard/internal/catalog"
	"switchboard/internal/identity"
	"switchboard/internal/protocol"
	"switchboard/internal/sequence"
	"switchboard/internal/service"
	"switchboard/pkg/logging"
)

// Runner launches one service instance and binds it to the service pipe in
// request. onPID is called once the instance has a process id, onExit when
// it terminates. Both may be called from any goroutine.
type Runner interface {
	Start(manifest *catalog.ResolveResult, request protocol.ServiceRequest, onPID func(int), onExit func(error)) error
}

// Factory creates a Runner for a target identity.
type Factory interface {
	Create(id identity.Identity) Runner
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(id identity.Identity) Runner

// Create calls f(id).
func (f FactoryFunc) Create(id identity.Identity) Runner {
	return f(id)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(manifest *catalog.ResolveResult, request protocol.ServiceRequest, onPID func(int), onExit func(error)) error

// Start calls f.
func (f RunnerFunc) Start(manifest *catalog.ResolveResult, request protocol.ServiceRequest, onPID func(int), onExit func(error)) error {
	return f(manifest, request, onPID, onExit)
}

// InProcessFactory runs builtin services inside the broker process, each on
// its own sequence.
type InProcessFactory struct {
	registry *builtin.Registry
	env      builtin.Env
}

// NewInProcessFactory creates a factory backed by registry.
func NewInProcessFactory(registry *builtin.Registry, env builtin.Env) *InProcessFactory {
	return &InProcessFactory{registry: registry, env: env}
}

// Create implements Factory.
func (f *InProcessFactory) Create(id identity.Identity) Runner {
	return &inProcessRunner{factory: f, id: id}
}

type inProcessRunner struct {
	factory *InProcessFactory
	id      identity.Identity
}

func (r *inProcessRunner) Start(manifest *catalog.ResolveResult, request protocol.ServiceRequest, onPID func(int), onExit func(error)) error {
	if manifest == nil {
		return fmt.Errorf("no manifest for %s", r.id)
	}
	svc, err := r.factory.registry.Create(manifest.ResolvedName, r.factory.env)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", r.id, err)
	}

	seq := sequence.New("service:" + r.id.String())
	ctx := service.NewContext(svc, request, seq)
	seq.PostTask(func() {
		ctx.OnTerminated(func() {
			logging.Debug("Runner", "In-process service %s terminated", r.id)
			seq.Stop()
			if onExit != nil {
				onExit(nil)
			}
		})
	})

	logging.Debug("Runner", "Started in-process service %s", r.id)
	if onPID != nil {
		onPID(os.Getpid())
	}
	return nil
}
