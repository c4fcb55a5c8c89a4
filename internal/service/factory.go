package service

import (
	"fmt"

	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/sequence"
	"switchboard/pkg/logging"
)

// PackageFactory serves service_manager.ServiceFactory for a package
// service: each CreateService request is hosted on a new Context.
type PackageFactory struct {
	// Runner is the sequence the factory handles run on.
	Runner *sequence.Runner

	// Create builds the service for name.
	Create func(name string) (Service, error)

	// NewRunner returns the sequence for a created service. When nil, the
	// service shares Runner.
	NewRunner func(name string) *sequence.Runner

	// OnCreated, when set, is called with each new context.
	OnCreated func(name string, ctx *Context)
}

// BindInterface implements registry.Binder for ServiceFactoryInterface.
func (f *PackageFactory) BindInterface(remote identity.Identity, _ string, handle *pipe.Endpoint) {
	err := handle.Start(f.Runner, func(msg any) {
		req, ok := msg.(protocol.CreateService)
		if !ok {
			logging.Warn("ServiceContext", "Service factory dropping unexpected message %T from %s", msg, remote)
			return
		}
		if err := f.create(req); err != nil {
			logging.Error("ServiceContext", err, "Package failed to create %s", req.Name)
			req.Request.Close()
		}
	}, nil)
	if err != nil {
		logging.Error("ServiceContext", err, "Failed to bind service factory for %s", remote)
	}
}

func (f *PackageFactory) create(req protocol.CreateService) error {
	if f.Create == nil {
		return fmt.Errorf("package has no constructor")
	}
	svc, err := f.Create(req.Name)
	if err != nil {
		return fmt.Errorf("creating %s: %w", req.Name, err)
	}

	runner := f.Runner
	if f.NewRunner != nil {
		runner = f.NewRunner(req.Name)
	}
	ctx := NewContext(svc, req.Request, runner)
	if f.OnCreated != nil {
		f.OnCreated(req.Name, ctx)
	}
	return nil
}
