package builtin

import (
	"switchboard/internal/capability"
	"switchboard/internal/catalog"
	"switchboard/internal/identity"
	"switchboard/internal/protocol"
	"switchboard/internal/registry"
	"switchboard/internal/sequence"
	"switchboard/internal/service"
	"switchboard/pkg/logging"
)

// PackageName is the package service that can host any registered builtin.
const PackageName = "builtins"

// PackageDefinition describes the builtins package. Manifests that name it
// as their package are created through its service factory instead of a
// runner of their own.
func PackageDefinition(r *Registry) *Definition {
	return &Definition{
		Manifest: &catalog.Entry{
			Name:        PackageName,
			DisplayName: "Builtin services",
			Capabilities: capability.Spec{
				Provided: map[string]capability.Set{
					"service_manager:service_factory": capability.NewSet(protocol.ServiceFactoryInterface),
				},
			},
		},
		New: func(env Env) service.Service {
			return &Package{registry: r, env: env}
		},
	}
}

// Package hosts builtins on behalf of other manifests. Each hosted service
// runs on a sequence of its own.
type Package struct {
	service.BaseService

	registry *Registry
	env      Env
	ctx      *service.Context
}

// SetContext implements service.ContextAware.
func (p *Package) SetContext(ctx *service.Context) {
	p.ctx = ctx
}

// OnConnect exposes the service factory.
func (p *Package) OnConnect(remote identity.Identity, reg *registry.InterfaceRegistry) bool {
	reg.AddInterface(protocol.ServiceFactoryInterface, &service.PackageFactory{
		Runner: p.ctx.Runner(),
		Create: func(name string) (service.Service, error) {
			return p.registry.Create(name, p.env)
		},
		NewRunner: func(name string) *sequence.Runner {
			return sequence.New("service:" + name)
		},
		OnCreated: func(name string, hosted *service.Context) {
			logging.Debug("Package", "Hosting %s in %s", name, p.Identity())
			runner := hosted.Runner()
			runner.PostTask(func() {
				hosted.OnTerminated(runner.Stop)
			})
		},
	})
	return true
}
