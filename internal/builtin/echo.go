package builtin

import (
	"time"

	"switchboard/internal/capability"
	"switchboard/internal/catalog"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/registry"
	"switchboard/internal/service"
	"switchboard/pkg/logging"
)

const (
	// EchoName is the service name of the echo service.
	EchoName = "echo"
	// EchoInterface replies to every message with the same message.
	EchoInterface = "echo.Echo"
	// EchoClass grants EchoInterface.
	EchoClass = "echo"
)

// EchoDefinition describes the echo service.
func EchoDefinition() *Definition {
	return &Definition{
		Manifest: &catalog.Entry{
			Name:        EchoName,
			DisplayName: "Echo",
			Capabilities: capability.Spec{
				Provided: map[string]capability.Set{
					EchoClass: capability.NewSet(EchoInterface),
				},
			},
		},
		New: func(env Env) service.Service {
			return &Echo{idleTimeout: env.IdleTimeout}
		},
	}
}

// Echo answers on every bound echo.Echo handle. Each open handle keeps the
// service alive; once all are closed it asks to quit after the idle timeout.
type Echo struct {
	service.BaseService

	idleTimeout time.Duration
	ctx         *service.Context
	quitter     *service.IdleQuitter
}

// SetContext implements service.ContextAware.
func (e *Echo) SetContext(ctx *service.Context) {
	e.ctx = ctx
}

// OnStart arms the idle quitter.
func (e *Echo) OnStart(id identity.Identity) {
	e.BaseService.OnStart(id)
	if e.idleTimeout > 0 {
		e.quitter = service.NewIdleQuitter(e.ctx, e.idleTimeout)
	}
}

// OnConnect exposes echo.Echo.
func (e *Echo) OnConnect(remote identity.Identity, reg *registry.InterfaceRegistry) bool {
	reg.AddInterfaceFunc(EchoInterface, e.bind)
	return true
}

func (e *Echo) bind(handle *pipe.Endpoint) {
	var ref *service.Ref
	if e.quitter != nil {
		ref = e.quitter.Refs().NewRef()
	}
	release := func() {
		if ref != nil {
			ref.Release()
		}
	}

	err := handle.Start(e.ctx.Runner(), func(msg any) {
		if err := handle.Send(msg); err != nil {
			logging.Debug("Echo", "Reply dropped: %v", err)
		}
	}, release)
	if err != nil {
		release()
	}
}
