package manager

import (
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/internal/registry"
	"switchboard/internal/service"
	"switchboard/pkg/logging"
)

// managerService is the broker's own instance. It exposes
// service_manager.ServiceManager to callers holding the
// service_manager:service_manager class.
type managerService struct {
	service.BaseService
	manager *ServiceManager
}

func (s *managerService) OnConnect(remote identity.Identity, reg *registry.InterfaceRegistry) bool {
	reg.AddInterfaceFunc(protocol.ServiceManagerInterface, func(handle *pipe.Endpoint) {
		s.bind(remote, handle)
	})
	return true
}

func (s *managerService) bind(remote identity.Identity, handle *pipe.Endpoint) {
	m := s.manager
	err := handle.Start(m.runner, func(msg any) {
		req, ok := msg.(protocol.AddListener)
		if !ok {
			logging.Warn("ServiceManager", "Dropping unexpected %T from %s", msg, remote)
			return
		}
		if req.Listener == nil {
			return
		}
		logging.Debug("ServiceManager", "%s added a listener", remote)
		m.addPipeListener(req.Listener)
	}, nil)
	if err != nil {
		logging.Debug("ServiceManager", "ServiceManager handle from %s unusable: %v", remote, err)
	}
}
