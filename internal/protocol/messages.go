package protocol

import (
	"switchboard/internal/api"
	"switchboard/internal/capability"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
)

// Interface names the broker itself understands.
const (
	// ServiceManagerName is the name of the broker's own instance.
	ServiceManagerName = "service_manager"
	// ServiceManagerInterface accepts AddListener requests.
	ServiceManagerInterface = "service_manager.ServiceManager"
	// ServiceFactoryInterface is exposed by package services and accepts
	// CreateService requests.
	ServiceFactoryInterface = "service_manager.ServiceFactory"
)

// ServiceRequest is the service end of a freshly created service pipe. The
// party holding it hands it to service.NewContext to become that instance.
type ServiceRequest struct {
	Endpoint *pipe.Endpoint
}

// Close discards the request.
func (r ServiceRequest) Close() {
	if r.Endpoint != nil {
		r.Endpoint.Close()
	}
}

// Messages sent by the broker on a service pipe.

// StartRequest is the first message every instance receives.
type StartRequest struct {
	Info api.ServiceInfo
}

// ConnectRequest tells an instance that Source connected to it. Interfaces
// is the pipe the source sends GetInterface on; Remote, when set, is where
// the instance may send GetInterface to reach the source.
type ConnectRequest struct {
	Source       api.ServiceInfo
	Capabilities capability.Request
	Interfaces   *pipe.Endpoint
	Remote       *pipe.Endpoint
}

func (m ConnectRequest) Endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{m.Interfaces, m.Remote}
}

// Messages sent by an instance on its service pipe.

// StartResponse acknowledges StartRequest and hands over the broker end of
// the instance's connector pipe.
type StartResponse struct {
	Connector *pipe.Endpoint
}

func (m StartResponse) Endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{m.Connector}
}

// QuitRequest asks the broker to shut the instance down.
type QuitRequest struct{}

// Messages sent by an instance on a connector pipe.

// ConnectCall asks the broker to connect the caller to Target. Interfaces and
// Exposed carry the interface exchange; ClientProcess instead registers the
// caller-provided service pipe as the target instance. Carrying both is an
// invalid request.
type ConnectCall struct {
	ID            uint64
	Target        identity.Identity
	Interfaces    *pipe.Endpoint
	Exposed       *pipe.Endpoint
	ClientProcess *pipe.Endpoint
	PID           int
}

func (m ConnectCall) Endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{m.Interfaces, m.Exposed, m.ClientProcess}
}

// CloneConnector binds another connector pipe to the same instance.
type CloneConnector struct {
	Connector *pipe.Endpoint
}

func (m CloneConnector) Endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{m.Connector}
}

// Messages sent by the broker on a connector pipe.

// ConnectReply completes the ConnectCall with the same ID. Capabilities is
// what the target may request of the caller over the Exposed pipe.
type ConnectReply struct {
	ID           uint64
	Result       api.Result
	Identity     identity.Identity
	Capabilities capability.Request
	Reason       string
}

// Messages on an interface provider pipe.

// GetInterface asks the peer's registry to bind Name to Handle.
type GetInterface struct {
	Name   string
	Handle *pipe.Endpoint
}

func (m GetInterface) Endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{m.Handle}
}

// Messages on a service_manager.ServiceFactory handle.

// CreateService asks a package to host Name on the given service pipe.
type CreateService struct {
	Name    string
	Request ServiceRequest
}

func (m CreateService) Endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{m.Request.Endpoint}
}

// Messages on a service_manager.ServiceManager handle.

// AddListener subscribes the given pipe to topology events.
type AddListener struct {
	Listener *pipe.Endpoint
}

func (m AddListener) Endpoints() []*pipe.Endpoint {
	return []*pipe.Endpoint{m.Listener}
}

// Events delivered to a listener pipe.

type ListenerInit struct {
	Running []api.RunningServiceInfo
}

type ServiceCreated struct {
	Info api.RunningServiceInfo
}

type ServiceStarted struct {
	Identity identity.Identity
	PID      int
}

type ServiceFailedToStart struct {
	Identity identity.Identity
}

type ServiceStopped struct {
	Identity identity.Identity
}
