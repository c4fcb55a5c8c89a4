package manager

import (
	"time"

	"switchboard/internal/api"
	"switchboard/internal/identity"
	"switchboard/internal/pipe"
	"switchboard/internal/protocol"
	"switchboard/pkg/logging"
)

// Listener observes the instance table. All methods are called on the
// manager's sequence and must not block.
type Listener interface {
	// OnInit is called once with the instances running when the listener
	// was added.
	OnInit(running []api.RunningServiceInfo)
	OnServiceCreated(info api.RunningServiceInfo)
	OnServiceStarted(id identity.Identity, pid int)
	OnServiceFailedToStart(id identity.Identity)
	OnServiceStopped(id identity.Identity)
}

// ConnectObserver receives the outcome of every connect and resolution. It
// is called on the manager's sequence.
type ConnectObserver interface {
	OnConnectResult(target identity.Identity, result api.Result)
	OnResolve(name string, elapsed time.Duration, err error)
}

// pipeListener forwards events to a listener pipe obtained through the
// service_manager.ServiceManager interface.
type pipeListener struct {
	endpoint *pipe.Endpoint
	onError  func()
}

func (l *pipeListener) send(msg any) {
	if err := l.endpoint.Send(msg); err != nil {
		logging.Debug("ServiceManager", "Dropping listener %s: %v", l.endpoint, err)
		l.onError()
	}
}

func (l *pipeListener) OnInit(running []api.RunningServiceInfo) {
	l.send(protocol.ListenerInit{Running: running})
}

func (l *pipeListener) OnServiceCreated(info api.RunningServiceInfo) {
	l.send(protocol.ServiceCreated{Info: info})
}

func (l *pipeListener) OnServiceStarted(id identity.Identity, pid int) {
	l.send(protocol.ServiceStarted{Identity: id, PID: pid})
}

func (l *pipeListener) OnServiceFailedToStart(id identity.Identity) {
	l.send(protocol.ServiceFailedToStart{Identity: id})
}

func (l *pipeListener) OnServiceStopped(id identity.Identity) {
	l.send(protocol.ServiceStopped{Identity: id})
}
