// Package service is the SDK a service implementation uses to live behind the
// broker.
//
// A Context binds one Service to its service pipe. The broker's first
// message triggers OnStart; each inbound connection arrives as OnConnect with
// a capability-filtered registry.InterfaceRegistry the service fills with
// binders. When the broker connection drops, OnStop runs.
//
//	ctx := service.NewContext(svc, request, sequence.New("echo"))
//	conn := ctx.Connector().Connect("storage")
//	store := conn.GetInterface("storage.Store")
//
// Outbound connections go through the Connector. GetInterface on a pending
// Connection is held until the broker replies, so callers never wait.
//
// RefFactory and IdleQuitter let a service ask to be stopped once it has had
// no outstanding work for a while.
package service
