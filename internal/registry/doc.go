// Package registry implements the capability-filtered interface dispatcher
// that sits on the receiving side of every connection, and the matching
// InterfaceProvider on the requesting side.
//
// A registry built with New applies capability.CanBind to every request with
// its own spec and request. Denials are silent to the peer: the handle is
// closed and an audit line is logged. NewUnfiltered, or a request naming the
// "*" interface, accepts every name.
//
//	reg := registry.New(local, localSpec, remote, request)
//	reg.AddInterfaceFunc("echo.Echo", func(h *pipe.Endpoint) {
//	    _ = h.Start(runner, onEcho(h), nil)
//	})
//	_ = reg.Bind(interfacesPipe, runner)
package registry
