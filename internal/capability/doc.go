// Package capability holds the data model used to filter interface binding
// between services.
//
// A Spec is declared per service in its manifest. Provided maps a capability
// class to the interface names it exposes; Required maps a target service
// name (or "*") to the Request the service may make of that target.
//
// When service S connects to service T the broker computes
//
//	req := specOf(S).RequestFor(T.Name)
//
// and every interface T's registry is asked to bind for S is checked with
//
//	CanBind(specOf(T), req, name)
//
// A Request whose Interfaces set contains "*" disables filtering entirely.
// Registries built that way accept every name without consulting CanBind.
package capability
