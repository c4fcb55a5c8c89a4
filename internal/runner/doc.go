// Package runner launches service instances for the broker.
//
// A Factory produces one Runner per target identity. The Runner starts the
// implementation, binds it to the service pipe it was handed and reports the
// process id and the exit back through callbacks. InProcessFactory hosts the
// services from the builtin registry on sequences of their own.
package runner
