// Package manager implements the broker: the table of running service
// instances and the connect flow between them.
//
// A connect names a target identity. The manager looks the identity up in
// its instance table (singletons are kept under the root user), and
// otherwise resolves the name through a per-user resolver, creates the
// instance through a runner or through the ServiceFactory of its package,
// and hands both sides their ends of the interface pipes. Connects to an
// instance that has not answered its start request are queued and
// delivered in arrival order.
//
// All state lives on one sequence. Listeners observe instance creation,
// start and removal, either in-process or over a pipe bound through the
// service_manager.ServiceManager interface of the manager's own instance.
package manager
