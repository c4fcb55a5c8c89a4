// Package logging provides the structured logging used throughout switchboard.
//
// The package wraps Go's standard slog package with subsystem-keyed helpers so
// every component logs the same way:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("ServiceManager", "Created instance %s", identity)
//	logging.Debug("Catalog", "Loaded %d manifests from %s", n, dir)
//	logging.Warn("Registry", "No binder for interface %s", name)
//	logging.Error("Runner", err, "Failed to start %s", identity)
//
// # Subsystems
//
// Logs carry a "subsystem" attribute. The broker uses:
//
//   - **Bootstrap**: application initialization and shutdown
//   - **Config**: configuration loading and validation
//   - **Catalog**: manifest loading and name resolution
//   - **ServiceManager**: instance lifecycle and the connect protocol
//   - **Registry**: interface bind dispatch
//   - **ServiceContext**: service-side lifecycle
//   - **Runner**: in-process instance launching
//
// # Audit Logging
//
// Capability decisions are logged through Audit so they can be filtered by
// log aggregation systems:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:    "bind_interface",
//	    Outcome:   "denied",
//	    Source:    source.String(),
//	    Interface: "echo.Echo",
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix.
//
// # Thread Safety
//
// All functions are safe for concurrent use.
package logging
