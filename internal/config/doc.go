// Package config loads the switchboard configuration.
//
// Configuration lives in a single directory, ~/.config/switchboard by
// default or the directory given with --config-path. The directory holds
// config.yaml:
//
//	catalog:
//	  path: ./catalog        # manifest directory, relative to the config directory
//	  watch: true            # reload manifests when files change
//	  resolveTimeout: 10s
//	broker:
//	  singletons: [tracing]  # names served from one root-owned instance
//	  idleTimeout: 5s        # built-in services quit after this long without clients
//	  autoStart: [echo]      # connected to at startup
//	logging:
//	  level: info
//	  format: text           # or json
//	metrics:
//	  enabled: false
//	  address: localhost:9464
//
// Every field is optional; LoadConfig starts from GetDefaultConfig and
// overlays whatever the file sets. A missing config.yaml is not an error.
//
// # Validation
//
// Loaded values are checked by BrokerConfig.Validate, which collects every
// problem into a ConfigurationErrorCollection instead of stopping at the
// first one. Each ConfigurationError carries the file, the category
// (catalog, broker, logging or metrics) and suggestions for fixing it:
//
//	cfg, err := config.LoadConfig(dir)
//	var errs *config.ConfigurationErrorCollection
//	if errors.As(err, &errs) {
//	    fmt.Println(errs.GetSummary())
//	}
package config
