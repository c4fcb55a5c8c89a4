package app

import (
	"fmt"
	"time"

	"switchboard/internal/builtin"
	"switchboard/internal/catalog"
	"switchboard/internal/events"
	"switchboard/internal/manager"
	"switchboard/internal/metrics"
	"switchboard/internal/runner"
	"switchboard/internal/sequence"
	"switchboard/internal/service"
	"switchboard/pkg/logging"
)

// EmbedderName is the instance name the application registers for itself.
const EmbedderName = "switchboard"

// Services holds all initialized components used by the application.
//
// Initialization order:
//  1. Catalog: manifests from the configured directory, then the built-ins
//  2. Runner factory backed by the built-in registry
//  3. Service manager with the metrics recorder as its connect observer
//  4. Listeners: metrics and the event recorder
//  5. The embedder instance the application uses to auto-start services
type Services struct {
	Catalog *catalog.Catalog

	// Watcher reloads Catalog when its directory changes. Nil when watching
	// is disabled.
	Watcher *catalog.Watcher

	Builtins *builtin.Registry
	Manager  *manager.ServiceManager
	Metrics  *metrics.Recorder
	Events   *events.Recorder

	// Embedder is the application's own service context.
	Embedder *service.Context

	embedderRunner *sequence.Runner
}

// InitializeServices creates the broker and its collaborators from
// cfg.BrokerConfig.
func InitializeServices(cfg *Config) (*Services, error) {
	bc := cfg.BrokerConfig
	if bc == nil {
		return nil, fmt.Errorf("broker configuration is not loaded")
	}

	cat := catalog.New(bc.Catalog.Path)
	if err := cat.Load(); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	builtins := builtin.Default()
	if err := builtins.RegisterManifests(cat); err != nil {
		return nil, err
	}

	var watcher *catalog.Watcher
	if bc.Catalog.Watch {
		watcher = catalog.NewWatcher(cat, 0)
	}

	recorder := metrics.NewRecorder()
	runners := runner.NewInProcessFactory(builtins, builtin.Env{IdleTimeout: bc.Broker.IdleTimeout})

	mgr, err := manager.New(manager.Config{
		Resolvers:  cat.ResolverWithTimeout(bc.Catalog.ResolveTimeout),
		Runners:    runners,
		Singletons: bc.Broker.Singletons,
		Observer:   recorder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service manager: %w", err)
	}

	eventRecorder := events.NewRecorder(events.NewMessageTemplateEngine(), 0)
	mgr.AddListener(recorder)
	mgr.AddListener(eventRecorder)

	embedderRunner := sequence.New(EmbedderName)
	embedder := service.NewContext(&service.BaseService{}, mgr.StartEmbedderService(EmbedderName), embedderRunner)

	logging.Info("Bootstrap", "Initialized broker with %d manifests", len(cat.Entries()))
	return &Services{
		Catalog:        cat,
		Watcher:        watcher,
		Builtins:       builtins,
		Manager:        mgr,
		Metrics:        recorder,
		Events:         eventRecorder,
		Embedder:       embedder,
		embedderRunner: embedderRunner,
	}, nil
}

// AutoStart asks the broker to start every name, waiting up to timeout for
// each answer. Names that fail are logged and returned.
func (s *Services) AutoStart(names []string, timeout time.Duration) []string {
	type started struct {
		name string
		conn *service.Connection
	}
	conns := make(chan []started, 1)
	posted := s.embedderRunner.PostTask(func() {
		var out []started
		for _, name := range names {
			out = append(out, started{name: name, conn: s.Embedder.Connector().StartService(name)})
		}
		conns <- out
	})
	if !posted {
		return names
	}

	var failed []string
	deadline := time.After(timeout)
	pending := <-conns
	for _, st := range pending {
		select {
		case <-st.conn.Done():
			if err := st.conn.Err(); err != nil {
				logging.Warn("Bootstrap", "Auto-start of %s failed: %v", st.name, err)
				failed = append(failed, st.name)
				continue
			}
			logging.Info("Bootstrap", "Auto-started %s", st.name)
		case <-deadline:
			logging.Warn("Bootstrap", "Auto-start of %s timed out", st.name)
			failed = append(failed, st.name)
		}
	}
	return failed
}

// Close stops the embedder sequence. The manager is shut down separately.
func (s *Services) Close() {
	if s.Watcher != nil {
		s.Watcher.Stop()
	}
	s.embedderRunner.Stop()
}
