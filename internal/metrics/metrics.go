package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"switchboard/internal/api"
	"switchboard/internal/identity"
	"switchboard/pkg/logging"
)

const namespace = "switchboard"

// Recorder turns broker events into Prometheus metrics. It implements both
// the manager's Listener and ConnectObserver and is called on the manager's
// sequence.
type Recorder struct {
	registry *prometheus.Registry

	instances      prometheus.Gauge
	instanceEvents *prometheus.CounterVec
	connects       *prometheus.CounterVec
	resolveLatency *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "instances",
			Help:      "Number of service instances in the instance table.",
		}),
		instanceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "instance_events_total",
			Help:      "Instance lifecycle events by kind.",
		}, []string{"event"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "connects_total",
			Help:      "Connect requests by result.",
		}, []string{"result"}),
		resolveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of name resolutions.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		r.instances,
		r.instanceEvents,
		r.connects,
		r.resolveLatency,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler exposing the recorded metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) OnInit(running []api.RunningServiceInfo) {
	r.instances.Set(float64(len(running)))
}

func (r *Recorder) OnServiceCreated(api.RunningServiceInfo) {
	r.instances.Inc()
	r.instanceEvents.WithLabelValues("created").Inc()
}

func (r *Recorder) OnServiceStarted(identity.Identity, int) {
	r.instanceEvents.WithLabelValues("started").Inc()
}

func (r *Recorder) OnServiceFailedToStart(identity.Identity) {
	r.instances.Dec()
	r.instanceEvents.WithLabelValues("failed_to_start").Inc()
}

func (r *Recorder) OnServiceStopped(identity.Identity) {
	r.instances.Dec()
	r.instanceEvents.WithLabelValues("stopped").Inc()
}

func (r *Recorder) OnConnectResult(_ identity.Identity, result api.Result) {
	r.connects.WithLabelValues(result.String()).Inc()
}

func (r *Recorder) OnResolve(_ string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.resolveLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Metrics", "Serving metrics on http://%s/metrics", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Metrics", "Metrics server shutdown: %v", err)
		}
		return nil
	}
}
