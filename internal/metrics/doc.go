// Package metrics exports broker activity as Prometheus metrics: the size of
// the instance table, instance lifecycle events, connect results and
// resolution latency.
package metrics
