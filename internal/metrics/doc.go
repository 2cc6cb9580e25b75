// Package metrics exposes the worker's Prometheus metrics.
//
// Metrics live on a private registry served by Collector.Handler; nothing
// is registered on the global default registry.
package metrics
