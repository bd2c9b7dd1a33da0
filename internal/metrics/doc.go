// Package metrics exposes worker pool activity as Prometheus collectors.
//
// # Basic Usage
//
//	m := metrics.New("ropool", "default")
//	p, _ := pool.New(4, pool.WithMetrics(m))
//
//	// scrape or dump
//	families, _ := m.Registry().Gather()
//
// A nil *Collector is never dereferenced by the pool; metrics are optional.
package metrics
