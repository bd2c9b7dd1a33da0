package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus collectors describing one pool.
// Every Collector owns its registry, so several pools never clash.
type Collector struct {
	registry *prometheus.Registry

	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsRejected  prometheus.Counter
	JobsAbandoned prometheus.Counter
	LiveWorkers   prometheus.Gauge
	QueueDepth    prometheus.Gauge
	JobLatency    prometheus.Histogram
}

// New creates the collectors under namespace and registers them, labelled
// with the pool name.
func New(namespace, pool string) *Collector {
	labels := prometheus.Labels{"pool": pool}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	c := &Collector{
		registry:      prometheus.NewRegistry(),
		JobsSubmitted: counter("jobs_submitted_total", "Total number of jobs accepted by the pool"),
		JobsCompleted: counter("jobs_completed_total", "Total number of jobs that completed with a value"),
		JobsFailed:    counter("jobs_failed_total", "Total number of jobs that failed or panicked"),
		JobsRejected:  counter("jobs_rejected_total", "Total number of submissions rejected after shutdown"),
		JobsAbandoned: counter("jobs_abandoned_total", "Total number of queued jobs cancelled by a bounded shutdown"),
		LiveWorkers:   gauge("live_workers", "Current number of running workers"),
		QueueDepth:    gauge("queue_depth", "Current number of jobs waiting in the queue"),
		JobLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        "job_duration_seconds",
			Help:        "Histogram of job execution time",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
	}

	c.registry.MustRegister(
		c.JobsSubmitted,
		c.JobsCompleted,
		c.JobsFailed,
		c.JobsRejected,
		c.JobsAbandoned,
		c.LiveWorkers,
		c.QueueDepth,
		c.JobLatency,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Submitted() {
	c.JobsSubmitted.Inc()
	c.QueueDepth.Inc()
}

func (c *Collector) Started() {
	c.QueueDepth.Dec()
}

func (c *Collector) Finished(elapsed time.Duration, failed bool) {
	c.JobLatency.Observe(elapsed.Seconds())
	if failed {
		c.JobsFailed.Inc()
		return
	}
	c.JobsCompleted.Inc()
}

func (c *Collector) Rejected() {
	c.JobsRejected.Inc()
}

func (c *Collector) Abandoned(n int) {
	c.JobsAbandoned.Add(float64(n))
	c.QueueDepth.Sub(float64(n))
}

func (c *Collector) WorkerUp() {
	c.LiveWorkers.Inc()
}

func (c *Collector) WorkerDown() {
	c.LiveWorkers.Dec()
}
