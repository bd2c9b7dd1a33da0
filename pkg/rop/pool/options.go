package pool

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Metrics receives pool activity. internal/metrics.Collector implements it
// with Prometheus collectors.
type Metrics interface {
	Submitted()
	Started()
	Finished(elapsed time.Duration, failed bool)
	Rejected()
	Abandoned(n int)
	WorkerUp()
	WorkerDown()
}

type Option func(*options)

type options struct {
	name    string
	logger  zerolog.Logger
	metrics Metrics
	ctx     context.Context
}

func defaultOptions() options {
	return options{
		name:    "default",
		logger:  zerolog.Nop(),
		metrics: nopMetrics{},
		ctx:     context.Background(),
	}
}

// WithName labels log lines of the pool.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithContext sets the parent of the context handed to every job. Cancelling
// it tells running jobs to give up; it does not stop the workers.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) Submitted() {}
func (nopMetrics) Started() {}
func (nopMetrics) Finished(time.Duration, bool) {}
func (nopMetrics) Rejected() {}
func (nopMetrics) Abandoned(int) {}
func (nopMetrics) WorkerUp() {}
func (nopMetrics) WorkerDown() {}
