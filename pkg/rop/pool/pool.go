package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ib-77/ropool/pkg/rop"
	"github.com/ib-77/ropool/pkg/rop/future"
	"github.com/ib-77/ropool/pkg/rop/queue"
	"github.com/ib-77/ropool/pkg/rop/solo"
)

var (
	ErrInvalidSize = errors.New("pool size must be greater than zero")
	ErrNilJob      = errors.New("job must not be nil")
)

// Job is a unit of work. The context is cancelled only when a bounded
// shutdown gives up waiting, or when the parent passed via WithContext is done.
type Job func(ctx context.Context) (any, error)

// entry pairs a job with the promise receiving its outcome. A stop entry
// tells the worker that pops it to exit.
type entry struct {
	id       string
	stop     bool
	enqueued time.Time
	// execute runs the job and settles its promise. It reports the job
	// failure, if any, and the error of settling the promise.
	execute func(ctx context.Context) (failure error, settle error)
	abandon func(err error) error
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Name      string
	Size      int
	Live      int
	Pending   int
	Submitted uint64
	Completed uint64
	Failed    uint64
	Rejected  uint64
	Closed    bool
}

// Pool runs submitted jobs on a fixed number of worker goroutines.
//
// Jobs are dequeued in submission order; completion order is not guaranteed.
// A job must not wait on the future of another job of the same pool: with
// every worker blocked that way, nothing is left to run the awaited jobs.
type Pool struct {
	name    string
	size    int
	log     zerolog.Logger
	metrics Metrics

	queue  *queue.Queue[*entry]
	ctx    context.Context
	cancel context.CancelFunc

	// mu orders Submit against the stop signals pushed by Shutdown.
	mu     sync.RWMutex
	closed bool

	wg        sync.WaitGroup
	stopOnce  sync.Once
	abandoned sync.Once
	stopped   chan struct{}

	live      atomic.Int32
	pending   atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// New starts size workers and returns once all of them are running.
func New(size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(o.ctx)
	p := &Pool{
		name:    o.name,
		size:    size,
		log:     o.logger.With().Str("pool", o.name).Logger(),
		metrics: o.metrics,
		queue:   queue.New[*entry](),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	var ready sync.WaitGroup
	ready.Add(size)
	p.wg.Add(size)
	for i := range size {
		go p.worker(i, &ready)
	}
	ready.Wait()

	p.log.Info().Int("size", size).Msg("pool started")
	return p, nil
}

// Go submits a typed job and returns the future of its outcome.
// It fails with rop.ErrPoolClosed once shutdown has begun.
func Go[T any](p *Pool, job func(ctx context.Context) (T, error)) (*future.Future[T], error) {
	if job == nil {
		return nil, ErrNilJob
	}

	promise := future.NewPromise[T]()
	id := promise.Future().ID().String()

	e := &entry{
		id: id,
		execute: func(ctx context.Context) (error, error) {
			res := solo.Attempt(func() (T, error) {
				return job(ctx)
			})
			if res.IsFailure() {
				res = rop.Fail[T](&rop.JobFailure{JobID: id, Err: res.Err()})
			}
			return res.Err(), promise.Resolve(res)
		},
		abandon: func(err error) error {
			return promise.Cancel(err)
		},
	}

	if err := p.enqueue(e); err != nil {
		return nil, err
	}
	return promise.Future(), nil
}

// Submit is Go for untyped jobs.
func (p *Pool) Submit(job Job) (*future.Future[any], error) {
	if job == nil {
		return nil, ErrNilJob
	}
	return Go(p, func(ctx context.Context) (any, error) {
		return job(ctx)
	})
}

func (p *Pool) enqueue(e *entry) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.rejected.Add(1)
		p.metrics.Rejected()
		return rop.ErrPoolClosed
	}

	e.enqueued = time.Now()
	if err := p.queue.Push(e); err != nil {
		p.rejected.Add(1)
		p.metrics.Rejected()
		return fmt.Errorf("%w: %w", rop.ErrPoolClosed, err)
	}
	p.pending.Add(1)
	p.submitted.Add(1)
	p.metrics.Submitted()
	return nil
}

// Shutdown rejects new jobs, lets the workers drain everything queued so far
// and blocks until every worker has exited. Running jobs are never interrupted.
func (p *Pool) Shutdown() {
	_ = p.ShutdownContext(context.Background())
}

// ShutdownContext is Shutdown bounded by ctx. When ctx is done first, the job
// context is cancelled, queued jobs are cancelled with rop.ErrShutdownAbandoned,
// and ctx.Err() is returned; workers exit as soon as their current job returns.
func (p *Pool) ShutdownContext(ctx context.Context) error {
	p.stopOnce.Do(p.beginShutdown)

	select {
	case <-p.stopped:
		return nil
	default:
	}

	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		p.abandoned.Do(p.abandonQueued)
		return ctx.Err()
	}
}

func (p *Pool) beginShutdown() {
	p.mu.Lock()
	p.closed = true
	for range p.size {
		_ = p.queue.Push(&entry{stop: true})
	}
	p.mu.Unlock()

	p.log.Info().Int("pending", int(p.pending.Load())).Msg("pool shutting down")

	go func() {
		p.wg.Wait()
		p.queue.Close()
		p.cancel()
		p.log.Info().Msg("pool stopped")
		close(p.stopped)
	}()
}

func (p *Pool) abandonQueued() {
	p.queue.Close()
	queued := p.queue.Drain()
	// cancel only after draining so a worker freed by it finds nothing left to run
	p.cancel()

	n := 0
	for _, e := range queued {
		if e.stop {
			continue
		}
		n++
		p.pending.Add(-1)
		if err := e.abandon(rop.ErrShutdownAbandoned); err != nil {
			p.log.Error().Err(err).Str("job", e.id).Msg("abandoned job already settled")
		}
	}
	p.metrics.Abandoned(n)
	p.log.Warn().Int("abandoned", n).Msg("shutdown deadline exceeded")
}

func (p *Pool) worker(id int, ready *sync.WaitGroup) {
	defer p.wg.Done()

	log := p.log.With().Int("worker", id).Logger()
	p.live.Add(1)
	p.metrics.WorkerUp()
	defer func() {
		p.live.Add(-1)
		p.metrics.WorkerDown()
	}()

	log.Debug().Msg("worker started")
	ready.Done()

	for {
		e, err := p.queue.Pop(context.Background())
		if err != nil {
			log.Debug().Err(err).Msg("exiting (queue closed)")
			return
		}
		if e.stop {
			log.Debug().Msg("exiting (stop signal)")
			return
		}
		p.run(log, e)
	}
}

func (p *Pool) run(log zerolog.Logger, e *entry) {
	p.pending.Add(-1)
	p.metrics.Started()

	start := time.Now()
	failure, settleErr := e.execute(p.ctx)
	elapsed := time.Since(start)

	p.metrics.Finished(elapsed, failure != nil)
	if failure != nil {
		p.failed.Add(1)
		log.Warn().
			Err(failure).
			Str("job", e.id).
			Bool("panic", rop.IsPanic(failure)).
			Dur("elapsed", elapsed).
			Msg("job failed")
	} else {
		p.completed.Add(1)
		log.Debug().
			Str("job", e.id).
			Dur("queued", start.Sub(e.enqueued)).
			Dur("elapsed", elapsed).
			Msg("job completed")
	}

	if settleErr != nil {
		log.Error().Err(settleErr).Str("job", e.id).Msg("job outcome already settled")
	}
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Size() int {
	return p.size
}

// Live is the number of running workers: Size until shutdown, then falling to zero.
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Pending is the number of jobs queued and not yet picked up by a worker.
func (p *Pool) Pending() int {
	return int(p.pending.Load())
}

func (p *Pool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Stopped is closed once every worker has exited.
func (p *Pool) Stopped() <-chan struct{} {
	return p.stopped
}

func (p *Pool) Stats() Stats {
	return Stats{
		Name:      p.name,
		Size:      p.size,
		Live:      p.Live(),
		Pending:   p.Pending(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
		Closed:    p.IsClosed(),
	}
}
