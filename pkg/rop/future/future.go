package future

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ib-77/ropool/pkg/rop"
)

// Future is the read side of a one-shot outcome.
// It can be awaited any number of times, from any number of goroutines.
type Future[T any] struct {
	id   uuid.UUID
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	result    rop.Result[T]
	callbacks []func(rop.Result[T])
}

// Promise is the write side of a Future. Exactly one Resolve, Complete, Fail or
// Cancel call succeeds; later ones return rop.ErrDoubleCompletion.
type Promise[T any] struct {
	f *Future[T]
}

var (
	_ rop.Awaiter[int]   = (*Future[int])(nil)
	_ rop.Completer[int] = (*Promise[int])(nil)
)

func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{
		f: &Future[T]{
			id:   uuid.New(),
			done: make(chan struct{}),
		},
	}
}

func (p *Promise[T]) Future() *Future[T] {
	return p.f
}

func (p *Promise[T]) Complete(value T) error {
	return p.Resolve(rop.Success(value))
}

func (p *Promise[T]) Fail(err error) error {
	return p.Resolve(rop.Fail[T](err))
}

func (p *Promise[T]) Cancel(err error) error {
	return p.Resolve(rop.Cancel[T](err))
}

// Resolve moves the future into its terminal state and releases waiters.
// Continuations registered so far run on the calling goroutine, in order,
// after the state is visible to Await.
func (p *Promise[T]) Resolve(res rop.Result[T]) error {
	f := p.f

	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return rop.ErrDoubleCompletion
	}
	f.settled = true
	f.result = res
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		f.notify(cb, res)
	}
	return nil
}

// notify runs one observer. A panicking observer is logged and skipped so the
// completing goroutine and the remaining observers carry on.
func (f *Future[T]) notify(fn func(rop.Result[T]), res rop.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("future", f.id.String()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("completion callback panicked")
		}
	}()
	fn(res)
}

// Completed returns a future already holding value.
func Completed[T any](value T) *Future[T] {
	p := NewPromise[T]()
	_ = p.Complete(value)
	return p.Future()
}

// Failed returns a future already holding err.
func Failed[T any](err error) *Future[T] {
	p := NewPromise[T]()
	_ = p.Fail(err)
	return p.Future()
}

func (f *Future[T]) ID() uuid.UUID {
	return f.id
}

// Await blocks until the future is terminal or ctx is done. A ctx error
// leaves the future untouched; a later Await still observes the outcome.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result.Get()
	default:
	}

	select {
	case <-f.done:
		return f.result.Get()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get waits without a deadline.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.result.Get()
}

func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the terminal outcome; ok is false while pending.
func (f *Future[T]) Result() (res rop.Result[T], ok bool) {
	if !f.IsDone() {
		return res, false
	}
	return f.result, true
}

// OnComplete registers fn to observe the outcome exactly once. When the
// future is already terminal fn runs right away on the calling goroutine,
// otherwise on the goroutine that completes the future. A panic in fn is
// recovered and logged.
func (f *Future[T]) OnComplete(fn func(rop.Result[T])) {
	f.mu.Lock()
	if f.settled {
		res := f.result
		f.mu.Unlock()
		f.notify(fn, res)
		return
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}
