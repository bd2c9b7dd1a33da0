package chain

import (
	"context"

	"github.com/ib-77/ropool/pkg/rop"
	"github.com/ib-77/ropool/pkg/rop/future"
	"github.com/ib-77/ropool/pkg/rop/solo"
)

// Chain wraps a future with context to enable fluent chaining
type Chain[T any] struct {
	ctx    context.Context
	future *future.Future[T]
}

// Start creates a new chain from a future, typically one returned by pool.Go
func Start[T any](ctx context.Context, f *future.Future[T]) *Chain[T] {
	return &Chain[T]{
		ctx:    ctx,
		future: f,
	}
}

// FromValue creates a new chain from an already successful value
func FromValue[T any](ctx context.Context, value T) *Chain[T] {
	return Start(ctx, future.Completed(value))
}

// Future returns the underlying future
func (c *Chain[T]) Future() *future.Future[T] {
	return c.future
}

// Await blocks until the chain's last step has an outcome
func (c *Chain[T]) Await() (T, error) {
	return c.future.Await(c.ctx)
}

// Then chains a function that returns rop.Result[U]
func Then[T, U any](c *Chain[T], onSuccess func(context.Context, T) rop.Result[U]) *Chain[U] {
	return Start(c.ctx, future.Switch(c.ctx, c.future, onSuccess))
}

// ThenTry chains a function that returns (U, error)
func ThenTry[T, U any](c *Chain[T], tryOnSuccess func(context.Context, T) (U, error)) *Chain[U] {
	return Start(c.ctx, future.Then(c.ctx, c.future, tryOnSuccess))
}

// Map chains a pure transformation function
func Map[T, U any](c *Chain[T], onSuccess func(context.Context, T) U) *Chain[U] {
	return Start(c.ctx, future.Map(c.ctx, c.future, onSuccess))
}

// Recover chains a function that may turn a failure back into a value
func (c *Chain[T]) Recover(onError func(context.Context, error) (T, error)) *Chain[T] {
	return Start(c.ctx, future.Catch(c.ctx, c.future, onError))
}

// Ensure performs a side effect on success without changing the result
func (c *Chain[T]) Ensure(onSuccess func(context.Context, T)) *Chain[T] {
	return Then(c, func(ctx context.Context, v T) rop.Result[T] {
		onSuccess(ctx, v)
		return rop.Success(v)
	})
}

// Finally waits for the chain and collapses its outcome using solo.Finally.
// A done context is reported through onCancel.
func Finally[T, U any](c *Chain[T], onSuccess func(context.Context, T) U,
	onFailure func(context.Context, error) U, onCancel func(context.Context, error) U) U {

	select {
	case <-c.future.Done():
	case <-c.ctx.Done():
		return onCancel(c.ctx, c.ctx.Err())
	}

	res, _ := c.future.Result()
	return solo.Finally(c.ctx, res, onSuccess, onFailure, onCancel)
}
