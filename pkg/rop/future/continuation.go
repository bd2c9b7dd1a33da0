package future

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ib-77/ropool/pkg/rop"
	"github.com/ib-77/ropool/pkg/rop/solo"
)

// chain runs step on the outcome of f and settles the returned future with it.
// A done ctx cancels the chained future without calling step; a panic in step fails it.
func chain[In, Out any](ctx context.Context, f *Future[In],
	step func(ctx context.Context, in rop.Result[In]) rop.Result[Out]) *Future[Out] {

	p := NewPromise[Out]()
	f.OnComplete(func(in rop.Result[In]) {
		if err := ctx.Err(); err != nil {
			_ = p.Cancel(err)
			return
		}
		_ = p.Resolve(solo.Recover(func() rop.Result[Out] {
			return step(ctx, in)
		}))
	})
	return p.Future()
}

// Then runs onSuccess with the value once f completes. A failure of f skips
// onSuccess and is carried over to the returned future as is.
func Then[In, Out any](ctx context.Context, f *Future[In],
	onSuccess func(ctx context.Context, v In) (Out, error)) *Future[Out] {

	return chain(ctx, f, func(ctx context.Context, in rop.Result[In]) rop.Result[Out] {
		return solo.Try(ctx, in, onSuccess)
	})
}

// Switch is Then for continuations that build their own Result.
func Switch[In, Out any](ctx context.Context, f *Future[In],
	onSuccess func(ctx context.Context, v In) rop.Result[Out]) *Future[Out] {

	return chain(ctx, f, func(ctx context.Context, in rop.Result[In]) rop.Result[Out] {
		return solo.Switch(ctx, in, onSuccess)
	})
}

func Map[In, Out any](ctx context.Context, f *Future[In],
	onSuccess func(ctx context.Context, v In) Out) *Future[Out] {

	return chain(ctx, f, func(ctx context.Context, in rop.Result[In]) rop.Result[Out] {
		return solo.Map(ctx, in, onSuccess)
	})
}

// Catch gives a failed f a second chance. Successful and cancelled outcomes pass through.
func Catch[T any](ctx context.Context, f *Future[T],
	onError func(ctx context.Context, err error) (T, error)) *Future[T] {

	return chain(ctx, f, func(ctx context.Context, in rop.Result[T]) rop.Result[T] {
		return solo.Rescue(ctx, in, onError)
	})
}

// AwaitAll waits for every future and returns their values in order, or the
// first failure observed.
func AwaitAll[T any](ctx context.Context, fs ...*Future[T]) ([]T, error) {
	out := make([]T, len(fs))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fs {
		g.Go(func() error {
			v, err := f.Await(gctx)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
