package solo

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/ib-77/ropool/pkg/rop"
)

func Succeed[T any](input T) rop.Result[T] {
	return rop.Success(input)
}

func Fail[T any](err error) rop.Result[T] {
	return rop.Fail[T](err)
}

func Cancel[T any](err error) rop.Result[T] {
	return rop.Cancel[T](err)
}

// Recover runs fn and turns a panic into a failed Result carrying a *rop.PanicError.
func Recover[T any](fn func() rop.Result[T]) (res rop.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = rop.Fail[T](&rop.PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	return fn()
}

// Attempt runs a (value, error) function under Recover.
func Attempt[T any](fn func() (T, error)) rop.Result[T] {
	return Recover(func() rop.Result[T] {
		v, err := fn()
		if err != nil {
			return rop.Fail[T](err)
		}
		return rop.Success(v)
	})
}

func Validate[T any](ctx context.Context, input T,
	validate func(ctx context.Context, in T) (isValid bool, errMsg string)) rop.Result[T] {
	return AndValidate(ctx, Succeed(input), validate)
}

func AndValidate[T any](ctx context.Context, input rop.Result[T],
	validate func(ctx context.Context, in T) (valid bool, errMsg string)) rop.Result[T] {

	if input.IsSuccess() {
		if isValid, errMsg := validate(ctx, input.Result()); !isValid {
			return rop.Fail[T](errors.New(errMsg))
		}
	}
	return input
}

// ValidateAll runs every validator against the input value and joins their errors.
// With breakOnError it stops at the first failing validator.
func ValidateAll[T any](ctx context.Context, input rop.Result[T], breakOnError bool,
	validators ...func(ctx context.Context, in T) (valid bool, errMsg string)) rop.Result[T] {

	if input.IsFailure() || len(validators) == 0 {
		return input
	}

	var errs []error
	for _, validate := range validators {
		if ctx.Err() != nil {
			return rop.Cancel[T](ctx.Err())
		}
		if valid, errMsg := validate(ctx, input.Result()); !valid {
			errs = append(errs, errors.New(errMsg))
			if breakOnError {
				break
			}
		}
	}

	if len(errs) > 0 {
		return rop.Fail[T](errors.Join(errs...))
	}
	return input
}

func Switch[In any, Out any](ctx context.Context,
	input rop.Result[In],
	onSuccess func(ctx context.Context, r In) rop.Result[Out]) rop.Result[Out] {

	if input.IsSuccess() {
		return onSuccess(ctx, input.Result())
	}
	return rop.FailFrom[In, Out](input)
}

func Map[In any, Out any](ctx context.Context,
	input rop.Result[In],
	onSuccess func(ctx context.Context, r In) Out) rop.Result[Out] {

	if input.IsSuccess() {
		return rop.Success(onSuccess(ctx, input.Result()))
	}
	return rop.FailFrom[In, Out](input)
}

func Try[In any, Out any](ctx context.Context, input rop.Result[In],
	onTryExecute func(ctx context.Context, r In) (Out, error)) rop.Result[Out] {

	if input.IsSuccess() {
		out, err := onTryExecute(ctx, input.Result())
		if err != nil {
			return rop.Fail[Out](err)
		}
		return rop.Success(out)
	}
	return rop.FailFrom[In, Out](input)
}

// Rescue gives a failed (not cancelled) input a second chance through onError.
func Rescue[T any](ctx context.Context, input rop.Result[T],
	onError func(ctx context.Context, err error) (T, error)) rop.Result[T] {

	if input.IsSuccess() || input.IsCancel() {
		return input
	}
	out, err := onError(ctx, input.Err())
	if err != nil {
		return rop.Fail[T](err)
	}
	return rop.Success(out)
}

func Tee[T any](ctx context.Context,
	input rop.Result[T],
	onSuccess func(ctx context.Context, r rop.Result[T])) rop.Result[T] {

	if input.IsSuccess() {
		onSuccess(ctx, input)
	}
	return input
}

func Finally[In, Out any](ctx context.Context, input rop.Result[In],
	onSuccess func(ctx context.Context, r In) Out,
	onError func(ctx context.Context, err error) Out,
	onCancel func(ctx context.Context, err error) Out) Out {

	if input.IsSuccess() {
		return onSuccess(ctx, input.Result())
	} else if input.IsCancel() {
		return onCancel(ctx, input.Err())
	} else {
		return onError(ctx, input.Err())
	}
}
