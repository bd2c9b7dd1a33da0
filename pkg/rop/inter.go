package rop

import (
	"context"
	"time"
)

type ResultProvider[T any] interface {
	// Result returns the successful result value
	Result() T
	// CreatedAt time creation (UTC)
	CreatedAt() time.Time
}

// WithError defines an interface for types that can return a result or an error
type WithError[T any] interface {
	ResultProvider[T]
	// Err returns the error if operation failed
	Err() error
	// IsSuccess returns true if the operation was successful
	IsSuccess() bool
}

// WithCancel extends WithError with cancellation support
type WithCancel[T any] interface {
	WithError[T]
	// IsCancel returns true if the operation was cancelled
	IsCancel() bool
}

// Awaiter is the read side of a pending outcome.
type Awaiter[T any] interface {
	// Await blocks until the outcome is known or ctx is done
	Await(ctx context.Context) (T, error)
	// IsDone reports whether the outcome is known, without blocking
	IsDone() bool
	// Done is closed once the outcome is known
	Done() <-chan struct{}
}

// Completer is the write side of a pending outcome. Only one write succeeds.
type Completer[T any] interface {
	Complete(value T) error
	Fail(err error) error
	Cancel(err error) error
}
