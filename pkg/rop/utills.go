package rop

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrPoolClosed is returned by submit once pool shutdown has begun.
	ErrPoolClosed = errors.New("pool closed")
	// ErrDoubleCompletion is returned by a second write to an already completed promise.
	ErrDoubleCompletion = errors.New("promise already completed")
	// ErrShutdownAbandoned cancels queued jobs that a bounded shutdown did not reach.
	ErrShutdownAbandoned = errors.New("job abandoned by pool shutdown")
)

// JobFailure wraps the error returned by a job body.
type JobFailure struct {
	JobID string
	Err   error
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %s failed: %v", e.JobID, e.Err)
}

func (e *JobFailure) Unwrap() error {
	return e.Err
}

// PanicError records a panic recovered while running a job or a continuation.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func IsNil(i interface{}) bool {
	if i == nil || (reflect.ValueOf(i).Kind() == reflect.Ptr && reflect.ValueOf(i).IsNil()) {
		return true
	}
	return false
}

func GetErrors(err error) []error {
	if IsNil(err) {
		return []error{}
	}

	e, ok := err.(interface{ Unwrap() []error })
	if ok {
		return e.Unwrap()
	}

	return []error{err}
}

func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
