// Package queue provides the unbounded, goroutine-safe FIFO that feeds pool
// workers. Push never blocks; Pop blocks until an entry arrives, the queue is
// closed and empty, or the caller's context is done.
package queue
