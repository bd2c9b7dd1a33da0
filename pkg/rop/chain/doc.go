// Package chain provides a fluent wrapper around future.Future[T]
// for building asynchronous Railway-Oriented chains on pool results.
//
// Each step is registered as a continuation, so building a chain never
// blocks; only Await and Finally wait for the outcome. A failing step skips
// every later step until Recover or Finally.
//
// Key operations:
// - Start/FromValue: begin a chain from a future or value
// - Then: switch to a new Result[U] via a function
// - ThenTry: call a function (U, error) and convert error to failure
// - Map: transform the successful value (T -> U)
// - Recover: turn a failure back into a value
// - Ensure: run side effects on success without changing the result
// - Finally: wait and collapse the chain into a final value via handlers
package chain
