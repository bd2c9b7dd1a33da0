// Package solo contains single-value, synchronous primitives that operate
// on Result[T]. Future continuations are built from them, and they can be
// used directly to post-process a job outcome.
//
// Highlights:
// - Succeed/Fail/Cancel: construct Result[T]
// - Recover/Attempt: run a function, turning a panic into a failure
// - Validate/AndValidate/ValidateAll: apply validators, accumulating errors
// - Switch/Map/Try: move from Result[In] to Result[Out] on success only
// - Rescue: give a failure a second chance
// - Tee: side effects on success
// - Finally: reduce to a concrete value via success/error/cancel handlers
package solo
