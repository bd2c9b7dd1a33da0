// Package future provides a completable, one-shot Future[T] and its write
// side, Promise[T].
//
// A Future moves from pending to exactly one terminal Result: success,
// failure or cancellation. Any number of goroutines may Await it, before or
// after completion, and all of them observe the same outcome.
//
// Continuations (Then, Switch, Map, Catch, OnComplete) registered while the
// future is pending run on the goroutine that completes it, which for pool
// jobs is the worker. Continuations registered on a terminal future run
// synchronously on the registering goroutine. Keep them short; long work
// belongs in a new job.
//
// Key operations:
// - NewPromise/Promise.Future: create the pair
// - Promise.Complete/Fail/Cancel/Resolve: settle once
// - Future.Await/Get/IsDone/Done/Result: observe
// - Then/Switch/Map/Catch: derive chained futures
// - AwaitAll: wait for a group of futures
package future
