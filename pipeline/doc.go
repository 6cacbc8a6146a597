// Package pipeline provides lazy, composable sequence pipelines.
//
// A Pipeline is an immutable description of a source plus a chain of stages.
// Nothing runs until the pipeline is driven (DriveTo, Subscribe, Signals,
// Collect, Drain or ForEach), and every drive rebuilds the chain from the
// source, so a pipeline can be driven any number of times and never caches
// earlier results. Operators return new pipelines and leave their input
// untouched.
//
// # Operators
//
// Order preserving:
//
//   - Map: transform each value; a failing function ends the drive with a *TransformError
//   - Filter: keep values matching a predicate
//   - ConcatMap / FlatExpand(Ordered): one-to-many, inner sequences drained in upstream order
//   - Delay: hold each value back by a fixed or random duration
//   - DefaultIfEmpty / SwitchIfEmpty: substitute a value or a sequence for an empty upstream
//   - Concat / ConcatWith / MergeSequential: join pipelines in strict source order
//   - Transform: apply a reusable combination of stages
//   - Reduce, Take, Tap, Log
//
// Timing dependent (only the multiset of values is guaranteed):
//
//   - FlatMap / FlatExpand(Unordered): inner sequences drained concurrently on a worker pool
//   - Merge / MergeWith(sequential=false): sources interleaved by completion time
//   - Interval: unbounded ticker driven until cancellation
//
// # Driving
//
// DriveTo delivers values to a Consumer followed by exactly one of OnComplete
// or OnError. Cancelling the context is a clean early stop: no terminal
// callback is made and no value is delivered afterwards. Resources held by
// the chain (goroutines, timers) are released before DriveTo returns.
//
//	names := pipeline.FromSlice([]string{"alice", "bob"})
//	upper := pipeline.Map(names, func(_ context.Context, s string) (string, error) {
//	    return strings.ToUpper(s), nil
//	})
//	pipeline.DriveTo(ctx, upper, pipeline.ConsumerFuncs[string]{
//	    Next: func(s string) { fmt.Println(s) },
//	})
package pipeline
