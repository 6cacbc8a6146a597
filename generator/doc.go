// Package generator builds the names sequences used to demonstrate the
// pipeline operators: map, filter, ordered and unordered flat expansion,
// transform, empty-sequence fallbacks, concat and merge.
//
// Every operation returns an undriven pipeline, so each call site decides
// whether to collect it, stream it or subscribe to it:
//
//	svc, _ := generator.New(generator.Config{})
//	letters, err := pipeline.Collect(ctx, svc.NamesFluxWithConcatMapAsync(4))
//	// A L I C E C H A R L I E D A V I D
//
// Operations are also reachable by name through Operation and
// OperationNames, which the HTTP handler and the demo binary use.
package generator
