package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

// TransformError reports a stage function that failed on a given item.
// It terminates the pipeline; nothing is retried.
type TransformError struct {
	// Stage names the operator whose function failed ("map", "flatExpand", ...).
	Stage string
	// Index is the zero-based position of the failing item within the stage's input.
	Index int
	// Cause is the error returned (or the panic recovered) from the stage function.
	Cause error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("pipeline: %s failed on item %d: %v", e.Stage, e.Index, e.Cause)
}

func (e *TransformError) Unwrap() error { return e.Cause }

// AsTransformError extracts a TransformError from err's chain.
func AsTransformError(err error) (*TransformError, bool) {
	var te *TransformError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsCancellation reports whether err is a context cancellation or deadline.
// Cancellation is a clean early termination, never a pipeline failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// invoke runs a stage function, converting returned errors and panics into a
// TransformError. Context errors pass through untouched.
func invoke[I, O any](ctx context.Context, stage string, index int, fn func(context.Context, I) (O, error), in I) (O, error) {
	var (
		out O
		err error
	)
	if rec := panics.Try(func() { out, err = fn(ctx, in) }); rec != nil {
		var zero O
		return zero, &TransformError{Stage: stage, Index: index, Cause: rec.AsError()}
	}
	if err == nil {
		return out, nil
	}
	var zero O
	if IsCancellation(err) && ctx.Err() != nil {
		return zero, err
	}
	if _, ok := AsTransformError(err); ok {
		return zero, err
	}
	return zero, &TransformError{Stage: stage, Index: index, Cause: err}
}
