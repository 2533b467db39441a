package siftz

import (
	"context"
)

// Transform creates a Processor that applies a pure transformation function to data.
// Use it when the operation cannot fail, for example replacing the current value
// with a constant or re-wrapping an already coerced value.
//
// If your transformation might fail (coercion, parsing), use Apply instead.
//
// Example:
//
//	reset := siftz.Transform("reset", func(_ context.Context, _ siftz.Value) siftz.Value {
//	    return siftz.List()
//	})
func Transform[T any](name Name, fn func(context.Context, T) T) Processor[T] {
	return Processor[T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err error) {
			defer recoverFromPanic(&result, &err, name, value)
			result = fn(ctx, value)
			return result, nil
		},
	}
}
