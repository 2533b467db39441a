package siftz

import (
	"context"
	"errors"
	"time"
)

// Apply creates a Processor from a function that transforms data and may return an error.
// Apply is the workhorse adapter: every extractor is an Apply, because coercing the
// current value can fail and so can parsing markup, JSON or a query expression.
//
// On error the input is returned unchanged together with an *Error[T] that records
// the processor name, the input, and how long the call ran. Panics are recovered
// into the same error type.
//
// Example:
//
//	upper := siftz.Apply("upper", func(_ context.Context, v siftz.Value) (siftz.Value, error) {
//	    s, err := siftz.AsText(v)
//	    if err != nil {
//	        return v, err
//	    }
//	    return siftz.Text(strings.ToUpper(s)), nil
//	})
func Apply[T any](name Name, fn func(context.Context, T) (T, error)) Processor[T] {
	return Processor[T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err error) {
			defer recoverFromPanic(&result, &err, name, value)
			start := time.Now()
			result, err = fn(ctx, value)
			if err != nil {
				return value, &Error[T]{
					Path:      []Name{name},
					InputData: value,
					Err:       err,
					Timestamp: time.Now(),
					Duration:  time.Since(start),
					Timeout:   errors.Is(err, context.DeadlineExceeded),
					Canceled:  errors.Is(err, context.Canceled),
				}
			}
			return result, nil
		},
	}
}
