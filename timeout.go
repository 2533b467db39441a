package siftz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Timeout enforces a time limit on the processor it wraps. Pipeline uses it
// for every operation when WithTimeout is set, as a guard against inputs
// that make a query engine run for too long.
//
// The wrapped processor runs in its own goroutine with a deadline context.
// Processors that ignore the context keep running in the background after
// the deadline; the caller gets the timeout error regardless.
//
//	guarded := siftz.NewTimeout("guarded-xpath", siftz.XPath("//a", nil), time.Second)
type Timeout[T any] struct {
	processor Chainable[T]
	clock     clockz.Clock
	name      Name
	duration  time.Duration
	mu        sync.RWMutex
}

// NewTimeout creates a new Timeout connector.
func NewTimeout[T any](name Name, processor Chainable[T], duration time.Duration) *Timeout[T] {
	return &Timeout[T]{
		name:      name,
		processor: processor,
		duration:  duration,
		clock:     clockz.RealClock,
	}
}

// WithClock sets the clock the deadline is derived from.
func (t *Timeout[T]) WithClock(clock clockz.Clock) *Timeout[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
	return t
}

// Process implements the Chainable interface.
func (t *Timeout[T]) Process(ctx context.Context, data T) (T, error) {
	t.mu.RLock()
	processor := t.processor
	duration := t.duration
	clock := t.clock
	t.mu.RUnlock()

	start := clock.Now()
	ctx, cancel := clock.WithTimeout(ctx, duration)
	defer cancel()

	type outcome struct {
		result T
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := processor.Process(ctx, data)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return out.result, wrapError(t.name, data, out.err)
		}
		return out.result, nil
	case <-ctx.Done():
		return data, &Error[T]{
			Err:       ctx.Err(),
			InputData: data,
			Path:      []Name{t.name, processor.Name()},
			Timeout:   errors.Is(ctx.Err(), context.DeadlineExceeded),
			Canceled:  errors.Is(ctx.Err(), context.Canceled),
			Duration:  clock.Since(start),
			Timestamp: clock.Now(),
		}
	}
}

// SetDuration updates the timeout duration.
func (t *Timeout[T]) SetDuration(d time.Duration) *Timeout[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration = d
	return t
}

// GetDuration returns the current timeout duration.
func (t *Timeout[T]) GetDuration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.duration
}

// Name returns the name of this connector.
func (t *Timeout[T]) Name() Name {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}
