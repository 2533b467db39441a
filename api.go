package siftz

import "context"

// Chainable defines the interface for any component that can process
// values of type T. Every extractor, the Sequence and Timeout connectors,
// and any custom step handed to Pipeline.Run implement it.
//
// Key design principles:
//   - Context support for timeout and cancellation
//   - Type safety through generics
//   - Error propagation for fail-fast behavior
//   - Named components for debugging and call-stack recording
type Chainable[T any] interface {
	Process(context.Context, T) (T, error)
	Name() Name
}

// Name is a type alias for processor and connector names.
// Extractor names are declared as constants (ExtractStringsName, XPathName, ...)
// so that call stacks and error paths can be matched without inline strings.
type Name = string

// Processor defines a named processing stage that transforms a value of type T.
// Processors are created through the adapter functions Apply and Transform,
// which keeps error wrapping and panic recovery uniform.
//
// The name appears in Error[T].Path and in the Pipeline call stack, so use
// the action-oriented snake_case form the built-in extractors use
// ("extract_urls", "css_selector").
type Processor[T any] struct {
	fn   func(context.Context, T) (T, error)
	name Name
}

// Process implements the Chainable interface.
func (p Processor[T]) Process(ctx context.Context, data T) (T, error) {
	return p.fn(ctx, data)
}

// Name returns the name of the processor for debugging and error reporting.
func (p Processor[T]) Name() Name {
	return p.name
}
