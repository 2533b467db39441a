package siftz

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the Sequence connector.
const (
	// Metrics.
	SequenceProcessedTotal  = metricz.Key("sequence.processed.total")
	SequenceSuccessesTotal  = metricz.Key("sequence.successes.total")
	SequenceFailuresTotal   = metricz.Key("sequence.failures.total")
	SequenceStagesCompleted = metricz.Key("sequence.stages.completed")
	SequenceStagesTotal     = metricz.Key("sequence.stages.total")

	// Spans.
	SequenceProcessSpan = tracez.Key("sequence.process")
	SequenceStageSpan   = tracez.Key("sequence.stage")

	// Tags.
	SequenceTagStageCount    = tracez.Tag("sequence.stage_count")
	SequenceTagStageNumber   = tracez.Tag("sequence.stage_number")
	SequenceTagProcessorName = tracez.Tag("sequence.processor_name")
	SequenceTagSuccess       = tracez.Tag("sequence.success")
	SequenceTagError         = tracez.Tag("sequence.error")

	// Hook event keys.
	SequenceEventStageComplete = hookz.Key("sequence.stage_complete")
	SequenceEventAllComplete   = hookz.Key("sequence.all_complete")
)

// ErrProcessorNotFound is returned by Remove when no processor has the name.
var ErrProcessorNotFound = errors.New("processor not found")

// SequenceEvent is emitted via hookz as stages complete and when the whole
// sequence has finished.
type SequenceEvent struct {
	Error           error
	Timestamp       time.Time
	Name            Name
	StageName       Name
	StageNumber     int
	TotalStages     int
	CompletedStages int
	Duration        time.Duration
	TotalDuration   time.Duration
	Success         bool
}

// Sequence runs processors in order, each receiving the previous output,
// and stops at the first error. It is what Pipeline.Recipe returns: a
// replayable copy of every operation a pipeline has run, usable on any
// other input.
//
//	recipe := siftz.NewSequence[siftz.Value]("links",
//	    siftz.CSS("a::attr(href)"),
//	    siftz.Domains(),
//	)
//	domains, err := recipe.Process(ctx, siftz.Text(page))
//
// Unlike Pipeline, Sequence is safe for concurrent use: the processor list
// is snapshotted under a read lock on every Process call.
//
// # Observability
//
// Metrics:
//   - sequence.processed.total, sequence.successes.total, sequence.failures.total
//   - sequence.stages.completed, sequence.stages.total (gauges)
//
// Traces:
//   - sequence.process: parent span for a run
//   - sequence.stage: child span per stage
//
// Events (via hooks):
//   - sequence.stage_complete: fired as each stage finishes
//   - sequence.all_complete: fired when every stage succeeded
type Sequence[T any] struct {
	metrics    *metricz.Registry
	tracer     *tracez.Tracer
	hooks      *hookz.Hooks[SequenceEvent]
	name       Name
	processors []Chainable[T]
	mu         sync.RWMutex
}

// NewSequence creates a Sequence with optional initial processors.
func NewSequence[T any](name Name, processors ...Chainable[T]) *Sequence[T] {
	metrics := metricz.New()
	metrics.Counter(SequenceProcessedTotal)
	metrics.Counter(SequenceSuccessesTotal)
	metrics.Counter(SequenceFailuresTotal)
	metrics.Gauge(SequenceStagesCompleted)
	metrics.Gauge(SequenceStagesTotal)

	return &Sequence[T]{
		name:       name,
		processors: slices.Clone(processors),
		metrics:    metrics,
		tracer:     tracez.New(),
		hooks:      hookz.New[SequenceEvent](),
	}
}

// Register appends processors to the sequence.
func (c *Sequence[T]) Register(processors ...Chainable[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, processors...)
}

// Process runs every registered processor on value. The context is checked
// before each stage. A failing stage's *Error[T] gets the sequence name
// prepended to its Path.
func (c *Sequence[T]) Process(ctx context.Context, value T) (result T, err error) {
	defer recoverFromPanic(&result, &err, c.name, value)

	c.mu.RLock()
	processors := slices.Clone(c.processors)
	c.mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}

	c.metrics.Counter(SequenceProcessedTotal).Inc()
	c.metrics.Gauge(SequenceStagesTotal).Set(float64(len(processors)))
	start := time.Now()

	ctx, span := c.tracer.StartSpan(ctx, SequenceProcessSpan)
	span.SetTag(SequenceTagStageCount, fmt.Sprintf("%d", len(processors)))
	defer func() {
		if err == nil {
			span.SetTag(SequenceTagSuccess, "true")
			c.metrics.Counter(SequenceSuccessesTotal).Inc()
		} else {
			span.SetTag(SequenceTagSuccess, "false")
			span.SetTag(SequenceTagError, err.Error())
			c.metrics.Counter(SequenceFailuresTotal).Inc()
		}
		span.Finish()
	}()

	result = value
	completed := 0
	for i, proc := range processors {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, wrapError(c.name, value, ctxErr)
		}

		stageCtx, stageSpan := c.tracer.StartSpan(ctx, SequenceStageSpan)
		stageSpan.SetTag(SequenceTagStageNumber, fmt.Sprintf("%d", i+1))
		stageSpan.SetTag(SequenceTagProcessorName, proc.Name())

		stageStart := time.Now()
		next, stageErr := proc.Process(stageCtx, result)
		stageDuration := time.Since(stageStart)
		stageSpan.Finish()

		_ = c.hooks.Emit(ctx, SequenceEventStageComplete, SequenceEvent{ //nolint:errcheck
			Name:        c.name,
			StageName:   proc.Name(),
			StageNumber: i + 1,
			TotalStages: len(processors),
			Success:     stageErr == nil,
			Error:       stageErr,
			Duration:    stageDuration,
			Timestamp:   time.Now(),
		})
		if stageErr != nil {
			return result, wrapError(c.name, result, stageErr)
		}
		result = next
		completed++
		c.metrics.Gauge(SequenceStagesCompleted).Set(float64(completed))
	}

	_ = c.hooks.Emit(ctx, SequenceEventAllComplete, SequenceEvent{ //nolint:errcheck
		Name:            c.name,
		TotalStages:     len(processors),
		CompletedStages: completed,
		TotalDuration:   time.Since(start),
		Success:         true,
		Timestamp:       time.Now(),
	})
	return result, nil
}

// Len returns the number of processors.
func (c *Sequence[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.processors)
}

// Push adds processors to the back of the sequence.
func (c *Sequence[T]) Push(processors ...Chainable[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, processors...)
}

// Clear removes all processors.
func (c *Sequence[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = c.processors[:0]
}

// Names returns the names of all processors in order.
func (c *Sequence[T]) Names() []Name {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]Name, len(c.processors))
	for i, proc := range c.processors {
		names[i] = proc.Name()
	}
	return names
}

// Remove removes the first processor with the given name.
func (c *Sequence[T]) Remove(name Name) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, proc := range c.processors {
		if proc.Name() == name {
			c.processors = slices.Delete(c.processors, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrProcessorNotFound, name)
}

// Name returns the name of this sequence.
func (c *Sequence[T]) Name() Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Metrics returns the metrics registry for this connector.
func (c *Sequence[T]) Metrics() *metricz.Registry {
	return c.metrics
}

// Tracer returns the tracer for this connector.
func (c *Sequence[T]) Tracer() *tracez.Tracer {
	return c.tracer
}

// Close shuts down observability components.
func (c *Sequence[T]) Close() error {
	if c.tracer != nil {
		c.tracer.Close()
	}
	c.hooks.Close()
	return nil
}

// OnStageComplete registers a handler called asynchronously after every stage.
func (c *Sequence[T]) OnStageComplete(handler func(context.Context, SequenceEvent) error) error {
	_, err := c.hooks.Hook(SequenceEventStageComplete, handler)
	return err
}

// OnAllComplete registers a handler called asynchronously after a fully successful run.
func (c *Sequence[T]) OnAllComplete(handler func(context.Context, SequenceEvent) error) error {
	_, err := c.hooks.Hook(SequenceEventAllComplete, handler)
	return err
}
