package siftz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/tracez"
)

// Test name constants.
const (
	testSequence Name = "test"
	double       Name = "double"
	increment    Name = "increment"
	errorProc    Name = "error-proc"
	missing      Name = "missing"
)

func TestNewSequence(t *testing.T) {
	seq := NewSequence[int](testSequence)
	defer seq.Close()

	if seq.Len() != 0 {
		t.Errorf("new Sequence should be empty, got length %d", seq.Len())
	}
	if seq.Name() != testSequence {
		t.Errorf("expected name %s, got %s", testSequence, seq.Name())
	}
}

func TestSequenceRegister(t *testing.T) {
	t.Run("Register Multiple Processors", func(t *testing.T) {
		seq := NewSequence[int](testSequence)
		defer seq.Close()

		seq.Register(
			Transform(increment, func(_ context.Context, n int) int { return n + 1 }),
			Transform(double, func(_ context.Context, n int) int { return n * 2 }),
		)

		if diff := cmp.Diff([]Name{increment, double}, seq.Names()); diff != "" {
			t.Errorf("unexpected names (-want +got):\n%s", diff)
		}
	})

	t.Run("Push Appends", func(t *testing.T) {
		seq := NewSequence[int](testSequence,
			Transform(increment, func(_ context.Context, n int) int { return n + 1 }),
		)
		defer seq.Close()

		seq.Push(Transform(double, func(_ context.Context, n int) int { return n * 2 }))
		result, err := seq.Process(context.Background(), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 12 {
			t.Errorf("expected 12, got %d", result)
		}
	})

	t.Run("Initial Processors Are Copied", func(t *testing.T) {
		procs := []Chainable[int]{
			Transform(increment, func(_ context.Context, n int) int { return n + 1 }),
		}
		seq := NewSequence(testSequence, procs...)
		defer seq.Close()

		procs[0] = Transform(double, func(_ context.Context, n int) int { return n * 2 })
		result, err := seq.Process(context.Background(), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 6 {
			t.Errorf("expected 6, got %d", result)
		}
	})
}

func TestSequenceProcess(t *testing.T) {
	t.Run("Extractor Chain", func(t *testing.T) {
		seq := NewSequence[Value]("links",
			CSS("a::attr(href)"),
			Domains(),
		)
		defer seq.Close()

		page := `<a href="https://one.example/x">1</a><a href="mailto:x@y.z">2</a><a href="http://two.example">3</a>`
		result, err := seq.Process(context.Background(), Text(page))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(TextList("one.example", "two.example"), result); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Processor Error Stops Sequence", func(t *testing.T) {
		var calledAfter bool
		seq := NewSequence[Value]("recipe",
			JPath("[*]"),
			Transform("after", func(_ context.Context, v Value) Value {
				calledAfter = true
				return v
			}),
		)
		defer seq.Close()

		input := Text("not json")
		result, err := seq.Process(context.Background(), input)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("expected ErrParse, got %v", err)
		}
		if calledAfter {
			t.Error("processing should stop at the first error")
		}
		if !result.Equal(input) {
			t.Errorf("expected the value before the failing stage, got %v", result)
		}

		var siftzErr *Error[Value]
		if !errors.As(err, &siftzErr) {
			t.Fatalf("expected *Error[Value], got %T", err)
		}
		if diff := cmp.Diff([]Name{"recipe", JPathName}, siftzErr.Path); diff != "" {
			t.Errorf("unexpected path (-want +got):\n%s", diff)
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		seq := NewSequence[int](testSequence,
			Transform(increment, func(_ context.Context, n int) int { return n + 1 }),
		)
		defer seq.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := seq.Process(ctx, 1)

		var siftzErr *Error[int]
		if !errors.As(err, &siftzErr) || !siftzErr.IsCanceled() {
			t.Errorf("expected canceled error, got %v", err)
		}
	})

	t.Run("Processor Panic Recovered", func(t *testing.T) {
		seq := NewSequence[int](testSequence,
			Transform("panic", func(_ context.Context, _ int) int { panic("boom") }),
		)
		defer seq.Close()

		_, err := seq.Process(context.Background(), 1)
		if !errors.Is(err, ErrProcessorPanic) {
			t.Errorf("expected ErrProcessorPanic, got %v", err)
		}
	})

	t.Run("Concurrent Process", func(t *testing.T) {
		seq := NewSequence[Value](testSequence, IPs())
		defer seq.Close()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := seq.Process(context.Background(), Text("a 10.0.0.1 b"))
				if err != nil || !result.Equal(TextList("10.0.0.1")) {
					t.Errorf("unexpected result %v (%v)", result, err)
				}
			}()
		}
		wg.Wait()
	})
}

func TestSequenceModification(t *testing.T) {
	newSeq := func() *Sequence[int] {
		return NewSequence[int](testSequence,
			Transform(increment, func(_ context.Context, n int) int { return n + 1 }),
			Transform(double, func(_ context.Context, n int) int { return n * 2 }),
		)
	}

	t.Run("Remove Existing Processor", func(t *testing.T) {
		seq := newSeq()
		defer seq.Close()

		if err := seq.Remove(increment); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result, _ := seq.Process(context.Background(), 5)
		if result != 10 {
			t.Errorf("expected 10, got %d", result)
		}
	})

	t.Run("Remove Non-Existent Processor", func(t *testing.T) {
		seq := newSeq()
		defer seq.Close()

		err := seq.Remove(missing)
		if !errors.Is(err, ErrProcessorNotFound) {
			t.Errorf("expected ErrProcessorNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), string(missing)) {
			t.Errorf("expected name in error, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		seq := newSeq()
		defer seq.Close()

		seq.Clear()
		if seq.Len() != 0 {
			t.Errorf("expected empty sequence, got %d", seq.Len())
		}
		result, err := seq.Process(context.Background(), 5)
		if err != nil || result != 5 {
			t.Errorf("empty sequence should pass input through, got %d (%v)", result, err)
		}
	})
}

func TestSequenceObservability(t *testing.T) {
	t.Run("Metrics and Spans", func(t *testing.T) {
		seq := NewSequence[int]("test-sequence",
			Transform("stage1", func(_ context.Context, n int) int { return n * 2 }),
			Transform("stage2", func(_ context.Context, n int) int { return n + 10 }),
		)
		defer seq.Close()

		if seq.Metrics() == nil {
			t.Error("expected metrics registry to be initialized")
		}
		if seq.Tracer() == nil {
			t.Error("expected tracer to be initialized")
		}

		var spans []tracez.Span
		var spanMu sync.Mutex
		seq.Tracer().OnSpanComplete(func(span tracez.Span) {
			spanMu.Lock()
			spans = append(spans, span)
			spanMu.Unlock()
		})

		if _, err := seq.Process(context.Background(), 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := seq.Metrics().Counter(SequenceProcessedTotal).Value(); got != 1 {
			t.Errorf("expected 1 processed item, got %f", got)
		}
		if got := seq.Metrics().Counter(SequenceSuccessesTotal).Value(); got != 1 {
			t.Errorf("expected 1 success, got %f", got)
		}
		if got := seq.Metrics().Gauge(SequenceStagesCompleted).Value(); got != 2 {
			t.Errorf("expected 2 completed stages, got %f", got)
		}

		spanMu.Lock()
		defer spanMu.Unlock()
		if len(spans) != 3 {
			t.Errorf("expected 3 spans (1 main + 2 stages), got %d", len(spans))
		}
		for _, span := range spans {
			if span.Name == SequenceStageSpan {
				if _, ok := span.Tags[SequenceTagProcessorName]; !ok {
					t.Error("stage span missing processor_name tag")
				}
			}
		}
	})

	t.Run("Failure Metrics", func(t *testing.T) {
		seq := NewSequence[int]("test-sequence-fail",
			Apply(errorProc, func(_ context.Context, n int) (int, error) {
				return n, errors.New("fail")
			}),
		)
		defer seq.Close()

		_, _ = seq.Process(context.Background(), 1) //nolint:errcheck
		if got := seq.Metrics().Counter(SequenceFailuresTotal).Value(); got != 1 {
			t.Errorf("expected 1 failure, got %f", got)
		}
	})

	t.Run("Hooks Fire On Stage Events", func(t *testing.T) {
		seq := NewSequence[int]("test-hooks",
			Transform("stage1", func(_ context.Context, n int) int { return n * 2 }),
			Transform("stage2", func(_ context.Context, n int) int { return n + 1 }),
		)
		defer seq.Close()

		var mu sync.Mutex
		var stageEvents, allComplete []SequenceEvent
		if err := seq.OnStageComplete(func(_ context.Context, event SequenceEvent) error {
			mu.Lock()
			stageEvents = append(stageEvents, event)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("unexpected hook error: %v", err)
		}
		if err := seq.OnAllComplete(func(_ context.Context, event SequenceEvent) error {
			mu.Lock()
			allComplete = append(allComplete, event)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("unexpected hook error: %v", err)
		}

		if _, err := seq.Process(context.Background(), 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Wait for async hooks to fire
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(stageEvents) != 2 {
			t.Errorf("expected 2 stage events, got %d", len(stageEvents))
		}
		if len(allComplete) != 1 {
			t.Fatalf("expected 1 all complete event, got %d", len(allComplete))
		}
		if allComplete[0].CompletedStages != 2 || !allComplete[0].Success {
			t.Errorf("unexpected all complete event: %+v", allComplete[0])
		}
	})
}
