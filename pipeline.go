package siftz

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
	"go.uber.org/zap"
)

// Observability constants for Pipeline.
const (
	// Metrics.
	PipelineOperationsTotal = metricz.Key("pipeline.operations.total")
	PipelineErrorsTotal     = metricz.Key("pipeline.errors.total")
	PipelineStackDepth      = metricz.Key("pipeline.stack.depth")

	// Spans.
	PipelineOperationSpan = tracez.Key("pipeline.operation")

	// Tags.
	PipelineTagProcessor  = tracez.Tag("pipeline.processor")
	PipelineTagInputKind  = tracez.Tag("pipeline.input_kind")
	PipelineTagOutputKind = tracez.Tag("pipeline.output_kind")
	PipelineTagError      = tracez.Tag("pipeline.error")

	// Hook event keys.
	PipelineEventOperation = hookz.Key("pipeline.operation")
	PipelineEventError     = hookz.Key("pipeline.error")
)

// DefaultPipelineName heads error paths when WithName is not given.
const DefaultPipelineName Name = "pipeline"

// TimeoutName is the name of the Timeout connector WithTimeout installs
// around each operation.
const TimeoutName Name = "timeout"

// Call records one operation that ran successfully: the processor name and
// the arguments it was invoked with.
type Call struct {
	Name Name
	Args []any
}

// PipelineEvent is emitted via hookz after every operation.
type PipelineEvent struct {
	Timestamp time.Time
	Error     error
	Pipeline  Name
	Operation Name
	Args      []any
	Duration  time.Duration
	Kind      Kind
	ID        uuid.UUID
}

// Pipeline is a fluent, stateful wrapper around a single Value. Each
// extractor method replaces the current value with the extractor's output
// and records the call on the stack, so extractions chain:
//
//	p := siftz.New(siftz.Text(page))
//	defer p.Close()
//	hosts, err := p.CSSSelector("a::attr(href)").ExtractDomains().Result()
//
// Errors are sticky. Once an operation fails, the value and stack are left
// as they were before it, Err reports the failure, and later operations are
// no-ops until SetState installs a new value.
//
// A Pipeline is not safe for concurrent use. Recipe returns a Sequence that
// replays the successful operations and can be shared between goroutines.
//
// # Observability
//
// Metrics:
//   - pipeline.operations.total: operations attempted
//   - pipeline.errors.total: operations that failed
//   - pipeline.stack.depth: successful operations on the stack (gauge)
//
// Traces:
//   - pipeline.operation: one span per operation
//
// Events (via hooks):
//   - pipeline.operation: fired after every successful operation
//   - pipeline.error: fired when an operation fails
type Pipeline struct {
	ctx      context.Context
	err      error
	response *string
	clock    clockz.Clock
	logger   *zap.Logger
	catalog  *Catalog
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	hooks    *hookz.Hooks[PipelineEvent]
	name     Name
	state    Value
	stack    []Call
	procs    []Chainable[Value]
	timeout  time.Duration
	id       uuid.UUID
}

// New creates a Pipeline holding v.
func New(v Value, opts ...Option) *Pipeline {
	metrics := metricz.New()
	metrics.Counter(PipelineOperationsTotal)
	metrics.Counter(PipelineErrorsTotal)
	metrics.Gauge(PipelineStackDepth)

	p := &Pipeline{
		id:      uuid.New(),
		name:    DefaultPipelineName,
		state:   v,
		ctx:     context.Background(),
		clock:   clockz.RealClock,
		logger:  zap.NewNop(),
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[PipelineEvent](),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	if p.clock == nil {
		p.clock = clockz.RealClock
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Run applies proc to the current value. It is how custom processors join
// a chain; the built-in extractor methods all go through it.
func (p *Pipeline) Run(proc Chainable[Value], args ...any) *Pipeline {
	if p.err != nil {
		return p
	}

	var exec Chainable[Value] = proc
	if p.timeout > 0 {
		exec = NewTimeout[Value](TimeoutName, proc, p.timeout).WithClock(p.clock)
	}

	name := proc.Name()
	input := p.state
	start := p.clock.Now()
	p.metrics.Counter(PipelineOperationsTotal).Inc()

	ctx, span := p.tracer.StartSpan(p.ctx, PipelineOperationSpan)
	span.SetTag(PipelineTagProcessor, name)
	span.SetTag(PipelineTagInputKind, input.Kind().String())

	out, err := exec.Process(ctx, input)
	duration := p.clock.Since(start)

	event := PipelineEvent{
		ID:        p.id,
		Pipeline:  p.name,
		Operation: name,
		Args:      args,
		Duration:  duration,
		Timestamp: p.clock.Now(),
	}

	if err != nil {
		p.err = wrapError(p.name, input, err)
		span.SetTag(PipelineTagError, err.Error())
		span.Finish()
		p.metrics.Counter(PipelineErrorsTotal).Inc()
		p.logger.Warn("operation failed",
			zap.String("pipeline", p.name),
			zap.String("operation", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		event.Error = p.err
		event.Kind = input.Kind()
		_ = p.hooks.Emit(ctx, PipelineEventError, event) //nolint:errcheck
		return p
	}

	span.SetTag(PipelineTagOutputKind, out.Kind().String())
	span.Finish()

	p.state = out
	p.stack = append(p.stack, Call{Name: name, Args: args})
	p.procs = append(p.procs, proc)
	p.metrics.Gauge(PipelineStackDepth).Set(float64(len(p.stack)))
	p.logger.Debug("operation",
		zap.String("pipeline", p.name),
		zap.String("operation", name),
		zap.Stringer("output_kind", out.Kind()),
		zap.Int("output_len", out.Len()),
		zap.Duration("duration", duration),
	)

	event.Kind = out.Kind()
	_ = p.hooks.Emit(ctx, PipelineEventOperation, event) //nolint:errcheck
	return p
}

// ExtractStrings replaces the value with its printable ASCII runs of at
// least minLength bytes.
func (p *Pipeline) ExtractStrings(minLength int) *Pipeline {
	return p.Run(Strings(minLength), minLength)
}

// ExtractIPs keeps the tokens that are IPv4 or IPv6 addresses.
func (p *Pipeline) ExtractIPs(opts ...MatchOption) *Pipeline {
	return p.Run(IPs(opts...), matchArgs(opts)...)
}

// ExtractEmail keeps the tokens that are email addresses.
func (p *Pipeline) ExtractEmail(opts ...MatchOption) *Pipeline {
	return p.Run(Emails(opts...), matchArgs(opts)...)
}

// ExtractMACAddress keeps the tokens that are MAC addresses.
func (p *Pipeline) ExtractMACAddress(opts ...MatchOption) *Pipeline {
	return p.Run(MACAddresses(opts...), matchArgs(opts)...)
}

// ExtractURLs replaces the value with every URL found in it.
func (p *Pipeline) ExtractURLs(opts ...MatchOption) *Pipeline {
	return p.Run(URLs(opts...), matchArgs(opts)...)
}

// ExtractDomains replaces the value with the network location of each URL.
func (p *Pipeline) ExtractDomains(opts ...MatchOption) *Pipeline {
	return p.Run(Domains(opts...), matchArgs(opts)...)
}

// XPathSelector evaluates an XPath query against the value as HTML, or as
// XML with XMLDocument.
func (p *Pipeline) XPathSelector(query string, namespaces map[string]string, opts ...XPathOption) *Pipeline {
	var cfg xpathConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return p.Run(XPath(query, namespaces, opts...), query, namespaces, cfg.xml)
}

// CSSSelector evaluates a CSS selector against the value as HTML.
func (p *Pipeline) CSSSelector(query string) *Pipeline {
	return p.Run(CSS(query), query)
}

// JPathSelector evaluates a JSONPath query against the value as JSON.
func (p *Pipeline) JPathSelector(query string) *Pipeline {
	return p.Run(JPath(query), query)
}

// HTMLComments replaces the value with the comments of the HTML document.
func (p *Pipeline) HTMLComments() *Pipeline {
	return p.Run(HTMLComments())
}

// JSComments replaces the value with the JavaScript comments found in it.
func (p *Pipeline) JSComments() *Pipeline {
	return p.Run(JSComments())
}

// HTMLTags replaces the value with a record per tag element.
func (p *Pipeline) HTMLTags(tag string) *Pipeline {
	return p.Run(HTMLTags(tag), tag)
}

// Secrets scans the last response with the pipeline's catalog. The response
// is captured when Secrets is called, so a recipe replays the scan against
// the same text.
func (p *Pipeline) Secrets() *Pipeline {
	var source ResponseSource = ResponseFunc(func() (string, bool) { return "", false })
	if text, ok := p.LastResponse(); ok {
		source = StaticResponse(text)
	}
	return p.Run(Secrets(p.catalog, source))
}

// Err returns the sticky error, or nil.
func (p *Pipeline) Err() error {
	return p.err
}

// Output returns the current value.
func (p *Pipeline) Output() Value {
	return p.state
}

// Result returns the current value and the sticky error.
func (p *Pipeline) Result() (Value, error) {
	return p.state, p.err
}

// State returns the current value. It is an alias of Output.
func (p *Pipeline) State() Value {
	return p.state
}

// SetState replaces the current value and clears the sticky error. The
// stack is kept.
func (p *Pipeline) SetState(v Value) *Pipeline {
	p.state = v
	p.err = nil
	return p
}

// SetResponse sets the text of the last HTTP response.
func (p *Pipeline) SetResponse(text string) *Pipeline {
	p.response = &text
	return p
}

// LastResponse implements ResponseSource.
func (p *Pipeline) LastResponse() (string, bool) {
	if p.response == nil {
		return "", false
	}
	return *p.response, true
}

// Stack returns the successful operations in the order they ran.
func (p *Pipeline) Stack() []Call {
	return slices.Clone(p.stack)
}

// Recipe returns a Sequence that replays the successful operations.
func (p *Pipeline) Recipe() *Sequence[Value] {
	return NewSequence(p.name+".recipe", p.procs...)
}

// ID identifies the pipeline in hook events.
func (p *Pipeline) ID() uuid.UUID {
	return p.id
}

// Name returns the pipeline name.
func (p *Pipeline) Name() Name {
	return p.name
}

// Metrics returns the metrics registry for this pipeline.
func (p *Pipeline) Metrics() *metricz.Registry {
	return p.metrics
}

// Tracer returns the tracer for this pipeline.
func (p *Pipeline) Tracer() *tracez.Tracer {
	return p.tracer
}

// OnOperation registers a handler called asynchronously after each
// successful operation.
func (p *Pipeline) OnOperation(handler func(context.Context, PipelineEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventOperation, handler)
	return err
}

// OnError registers a handler called asynchronously when an operation fails.
func (p *Pipeline) OnError(handler func(context.Context, PipelineEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventError, handler)
	return err
}

// Close shuts down observability components.
func (p *Pipeline) Close() error {
	if p.tracer != nil {
		p.tracer.Close()
	}
	p.hooks.Close()
	return nil
}

// String describes the pipeline for logs.
func (p *Pipeline) String() string {
	return fmt.Sprintf("%s[%s](%d ops)", p.name, p.state.Kind(), len(p.stack))
}

func matchArgs(opts []MatchOption) []any {
	c := newMatchConfig(opts)
	return []any{c.allowUnspecified, c.binary}
}
