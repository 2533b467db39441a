package siftz

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithName sets the name that heads the Path of every error the pipeline
// reports. The default is "pipeline".
func WithName(name Name) Option {
	return func(p *Pipeline) { p.name = name }
}

// WithContext sets the context every operation runs under.
func WithContext(ctx context.Context) Option {
	return func(p *Pipeline) { p.ctx = ctx }
}

// WithTimeout runs every operation under a Timeout connector with limit d.
// Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithClock sets the clock used for operation timing and timeouts.
func WithClock(clock clockz.Clock) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithLogger sets the logger. Operations log at debug level, failures at warn.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithCatalog replaces the secrets catalog used by Secrets.
func WithCatalog(catalog *Catalog) Option {
	return func(p *Pipeline) { p.catalog = catalog }
}

// WithResponse populates the last-response side channel, as a preceding
// HTTP fetch would.
func WithResponse(text string) Option {
	return func(p *Pipeline) { p.SetResponse(text) }
}
