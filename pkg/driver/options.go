package driver

import (
	"log/slog"

	"github.com/aretw0/cartography/pkg/domain"
)

// DefaultSteps is the step count requested when a run does not specify one.
const DefaultSteps = 5

// MaxSteps bounds the step count of a single run.
const MaxSteps = 50

// Option defines a functional option for configuring the Driver.
type Option func(*Driver)

// WithPacer configures the inter-step delay strategy.
func WithPacer(p Pacer) Option {
	return func(d *Driver) {
		d.pacer = p
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithHooks registers observability hooks. Multiple calls are merged.
func WithHooks(hooks domain.RunHooks) Option {
	return func(d *Driver) {
		d.hooks = d.hooks.Merge(hooks)
	}
}

// WithSessionID tags events and results with the owning session.
func WithSessionID(id string) Option {
	return func(d *Driver) {
		d.sessionID = id
	}
}

// WithDefaultSteps changes the step count used when a request leaves it at zero.
func WithDefaultSteps(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.defaultSteps = n
		}
	}
}

// WithRunIDGenerator replaces the UUID run id generator.
func WithRunIDGenerator(gen func() string) Option {
	return func(d *Driver) {
		d.newRunID = gen
	}
}

// WithChaining sets the policy used when a request leaves Chaining empty.
func WithChaining(policy domain.ChainPolicy) Option {
	return func(d *Driver) {
		d.chaining = policy
	}
}
