// Package breaker guards a step source with a circuit breaker so a failing
// model is not called again for every run while it is down.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/sony/gobreaker"
)

// Config holds the breaker thresholds.
type Config struct {
	Name string
	// MaxRequests is the number of trial runs allowed while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed. Zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before trying again.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// DefaultConfig returns the defaults for a remote model.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// Source wraps another source. A run counts as one request; it fails when the
// inner source yields a non-cancellation error.
type Source struct {
	inner  ports.StepSource
	cb     *gobreaker.TwoStepCircuitBreaker
	logger *slog.Logger
}

// Option configures the source.
type Option func(*Source)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New wraps inner with a breaker configured by cfg.
func New(inner ports.StepSource, cfg Config, opts ...Option) *Source {
	s := &Source{inner: inner, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Name == "" {
		cfg.Name = ports.SourceName(inner)
	}
	threshold := cfg.ConsecutiveFailures
	s.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("step source breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// Name implements ports.Named.
func (s *Source) Name() string {
	return ports.SourceName(s.inner)
}

// State reports the breaker state: "closed", "half-open" or "open".
func (s *Source) State() string {
	return s.cb.State().String()
}

// GenerateSteps implements ports.StepSource.
func (s *Source) GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
	return func(yield func(domain.Step, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.Step{}, err)
			return
		}
		done, err := s.cb.Allow()
		if err != nil {
			yield(domain.Step{}, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, s.cb.Name(), err))
			return
		}

		success := true
		defer func() { done(success) }()

		for step, err := range s.inner.GenerateSteps(ctx, query, desired) {
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				success = false
			}
			if !yield(step, err) || err != nil {
				return
			}
		}
	}
}
