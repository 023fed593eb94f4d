// Package fallback chains two step sources: when the primary cannot produce a
// first step the secondary serves the whole run instead.
package fallback

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
)

// Source implements ports.StepSource over a primary and a secondary source.
// Once the primary has yielded a step it owns the run; later primary errors
// propagate so a graph never mixes steps from both.
type Source struct {
	primary    ports.StepSource
	secondary  ports.StepSource
	logger     *slog.Logger
	onFallback func(err error)
}

// Option configures the source.
type Option func(*Source)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithFallbackHook is called every time the secondary takes over.
func WithFallbackHook(fn func(err error)) Option {
	return func(s *Source) {
		s.onFallback = fn
	}
}

// New creates a fallback source.
func New(primary, secondary ports.StepSource, opts ...Option) *Source {
	s := &Source{primary: primary, secondary: secondary, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements ports.Named.
func (s *Source) Name() string {
	return ports.SourceName(s.primary) + "|" + ports.SourceName(s.secondary)
}

// GenerateSteps implements ports.StepSource.
func (s *Source) GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
	return func(yield func(domain.Step, error) bool) {
		started := false
		for step, err := range s.primary.GenerateSteps(ctx, query, desired) {
			if err != nil {
				if started || isCancellation(ctx, err) {
					yield(domain.Step{}, err)
					return
				}
				s.logger.Warn("primary step source failed, falling back",
					"primary", ports.SourceName(s.primary),
					"secondary", ports.SourceName(s.secondary),
					"error", err)
				if s.onFallback != nil {
					s.onFallback(err)
				}
				break
			}
			started = true
			if !yield(step, nil) {
				return
			}
		}
		if started {
			return
		}

		for step, err := range s.secondary.GenerateSteps(ctx, query, desired) {
			if !yield(step, err) || err != nil {
				return
			}
		}
	}
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
