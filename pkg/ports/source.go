package ports

import (
	"context"
	"iter"

	"github.com/aretw0/cartography/pkg/domain"
)

// StepSource produces the ordered reasoning steps for a query.
//
// Steps are pulled lazily: the driver applies each one before asking for the
// next, so a failure mid-sequence still leaves a consistent partial graph.
// Failures are yielded as a non-nil error (wrapping domain.ErrSourceUnavailable
// for operational problems) and end the sequence.
type StepSource interface {
	GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error]
}

// StepSourceFunc adapts a function to the StepSource interface.
type StepSourceFunc func(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error]

// GenerateSteps calls f.
func (f StepSourceFunc) GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
	return f(ctx, query, desired)
}

// Named is implemented by sources that can describe themselves in logs and /info.
type Named interface {
	Name() string
}

// SourceName returns the source's name, or "custom".
func SourceName(s StepSource) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return "custom"
}
