// Package mock provides a deterministic step source that needs no network access.
package mock

import (
	"context"
	"fmt"
	"iter"

	"github.com/aretw0/cartography/pkg/domain"
)

// DefaultTemplates are the canned reasoning phrasings. Each receives the quoted
// query and the step number.
var DefaultTemplates = []string{
	"Analyzing the problem: %s",
	"Breaking down into components: %s",
	"Considering approach: %s",
	"Evaluating options for: %s",
	"Synthesizing solution for: %s",
	"Validating reasoning about: %s",
}

// DefaultRotation is the kind sequence assigned to consecutive steps.
var DefaultRotation = []domain.Kind{
	domain.KindReasoning,
	domain.KindRetrieval,
	domain.KindData,
	domain.KindReasoning,
	domain.KindDecision,
}

// Source yields templated steps. The same query and count always produce the same steps.
type Source struct {
	templates []string
	rotation  []domain.Kind
}

// Option configures the mock source.
type Option func(*Source)

// WithTemplates replaces the phrasing templates. Each must contain a single %s verb.
func WithTemplates(templates ...string) Option {
	return func(s *Source) {
		if len(templates) > 0 {
			s.templates = templates
		}
	}
}

// WithRotation replaces the kind rotation.
func WithRotation(kinds ...domain.Kind) Option {
	return func(s *Source) {
		if len(kinds) > 0 {
			s.rotation = kinds
		}
	}
}

// New creates a mock source.
func New(opts ...Option) *Source {
	s := &Source{
		templates: DefaultTemplates,
		rotation:  DefaultRotation,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements ports.Named.
func (s *Source) Name() string {
	return "mock"
}

// Steps returns the full step list for query without going through an iterator.
func (s *Source) Steps(query string, desired int) []domain.Step {
	steps := make([]domain.Step, 0, max(desired, 0))
	for i := range desired {
		steps = append(steps, s.step(query, i))
	}
	return steps
}

// GenerateSteps implements ports.StepSource.
func (s *Source) GenerateSteps(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
	return func(yield func(domain.Step, error) bool) {
		for i := range desired {
			if err := ctx.Err(); err != nil {
				yield(domain.Step{}, err)
				return
			}
			if !yield(s.step(query, i), nil) {
				return
			}
		}
	}
}

func (s *Source) step(query string, i int) domain.Step {
	text := fmt.Sprintf(s.templates[i%len(s.templates)], fmt.Sprintf("'%s' - step %d", query, i+1))
	return domain.Step{
		Kind:        s.rotation[i%len(s.rotation)],
		Label:       fmt.Sprintf("Step %d: %s", i+1, text),
		Description: text,
		Confidence:  domain.Confidence(1 - 0.1*float64(i%5)),
	}
}
