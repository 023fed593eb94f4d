package dsl

import (
	"slices"

	"github.com/aretw0/cartography/pkg/adapters/source/scenario"
	"github.com/aretw0/cartography/pkg/domain"
)

// ScenarioBuilder provides a fluent API for configuring one scenario.
// Step modifiers such as Confidence and Detail apply to the last added step.
type ScenarioBuilder struct {
	scenario scenario.Scenario
	builder  *Builder
}

// Match adds query terms that select this scenario.
func (s *ScenarioBuilder) Match(terms ...string) *ScenarioBuilder {
	s.scenario.Match = append(s.scenario.Match, terms...)
	return s
}

// Describe sets the scenario description.
func (s *ScenarioBuilder) Describe(text string) *ScenarioBuilder {
	s.scenario.Description = text
	return s
}

// Step appends a step of any kind.
func (s *ScenarioBuilder) Step(kind domain.Kind, label string) *ScenarioBuilder {
	s.scenario.Steps = append(s.scenario.Steps, domain.Step{Kind: kind, Label: label})
	return s
}

// Reasoning appends a reasoning step.
func (s *ScenarioBuilder) Reasoning(label string) *ScenarioBuilder {
	return s.Step(domain.KindReasoning, label)
}

// Retrieval appends a retrieval step.
func (s *ScenarioBuilder) Retrieval(label string) *ScenarioBuilder {
	return s.Step(domain.KindRetrieval, label)
}

// Data appends a data step.
func (s *ScenarioBuilder) Data(label string) *ScenarioBuilder {
	return s.Step(domain.KindData, label)
}

// Decision appends a decision step.
func (s *ScenarioBuilder) Decision(label string) *ScenarioBuilder {
	return s.Step(domain.KindDecision, label)
}

// Error appends an error step.
func (s *ScenarioBuilder) Error(label string) *ScenarioBuilder {
	return s.Step(domain.KindError, label)
}

// Confidence sets the confidence of the last step.
func (s *ScenarioBuilder) Confidence(c float64) *ScenarioBuilder {
	if step := s.last(); step != nil {
		step.Confidence = domain.Confidence(c)
	}
	return s
}

// Detail sets the description of the last step.
func (s *ScenarioBuilder) Detail(text string) *ScenarioBuilder {
	if step := s.last(); step != nil {
		step.Description = text
	}
	return s
}

// Add starts another scenario on the same builder.
func (s *ScenarioBuilder) Add(name string) *ScenarioBuilder {
	return s.builder.Add(name)
}

// Build returns a copy of the underlying scenario.
// This is primarily used by the Builder, but exposed for advanced usage.
func (s *ScenarioBuilder) Build() scenario.Scenario {
	out := s.scenario
	out.Match = slices.Clone(s.scenario.Match)
	out.Steps = slices.Clone(s.scenario.Steps)
	return out
}

func (s *ScenarioBuilder) last() *domain.Step {
	if len(s.scenario.Steps) == 0 {
		return nil
	}
	return &s.scenario.Steps[len(s.scenario.Steps)-1]
}
