package dsl

import (
	"fmt"

	"github.com/aretw0/cartography/pkg/adapters/source/scenario"
)

// Builder manages scenario construction.
type Builder struct {
	order     []string
	scenarios map[string]*ScenarioBuilder
}

// New creates a new scenario builder.
func New() *Builder {
	return &Builder{
		scenarios: make(map[string]*ScenarioBuilder),
	}
}

// Add creates a new scenario.
// If the scenario already exists, it returns the existing builder.
func (b *Builder) Add(name string) *ScenarioBuilder {
	if sb, ok := b.scenarios[name]; ok {
		return sb
	}
	sb := &ScenarioBuilder{
		scenario: scenario.Scenario{Name: name},
		builder:  b,
	}
	b.scenarios[name] = sb
	b.order = append(b.order, name)
	return sb
}

// Build compiles the scenarios into a validated file, in the order they were added.
func (b *Builder) Build() (*scenario.File, error) {
	f := &scenario.File{Scenarios: make([]scenario.Scenario, 0, len(b.order))}
	for _, name := range b.order {
		f.Scenarios = append(f.Scenarios, b.scenarios[name].Build())
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build scenarios: %w", err)
	}
	return f, nil
}

// Source builds the scenarios and wraps them in a step source.
func (b *Builder) Source(opts ...scenario.Option) (*scenario.Source, error) {
	f, err := b.Build()
	if err != nil {
		return nil, err
	}
	return scenario.New(f, opts...), nil
}
