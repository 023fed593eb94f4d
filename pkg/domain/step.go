package domain

import (
	"fmt"
	"math"
)

// Step is one reasoning record emitted by a step source.
type Step struct {
	Kind        Kind     `json:"kind" yaml:"kind" mapstructure:"kind"`
	Label       string   `json:"label" yaml:"label" mapstructure:"label"`
	Description string   `json:"description" yaml:"description" mapstructure:"description"`
	Confidence  *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty" mapstructure:"confidence"`
}

// Validate checks a step before it is applied to a session.
// Confidence values outside [0,1] are rejected rather than clamped so a misbehaving
// source is visible in the graph.
func (s Step) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidStep, ErrInvalidKind, s.Kind)
	}
	if s.Confidence != nil {
		c := *s.Confidence
		if math.IsNaN(c) || c < 0 || c > 1 {
			return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidStep, c)
		}
	}
	return nil
}

// Confidence returns a pointer to c, for building steps inline.
func Confidence(c float64) *float64 {
	return &c
}
