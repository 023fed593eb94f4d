package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/cartography/pkg/adapters/source/scenario"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleScenario(t *testing.T) {
	b := New()

	b.Add("consciousness").
		Match("conscious", "mind").
		Describe("philosophy walkthrough").
		Reasoning("Defining {query}").Confidence(0.9).
		Retrieval("Recalling philosophy of mind").
		Decision("Consciousness is a spectrum").Detail("Synthesis")

	f, err := b.Build()
	require.NoError(t, err)
	require.Len(t, f.Scenarios, 1)

	sc := f.Scenarios[0]
	assert.Equal(t, "consciousness", sc.Name)
	assert.Equal(t, []string{"conscious", "mind"}, sc.Match)
	assert.Equal(t, "philosophy walkthrough", sc.Description)
	require.Len(t, sc.Steps, 3)

	assert.Equal(t, domain.KindReasoning, sc.Steps[0].Kind)
	require.NotNil(t, sc.Steps[0].Confidence)
	assert.InDelta(t, 0.9, *sc.Steps[0].Confidence, 1e-9)
	assert.Nil(t, sc.Steps[1].Confidence)
	assert.Equal(t, domain.KindDecision, sc.Steps[2].Kind)
	assert.Equal(t, "Synthesis", sc.Steps[2].Description)
}

func TestBuilder_KeepsInsertionOrder(t *testing.T) {
	b := New()
	b.Add("b").Reasoning("one").
		Add("a").Data("two")
	b.Add("b").Decision("three")

	f, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, f.Names())

	sc, ok := f.Lookup("b")
	require.True(t, ok)
	assert.Len(t, sc.Steps, 2)
}

func TestBuilder_Validation(t *testing.T) {
	t.Run("empty scenario", func(t *testing.T) {
		b := New()
		b.Add("empty")
		_, err := b.Build()
		assert.ErrorContains(t, err, "has no steps")
	})

	t.Run("unknown kind", func(t *testing.T) {
		b := New()
		b.Add("bad").Step(domain.Kind("musing"), "root")
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidStep)
	})

	t.Run("confidence out of range", func(t *testing.T) {
		b := New()
		b.Add("bad").Reasoning("too sure").Confidence(1.5)
		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidStep)
	})

	t.Run("modifiers without steps are ignored", func(t *testing.T) {
		b := New()
		b.Add("ok").Confidence(0.5).Detail("nothing").Reasoning("first")
		f, err := b.Build()
		require.NoError(t, err)
		assert.Nil(t, f.Scenarios[0].Steps[0].Confidence)
	})
}

func TestBuilder_Source(t *testing.T) {
	b := New()
	b.Add("default").Reasoning("Thinking about {query}").Decision("Done")
	b.Add("pinned").Data("Pinned data")

	src, err := b.Source(scenario.WithScenario("pinned"))
	require.NoError(t, err)

	var steps []domain.Step
	for step, err := range src.GenerateSteps(context.Background(), "anything", 5) {
		require.NoError(t, err)
		steps = append(steps, step)
	}
	require.Len(t, steps, 1)
	assert.Equal(t, "Pinned data", steps[0].Label)

	src, err = b.Source()
	require.NoError(t, err)
	for step, err := range src.GenerateSteps(context.Background(), "maps", 1) {
		require.NoError(t, err)
		assert.Equal(t, "Thinking about maps", step.Label)
	}
}
