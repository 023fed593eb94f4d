package mock_test

import (
	"context"
	"testing"

	"github.com/aretw0/cartography/pkg/adapters/source/mock"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/aretw0/cartography/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Contract(t *testing.T) {
	tests.StepSourceContractTest(t, mock.New(), 5)
}

func TestSource_Deterministic(t *testing.T) {
	src := mock.New()
	first := src.Steps("What is consciousness?", 7)
	second := src.Steps("What is consciousness?", 7)
	assert.Equal(t, first, second)
	require.Len(t, first, 7)

	assert.Equal(t, "Analyzing the problem: 'What is consciousness?' - step 1", first[0].Description)
	assert.Equal(t, "Step 1: Analyzing the problem: 'What is consciousness?' - step 1", first[0].Label)
	assert.Equal(t, "Analyzing the problem: 'What is consciousness?' - step 7", first[6].Description, "templates wrap around")
}

func TestSource_KindRotation(t *testing.T) {
	steps := mock.New().Steps("q", 6)
	kinds := make([]domain.Kind, len(steps))
	for i, s := range steps {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []domain.Kind{
		domain.KindReasoning, domain.KindRetrieval, domain.KindData,
		domain.KindReasoning, domain.KindDecision, domain.KindReasoning,
	}, kinds)
}

func TestSource_IteratorMatchesSteps(t *testing.T) {
	src := mock.New(mock.WithRotation(domain.KindDecision), mock.WithTemplates("only %s"))
	var got []domain.Step
	for step, err := range src.GenerateSteps(context.Background(), "q", 3) {
		require.NoError(t, err)
		got = append(got, step)
	}
	assert.Equal(t, src.Steps("q", 3), got)
	assert.Equal(t, domain.KindDecision, got[2].Kind)
	assert.Equal(t, "only 'q' - step 2", got[1].Description)
	assert.Equal(t, "mock", ports.SourceName(src))
}
