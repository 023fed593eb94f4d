package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
)

// StepSourceContractTest is a reusable test suite that verifies a source complies with ports.StepSource.
// The source must be able to produce at least desired steps for an arbitrary query.
func StepSourceContractTest(t *testing.T, source ports.StepSource, desired int) {
	t.Helper()

	// 1. Produces valid steps, never more than desired
	t.Run("GenerateSteps_Valid", func(t *testing.T) {
		count := 0
		for step, err := range source.GenerateSteps(context.Background(), "What is consciousness?", desired) {
			if err != nil {
				t.Fatalf("unexpected error at step %d: %v", count, err)
			}
			if err := step.Validate(); err != nil {
				t.Errorf("step %d invalid: %v", count, err)
			}
			if step.Label == "" {
				t.Errorf("step %d has an empty label", count)
			}
			count++
		}
		if count == 0 || count > desired {
			t.Errorf("expected between 1 and %d steps, got %d", desired, count)
		}
	})

	// 2. Stops when the consumer stops pulling
	t.Run("GenerateSteps_EarlyBreak", func(t *testing.T) {
		count := 0
		for _, err := range source.GenerateSteps(context.Background(), "early break", desired) {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			count++
			break
		}
		if count != 1 {
			t.Errorf("expected to stop after 1 step, got %d", count)
		}
	})

	// 3. Honors a cancelled context
	t.Run("GenerateSteps_Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var got error
		for _, err := range source.GenerateSteps(ctx, "cancelled", desired) {
			got = err
			break
		}
		if got == nil {
			t.Fatal("expected an error for a cancelled context")
		}
		if !errorsIsAny(got, context.Canceled, domain.ErrSourceUnavailable) {
			t.Errorf("expected context.Canceled or ErrSourceUnavailable, got %v", got)
		}
	})
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
