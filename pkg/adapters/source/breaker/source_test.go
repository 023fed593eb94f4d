package breaker_test

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/cartography/pkg/adapters/source/breaker"
	"github.com/aretw0/cartography/pkg/adapters/source/mock"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/aretw0/cartography/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *flakySource) GenerateSteps(ctx context.Context, _ string, _ int) iter.Seq2[domain.Step, error] {
	return func(yield func(domain.Step, error) bool) {
		f.calls.Add(1)
		if f.fail.Load() {
			yield(domain.Step{}, errors.Join(domain.ErrSourceUnavailable, errors.New("503")))
			return
		}
		yield(domain.Step{Kind: domain.KindReasoning, Label: "ok"}, nil)
	}
}

func firstErr(src ports.StepSource) error {
	for _, err := range src.GenerateSteps(context.Background(), "q", 3) {
		if err != nil {
			return err
		}
	}
	return nil
}

func TestSource_Contract(t *testing.T) {
	tests.StepSourceContractTest(t, breaker.New(mock.New(), breaker.DefaultConfig("mock")), 3)
}

func TestSource_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakySource{}
	inner.fail.Store(true)
	cfg := breaker.DefaultConfig("flaky")
	cfg.Timeout = 50 * time.Millisecond
	src := breaker.New(inner, cfg)

	for range 3 {
		require.Error(t, firstErr(src))
	}
	assert.Equal(t, "open", src.State())

	err := firstErr(src)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Equal(t, int32(3), inner.calls.Load(), "open breaker must not reach the inner source")

	inner.fail.Store(false)
	require.Eventually(t, func() bool {
		return firstErr(src) == nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "closed", src.State())
}

func TestSource_CancellationIsNotAFailure(t *testing.T) {
	cfg := breaker.DefaultConfig("mock")
	cfg.ConsecutiveFailures = 1
	src := breaker.New(mock.New(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range src.GenerateSteps(ctx, "q", 3) {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", src.State())
}

func TestSource_Name(t *testing.T) {
	assert.Equal(t, "mock", ports.SourceName(breaker.New(mock.New(), breaker.Config{})))
}
