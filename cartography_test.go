package cartography_test

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/cartography"
	"github.com/aretw0/cartography/pkg/adapters/memory"
	"github.com/aretw0/cartography/pkg/adapters/source/mock"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/driver"
	"github.com/aretw0/cartography/pkg/graph"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVisualizer(opts ...cartography.Option) *cartography.Visualizer {
	base := []cartography.Option{
		cartography.WithPacer(driver.NoopPacer{}),
		cartography.WithNodeIDs(graph.Sequential),
	}
	return cartography.New(mock.New(), append(base, opts...)...)
}

func TestVisualizer_Run(t *testing.T) {
	v := newVisualizer()

	res, err := v.Run(context.Background(), domain.RunRequest{Query: "why", Steps: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, domain.StatusCompleted, v.Status())

	snap := v.Snapshot()
	assert.Len(t, snap.Nodes, 4)
	assert.Len(t, snap.Edges, 3)

	visual := v.Visual()
	assert.Len(t, visual.Nodes, 4)
	assert.Len(t, visual.Links, 3)

	assert.Len(t, v.Log(2), 2)
	assert.Len(t, v.Log(0), 4)
	assert.True(t, strings.HasPrefix(v.Mermaid(), "graph TD"))

	require.NoError(t, v.Reset())
	assert.Empty(t, v.Snapshot().Nodes)
	assert.Equal(t, domain.StatusIdle, v.Status())
}

func TestVisualizer_OnStep(t *testing.T) {
	v := newVisualizer()

	var labels []string
	unsubscribe := v.OnStep(func(e *domain.StepEvent) {
		labels = append(labels, e.Node.Label)
	})

	_, err := v.Run(context.Background(), domain.RunRequest{Query: "q", Steps: 2})
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, domain.RootLabelPrefix+"q", labels[0])

	unsubscribe()
	_, err = v.Run(context.Background(), domain.RunRequest{Query: "q", Steps: 2})
	require.NoError(t, err)
	assert.Len(t, labels, 3)
}

func TestVisualizer_Archive(t *testing.T) {
	store := memory.NewStore()
	v := newVisualizer(cartography.WithArchive(store), cartography.WithSessionID("cli"))

	res, err := v.Run(context.Background(), domain.RunRequest{Query: "keep", Steps: 2})
	require.NoError(t, err)

	record, err := store.Load(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "cli", record.SessionID)
	assert.Equal(t, "keep", record.Query)
	assert.Len(t, record.Snapshot.Nodes, 3)
	assert.Len(t, record.Log, 3)
}

func TestVisualizer_StartCancel(t *testing.T) {
	blocking := driver.PacerFunc(func(ctx context.Context, _ time.Duration) error {
		<-ctx.Done()
		return ctx.Err()
	})
	v := newVisualizer(cartography.WithPacer(blocking))

	require.NoError(t, v.Start(context.Background(), domain.RunRequest{Query: "q", Steps: 5}))
	assert.ErrorIs(t, v.Start(context.Background(), domain.RunRequest{Query: "q"}), domain.ErrAlreadyRunning)
	assert.ErrorIs(t, v.Reset(), domain.ErrAlreadyRunning)

	require.NoError(t, v.Cancel())
	res, err := v.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Status)
}

func TestRunner_Text(t *testing.T) {
	var buf bytes.Buffer
	v := newVisualizer()

	res, err := cartography.NewRunner(&buf).Run(context.Background(), v, domain.RunRequest{Query: "q", Steps: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "  0  [input] "+domain.RootLabelPrefix+"q", lines[0])
	assert.Equal(t, "completed (2 steps)", lines[3])
}

func TestRunner_JSON(t *testing.T) {
	var buf bytes.Buffer
	v := newVisualizer()
	r := &cartography.Runner{Output: &buf, JSON: true}

	_, err := r.Run(context.Background(), v, domain.RunRequest{Query: "q", Steps: 1})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var step domain.StepEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &step))
	assert.Equal(t, domain.EventStepAdded, step.Type)
	require.NotNil(t, step.Edge)
	assert.Equal(t, step.Node.ID, step.Edge.Target)

	var res domain.RunResult
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &res))
	assert.Equal(t, domain.StatusCompleted, res.Status)
}

func TestRunner_ContextCancels(t *testing.T) {
	var buf bytes.Buffer
	entered := make(chan struct{}, 1)
	pacer := driver.PacerFunc(func(ctx context.Context, _ time.Duration) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})
	v := newVisualizer(cartography.WithPacer(pacer))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-entered
		cancel()
	}()

	res, err := cartography.NewRunner(&buf).Run(ctx, v, domain.RunRequest{Query: "q", Steps: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Status)
}

func TestRunner_FailedSource(t *testing.T) {
	var buf bytes.Buffer
	failing := ports.StepSourceFunc(func(ctx context.Context, query string, desired int) iter.Seq2[domain.Step, error] {
		return func(yield func(domain.Step, error) bool) {
			yield(domain.Step{}, domain.ErrSourceUnavailable)
		}
	})
	v := cartography.New(failing, cartography.WithPacer(driver.NoopPacer{}))

	res, err := cartography.NewRunner(&buf).Run(context.Background(), v, domain.RunRequest{Query: "q", Steps: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Contains(t, buf.String(), "[error] Error:")
	assert.Contains(t, buf.String(), "error: ")
}
