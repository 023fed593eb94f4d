package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractRecord(runID string, startedAt time.Time) *domain.RunRecord {
	return &domain.RunRecord{
		SessionID: "contract-session",
		RunID:     runID,
		Query:     "What is consciousness?",
		Status:    domain.StatusCompleted,
		Snapshot: domain.Snapshot{
			Nodes: []domain.Node{
				{ID: runID + "-0", Label: "Query: What is consciousness?", Kind: domain.KindInput, Confidence: 1},
				{ID: runID + "-1", Label: "A", Kind: domain.KindReasoning, Confidence: 0.9, Seq: 1, GroupIndex: 1},
			},
			Edges: []domain.Edge{{Source: runID + "-0", Target: runID + "-1"}},
		},
		Log: []domain.LogEntry{
			{StepIndex: 0, Kind: domain.KindInput, Label: "Query: What is consciousness?"},
			{StepIndex: 1, Kind: domain.KindReasoning, Label: "A"},
		},
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Second),
	}
}

// RunRunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		record := contractRecord(runID, base)

		err := store.Save(ctx, record)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, record.Query, loaded.Query)
		assert.Equal(t, record.Status, loaded.Status)
		assert.Equal(t, record.Snapshot, loaded.Snapshot)
		assert.Equal(t, record.Log, loaded.Log)
		assert.True(t, record.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.Snapshot.Nodes[0].Label = "mutated"

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Snapshot.Nodes[0].Label)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, contractRecord(runID, base))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, contractRecord(id2, base.Add(time.Minute))))
		require.NoError(t, store.Save(ctx, contractRecord(id1, base)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)

		pos := map[string]int{}
		for i, id := range runs {
			pos[id] = i
		}
		assert.Less(t, pos[id1], pos[id2], "List is ordered by start time")
	})
}
