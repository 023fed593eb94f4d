package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/cartography/pkg/adapters/memory"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunRunStoreContract(t, memory.NewStore())
}

func TestMemoryStore_SaveIsolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	record := &domain.RunRecord{
		RunID: "r1",
		Log:   []domain.LogEntry{{StepIndex: 0, Kind: domain.KindInput, Label: "Query: q"}},
	}
	require.NoError(t, store.Save(ctx, record))

	record.Log[0].Label = "changed after save"

	loaded, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Query: q", loaded.Log[0].Label)
}
