package graph_test

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/graph"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertConsistent(t *testing.T, s *graph.Session) {
	t.Helper()
	snap := s.Snapshot()
	log := s.LogEntries()

	ids := make(map[string]int, len(snap.Nodes))
	for i, n := range snap.Nodes {
		ids[n.ID] = i
		assert.Equal(t, i, n.Seq, "creation order must match position")
		assert.Equal(t, i%domain.PaletteSize, n.GroupIndex)
	}
	require.Len(t, log, len(snap.Nodes), "one log entry per node")
	for i, e := range log {
		assert.Equal(t, i, e.StepIndex)
		assert.Equal(t, snap.Nodes[i].Kind, e.Kind)
		assert.Equal(t, snap.Nodes[i].Label, e.Label)
	}
	for _, e := range snap.Edges {
		src, ok := ids[e.Source]
		require.True(t, ok, "edge source %s must exist", e.Source)
		dst, ok := ids[e.Target]
		require.True(t, ok, "edge target %s must exist", e.Target)
		assert.Less(t, src, dst, "edges always point forward in creation order")
	}
}

func TestSession_AddNode_Chain(t *testing.T) {
	s := graph.New()

	root, err := s.AddNode("Query: What is consciousness?", domain.KindInput, "What is consciousness?", nil, "")
	require.NoError(t, err)
	a, err := s.AddNode("A", domain.KindReasoning, "desc A", domain.Confidence(0.9), root)
	require.NoError(t, err)
	b, err := s.AddNode("B", domain.KindRetrieval, "desc B", domain.Confidence(0.8), a)
	require.NoError(t, err)

	_, err = uuid.Parse(root)
	assert.NoError(t, err, "default ids are UUIDs")

	snap := s.Snapshot()
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, []domain.Edge{{Source: root, Target: a}, {Source: a, Target: b}}, snap.Edges)
	assert.Equal(t, 1.0, snap.Nodes[0].Confidence, "missing confidence defaults to 1")
	assert.Equal(t, 0.9, snap.Nodes[1].Confidence)
	assert.Equal(t, b, s.LastID())
	assertConsistent(t, s)
}

func TestSession_AddNode_InvalidKind(t *testing.T) {
	s := graph.New()
	_, err := s.AddNode("x", "thought", "", nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
	assert.Equal(t, 0, s.Len(), "failed adds leave no trace")
	assert.Empty(t, s.LogEntries())
}

func TestSession_AddNode_DanglingParent(t *testing.T) {
	s := graph.New()
	_, err := s.AddNode("root", domain.KindInput, "", nil, "")
	require.NoError(t, err)

	_, err = s.AddNode("orphan", domain.KindReasoning, "", nil, "missing")
	assert.ErrorIs(t, err, domain.ErrDanglingReference)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Snapshot().Edges)
	assertConsistent(t, s)
}

func TestSession_MustAddNode_Panics(t *testing.T) {
	s := graph.New()
	assert.Panics(t, func() {
		s.MustAddNode("x", domain.KindReasoning, "", nil, "nope")
	})
	assert.NotPanics(t, func() {
		s.MustAddNode("x", domain.KindReasoning, "", nil, "")
	})
}

func TestSession_LabelTruncation(t *testing.T) {
	s := graph.New()
	long := "Step 1: Analyzing the problem: 'What is consciousness?' - step 1"
	id, err := s.AddNode(long, domain.KindReasoning, long, nil, "")
	require.NoError(t, err)

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, long[:domain.MaxLabelLength]+"...", n.Label)
	assert.Equal(t, long, n.Description, "descriptions are never truncated")
	assert.Equal(t, n.Label, s.LogEntries()[0].Label)
}

// Random sequences of adds (some valid, some not) must keep every invariant after each mutation.
func TestSession_Invariants_RandomSequences(t *testing.T) {
	kinds := domain.Kinds()
	for seed := uint64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*31))
			s := graph.New(graph.WithIDGenerator(graph.Sequential))
			var ids []string

			for i := 0; i < 60; i++ {
				parent := ""
				switch r := rng.IntN(10); {
				case r == 0:
					parent = "ghost"
				case len(ids) > 0 && r > 2:
					parent = ids[rng.IntN(len(ids))]
				}
				kind := kinds[rng.IntN(len(kinds))]
				if rng.IntN(15) == 0 {
					kind = "bogus"
				}

				before := s.Len()
				id, err := s.AddNode(fmt.Sprintf("n%d", i), kind, "", nil, parent)
				if err != nil {
					assert.Equal(t, before, s.Len())
				} else {
					ids = append(ids, id)
				}
				assertConsistent(t, s)

				if rng.IntN(40) == 0 {
					s.Reset()
					ids = nil
					assertConsistent(t, s)
				}
			}
		})
	}
}

func TestSession_Reset(t *testing.T) {
	s := graph.New(graph.WithIDGenerator(graph.Sequential))
	root := s.MustAddNode("root", domain.KindInput, "", nil, "")
	s.MustAddNode("a", domain.KindReasoning, "", nil, root)
	assert.Equal(t, "0-0", root)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Snapshot().Edges)
	assert.Empty(t, s.LogEntries())
	assert.Equal(t, "", s.LastID())
	assert.False(t, s.Has(root))
	assert.Equal(t, 1, s.Epoch())

	// A fresh session and a reset one are structurally identical apart from ids.
	fresh := graph.New(graph.WithIDGenerator(graph.Sequential))
	for _, g := range []*graph.Session{s, fresh} {
		r := g.MustAddNode("root", domain.KindInput, "", nil, "")
		g.MustAddNode("a", domain.KindReasoning, "", nil, r)
	}
	strip := func(snap domain.Snapshot) domain.Snapshot {
		for i := range snap.Nodes {
			snap.Nodes[i].ID = ""
		}
		for i := range snap.Edges {
			snap.Edges[i] = domain.Edge{}
		}
		return snap
	}
	assert.Equal(t, strip(fresh.Snapshot()), strip(s.Snapshot()))
	assert.Equal(t, fresh.LogEntries(), s.LogEntries())

	newRoot := s.Snapshot().Nodes[0].ID
	assert.Equal(t, "1-0", newRoot, "numbering restarts in a new epoch")
	assert.NotEqual(t, root, newRoot)
}

func TestSession_SnapshotIsDefensiveCopy(t *testing.T) {
	s := graph.New()
	root := s.MustAddNode("root", domain.KindInput, "", nil, "")
	s.MustAddNode("a", domain.KindReasoning, "", nil, root)

	first := s.Snapshot()
	second := s.Snapshot()
	assert.Equal(t, first, second, "snapshot is idempotent without mutation")

	first.Nodes[0].Label = "mutated"
	first.Edges[0].Source = "elsewhere"
	log := s.LogEntries()
	log[0].Label = "mutated"

	assert.Equal(t, second, s.Snapshot())
	assert.Equal(t, "root", s.LogEntries()[0].Label)
}

func TestSession_LastOfKind(t *testing.T) {
	s := graph.New()
	root := s.MustAddNode("root", domain.KindInput, "", nil, "")
	r1 := s.MustAddNode("r1", domain.KindReasoning, "", nil, root)
	s.MustAddNode("d", domain.KindData, "", nil, r1)

	id, ok := s.LastOfKind(domain.KindReasoning)
	assert.True(t, ok)
	assert.Equal(t, r1, id)

	_, ok = s.LastOfKind(domain.KindDecision)
	assert.False(t, ok)
}

func TestSession_ConcurrentReaders(t *testing.T) {
	s := graph.New()
	last := s.MustAddNode("root", domain.KindInput, "", nil, "")

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := s.Snapshot()
				assert.LessOrEqual(t, len(snap.Edges), len(snap.Nodes))
				_ = s.LogEntries()
			}
		}()
	}

	for i := 0; i < 200; i++ {
		last = s.MustAddNode("n", domain.KindReasoning, "", nil, last)
	}
	close(done)
	wg.Wait()
	assertConsistent(t, s)
}

func TestSession_EdgeInto(t *testing.T) {
	s := graph.New(graph.WithIDGenerator(graph.Sequential))
	root := s.MustAddNode("root", domain.KindInput, "", nil, "")
	child := s.MustAddNode("child", domain.KindReasoning, "", nil, root)

	_, ok := s.EdgeInto(root)
	assert.False(t, ok, "root has no incoming edge")

	edge, ok := s.EdgeInto(child)
	require.True(t, ok)
	assert.Equal(t, domain.Edge{Source: root, Target: child}, edge)
}
