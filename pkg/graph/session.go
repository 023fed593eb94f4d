package graph

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/google/uuid"
)

// IDGenerator allocates node identifiers. It is called with the session lock held
// and receives the current reset epoch and the node's creation order.
type IDGenerator func(epoch, seq int) string

// UUIDs is the default generator. It ignores its arguments.
func UUIDs(int, int) string {
	return uuid.NewString()
}

// Sequential returns readable ids of the form "<epoch>-<seq>". Numbering restarts
// at zero after every reset while the epoch prefix keeps ids from colliding with
// those of earlier runs of the same session.
func Sequential(epoch, seq int) string {
	return fmt.Sprintf("%d-%d", epoch, seq)
}

// Session owns the canonical append-only graph of one visualization run.
// Readers may call Snapshot and LogEntries concurrently with the single writer.
type Session struct {
	mu sync.RWMutex

	nodes []domain.Node
	edges []domain.Edge
	log   []domain.LogEntry
	index map[string]int // node id -> position in nodes

	newID  IDGenerator
	epoch  int
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithIDGenerator replaces the default UUID generator.
// The generator must never return an id it returned before, across resets of the same session.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Session) {
		s.newID = gen
	}
}

// WithLogger configures a logger for store events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates an empty Session.
func New(opts ...Option) *Session {
	s := &Session{
		index:  make(map[string]int),
		newID:  UUIDs,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset clears nodes, edges and log entries and starts a new identity epoch.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = nil
	s.edges = nil
	s.log = nil
	s.index = make(map[string]int)
	s.epoch++
	s.logger.Debug("session reset", "epoch", s.epoch)
}

// AddNode appends a node, its parent edge (when parentID is set) and a log entry.
// The three are written under one lock, so no reader ever sees a partial step.
func (s *Session) AddNode(label string, kind domain.Kind, description string, confidence *float64, parentID string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != "" {
		if _, ok := s.index[parentID]; !ok {
			return "", fmt.Errorf("%w: parent %q", domain.ErrDanglingReference, parentID)
		}
	}

	seq := len(s.nodes)
	id := s.newID(s.epoch, seq)
	if _, dup := s.index[id]; dup || id == "" {
		return "", fmt.Errorf("id generator returned unusable id %q", id)
	}

	node := domain.Node{
		ID:          id,
		Label:       domain.TruncateLabel(label),
		Kind:        kind,
		Description: description,
		Confidence:  domain.ResolveConfidence(confidence),
		GroupIndex:  seq % domain.PaletteSize,
		Seq:         seq,
	}

	s.nodes = append(s.nodes, node)
	s.index[id] = seq
	if parentID != "" {
		s.edges = append(s.edges, domain.Edge{Source: parentID, Target: id})
	}
	s.log = append(s.log, domain.LogEntry{StepIndex: seq, Kind: kind, Label: node.Label})

	s.logger.Debug("node added", "node_id", id, "kind", kind, "seq", seq, "parent_id", parentID)
	return id, nil
}

// MustAddNode is AddNode for callers that already guarantee the kind and parent.
// It panics on invariant violations, which indicate a caller bug.
func (s *Session) MustAddNode(label string, kind domain.Kind, description string, confidence *float64, parentID string) string {
	id, err := s.AddNode(label, kind, description, confidence, parentID)
	if err != nil {
		panic(fmt.Sprintf("graph: %v", err))
	}
	return id
}

// Snapshot returns a copy of the current nodes and edges.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{
		Nodes: make([]domain.Node, len(s.nodes)),
		Edges: make([]domain.Edge, len(s.edges)),
	}
	copy(snap.Nodes, s.nodes)
	copy(snap.Edges, s.edges)
	return snap
}

// LogEntries returns a copy of the log in node creation order.
func (s *Session) LogEntries() []domain.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Node returns the node with the given id.
func (s *Session) Node(id string) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Node{}, false
	}
	return s.nodes[i], true
}

// Has reports whether a node with the given id exists.
func (s *Session) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Len returns the number of nodes.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// LastID returns the id of the most recently created node, or "" when empty.
func (s *Session) LastID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.nodes) == 0 {
		return ""
	}
	return s.nodes[len(s.nodes)-1].ID
}

// LastOfKind returns the id of the most recent node of the given kind.
func (s *Session) LastOfKind(kind domain.Kind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].Kind == kind {
			return s.nodes[i].ID, true
		}
	}
	return "", false
}

// Epoch returns the number of resets performed so far.
func (s *Session) Epoch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// EdgeInto returns the edge whose target is id. Every node except the root of
// a chain has at most one incoming edge.
func (s *Session) EdgeInto(id string) (domain.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.edges) - 1; i >= 0; i-- {
		if s.edges[i].Target == id {
			return s.edges[i], true
		}
	}
	return domain.Edge{}, false
}
