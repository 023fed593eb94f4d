package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
)

// StreamManager fans graph diffs out to SSE subscribers, per session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // SessionID -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for a session. The returned function
// unsubscribes and is safe to call after Close.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 64)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, live := subs[ch]; live {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions for a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast sends msg to every subscriber of the session.
// Slow subscribers miss messages instead of blocking the driver.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Close ends every subscription of a session.
func (sm *StreamManager) Close(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for ch := range sm.subscribers[sessionID] {
		close(ch)
	}
	delete(sm.subscribers, sessionID)
}

// BroadcastDiff encodes and broadcasts a diff. Nil diffs are ignored.
func (sm *StreamManager) BroadcastDiff(diff *domain.GraphDiff) {
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("SSE: failed to encode diff", "session_id", diff.SessionID, "err", err)
		return
	}
	sm.Broadcast(diff.SessionID, string(data))
}

// Hooks returns driver hooks that publish every graph change as a diff.
func (sm *StreamManager) Hooks() domain.RunHooks {
	return domain.RunHooks{
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			sm.BroadcastDiff((*domain.GraphDiff)(nil).WithStatus(e.SessionID, e.Status))
		},
		OnStepAdded: func(_ context.Context, e *domain.StepEvent) {
			diff := &domain.GraphDiff{
				SessionID: e.SessionID,
				Reset:     e.Node.Seq == 0,
				Nodes:     []domain.Node{e.Node},
			}
			if e.Edge != nil {
				diff.Edges = []domain.Edge{*e.Edge}
			}
			sm.BroadcastDiff(diff)
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			sm.BroadcastDiff((*domain.GraphDiff)(nil).WithStatus(e.SessionID, e.Status))
		},
		OnReset: func(_ context.Context, e *domain.RunEvent) {
			diff := &domain.GraphDiff{SessionID: e.SessionID, Reset: true}
			sm.BroadcastDiff(diff.WithStatus(e.SessionID, e.Status))
		},
	}
}

// replayFilter drops queued diffs that only repeat nodes already present in
// the snapshot sent to a new subscriber. Steps added between Subscribe and the
// snapshot read would otherwise reach the client twice.
type replayFilter struct {
	known map[string]struct{}
}

func newReplayFilter(snap domain.Snapshot) *replayFilter {
	known := make(map[string]struct{}, len(snap.Nodes))
	for _, n := range snap.Nodes {
		known[n.ID] = struct{}{}
	}
	return &replayFilter{known: known}
}

// Skip reports whether msg is already covered by the snapshot.
// Once a diff brings anything new the filter switches off, since later
// messages on the same channel can only be newer.
func (f *replayFilter) Skip(msg string) bool {
	if f.known == nil {
		return false
	}
	var diff domain.GraphDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return false
	}
	if len(diff.Nodes) == 0 {
		if diff.Reset {
			f.known = nil
		}
		return false
	}
	for _, n := range diff.Nodes {
		if _, ok := f.known[n.ID]; !ok {
			f.known = nil
			return false
		}
	}
	return true
}
