package domain

import (
	"context"
	"time"
)

// EventType defines the category of a run event.
type EventType string

const (
	EventRunStarted  EventType = "run_started"
	EventStepAdded   EventType = "step_added"
	EventRunFinished EventType = "run_finished"
	EventReset       EventType = "reset"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
}

// StepEvent is emitted after a node, its edge and its log entry were appended.
type StepEvent struct {
	EventBase
	Node  Node     `json:"node"`
	Edge  *Edge    `json:"edge,omitempty"`
	Entry LogEntry `json:"entry"`
}

// RunEvent is emitted on run start and on every terminal transition.
type RunEvent struct {
	EventBase
	Status RunStatus `json:"status"`
	Result RunResult `json:"result"`
}

// RunHooks defines callbacks for driver observability.
// Hooks run on the driver goroutine and must not block.
type RunHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnStepAdded func(context.Context, *StepEvent)
	OnRunFinish func(context.Context, *RunEvent)
	OnReset     func(context.Context, *RunEvent)
}

// Merge returns hooks that call h first and then other.
func (h RunHooks) Merge(other RunHooks) RunHooks {
	return RunHooks{
		OnRunStart:  chainRun(h.OnRunStart, other.OnRunStart),
		OnStepAdded: chainStep(h.OnStepAdded, other.OnStepAdded),
		OnRunFinish: chainRun(h.OnRunFinish, other.OnRunFinish),
		OnReset:     chainRun(h.OnReset, other.OnReset),
	}
}

func chainRun(a, b func(context.Context, *RunEvent)) func(context.Context, *RunEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *RunEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainStep(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *StepEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
