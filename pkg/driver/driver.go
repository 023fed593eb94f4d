package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/graph"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/google/uuid"
)

// Driver runs the step animation for a single graph session.
type Driver struct {
	store        *graph.Session
	source       ports.StepSource
	pacer        Pacer
	logger       *slog.Logger
	hooks        domain.RunHooks
	sessionID    string
	defaultSteps int
	chaining     domain.ChainPolicy
	newRunID     func() string

	mu     sync.Mutex
	result domain.RunResult
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Driver that owns store for the duration of its runs.
func New(store *graph.Session, source ports.StepSource, opts ...Option) *Driver {
	d := &Driver{
		store:        store,
		source:       source,
		pacer:        TimerPacer{},
		logger:       logging.NewNop(),
		defaultSteps: DefaultSteps,
		chaining:     domain.ChainLinear,
		newRunID:     uuid.NewString,
		result:       domain.RunResult{Status: domain.StatusIdle},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Store returns the graph session the driver writes to.
func (d *Driver) Store() *graph.Session {
	return d.store
}

// Start begins a run in the background and returns once the root node exists.
// The run outlives ctx cancellation; use Cancel to stop it.
func (d *Driver) Start(ctx context.Context, req domain.RunRequest) error {
	runCtx, run, err := d.begin(context.WithoutCancel(ctx), req)
	if err != nil {
		return err
	}
	go d.execute(runCtx, run)
	return nil
}

// Run executes a run synchronously. Cancelling ctx cancels the run.
// The returned error reports a rejected request; the outcome of an accepted
// run, failures included, is carried by the result.
func (d *Driver) Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error) {
	runCtx, run, err := d.begin(ctx, req)
	if err != nil {
		return domain.RunResult{}, err
	}
	d.execute(runCtx, run)
	return d.Result(), nil
}

// Cancel requests cancellation of the active run.
func (d *Driver) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.result.Status != domain.StatusRunning {
		return domain.ErrNotRunning
	}
	d.cancel()
	return nil
}

// Wait blocks until the active run reaches a terminal state.
// It returns immediately when no run is active.
func (d *Driver) Wait(ctx context.Context) (domain.RunResult, error) {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return d.Result(), ctx.Err()
		}
	}
	return d.Result(), nil
}

// Reset clears the graph and returns the driver to Idle.
func (d *Driver) Reset() error {
	d.mu.Lock()
	if d.result.Status == domain.StatusRunning {
		d.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	d.store.Reset()
	d.result = domain.RunResult{Status: domain.StatusIdle}
	ev := d.runEvent(domain.EventReset, d.result)
	d.mu.Unlock()

	if d.hooks.OnReset != nil {
		d.hooks.OnReset(context.Background(), ev)
	}
	return nil
}

// Status returns the current state.
func (d *Driver) Status() domain.RunStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result.Status
}

// Result returns a summary of the latest run.
func (d *Driver) Result() domain.RunResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

type activeRun struct {
	req    domain.RunRequest
	result domain.RunResult
	last   string
	done   chan struct{}
}

func (d *Driver) begin(ctx context.Context, req domain.RunRequest) (context.Context, *activeRun, error) {
	if req.Steps == 0 {
		req.Steps = d.defaultSteps
	}
	if req.Steps < 0 || req.Steps > MaxSteps {
		return nil, nil, fmt.Errorf("%w: steps must be between 0 and %d, got %d", domain.ErrInvalidRequest, MaxSteps, req.Steps)
	}
	if req.Delay < 0 {
		return nil, nil, fmt.Errorf("%w: negative delay %s", domain.ErrInvalidRequest, req.Delay)
	}
	if req.Chaining == "" {
		req.Chaining = d.chaining
	}
	policy, ok := domain.ParseChainPolicy(string(req.Chaining))
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown chaining policy %q", domain.ErrInvalidRequest, req.Chaining)
	}
	req.Chaining = policy

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.result.Status == domain.StatusRunning {
		return nil, nil, domain.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &activeRun{
		req: req,
		result: domain.RunResult{
			RunID:     d.newRunID(),
			Query:     req.Query,
			Status:    domain.StatusRunning,
			StartedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	d.cancel = cancel
	d.done = run.done
	d.result = run.result

	d.store.Reset()
	run.last = d.store.MustAddNode(domain.RootLabelPrefix+req.Query, domain.KindInput, req.Query, nil, "")

	return runCtx, run, nil
}

func (d *Driver) execute(ctx context.Context, run *activeRun) {
	logger := d.logger.With("run_id", run.result.RunID, "session_id", d.sessionID)
	logger.Info("run started", "query", run.req.Query, "steps", run.req.Steps, "chaining", run.req.Chaining)

	if d.hooks.OnRunStart != nil {
		d.hooks.OnRunStart(ctx, d.runEvent(domain.EventRunStarted, run.result))
	}
	d.emitStep(ctx, run, run.last)

	status, failure := d.consume(ctx, run, logger)
	if status == domain.StatusFailed {
		d.appendError(ctx, run, failure)
	}
	d.finish(ctx, run, status, failure, logger)
}

func (d *Driver) consume(ctx context.Context, run *activeRun, logger *slog.Logger) (domain.RunStatus, error) {
	for step, err := range d.source.GenerateSteps(ctx, run.req.Query, run.req.Steps) {
		if ctx.Err() != nil {
			return domain.StatusCancelled, ctx.Err()
		}
		if err != nil {
			return domain.StatusFailed, err
		}
		if run.result.Applied >= run.req.Steps {
			logger.Warn("source produced more steps than requested, ignoring the rest", "requested", run.req.Steps)
			break
		}
		if err := step.Validate(); err != nil {
			return domain.StatusFailed, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		if err := d.pacer.Pause(ctx, run.req.Delay); err != nil {
			return domain.StatusCancelled, err
		}

		parent := d.parentFor(run, step)
		id := d.store.MustAddNode(step.Label, step.Kind, step.Description, step.Confidence, parent)
		run.last = id
		run.result.Applied++

		d.mu.Lock()
		d.result.Applied = run.result.Applied
		d.mu.Unlock()

		logger.Debug("step added", "node_id", id, "kind", step.Kind, "parent", parent)
		d.emitStep(ctx, run, id)
	}
	if ctx.Err() != nil {
		return domain.StatusCancelled, ctx.Err()
	}
	return domain.StatusCompleted, nil
}

func (d *Driver) parentFor(run *activeRun, step domain.Step) string {
	if run.req.Chaining != domain.ChainBranchByKind {
		return run.last
	}
	if step.Kind != domain.KindRetrieval && step.Kind != domain.KindData {
		return run.last
	}
	if id, ok := d.store.LastOfKind(domain.KindReasoning); ok {
		return id
	}
	return run.last
}

func (d *Driver) appendError(ctx context.Context, run *activeRun, failure error) {
	label := "Error: " + failure.Error()
	id := d.store.MustAddNode(label, domain.KindError, failure.Error(), nil, run.last)
	run.last = id
	d.emitStep(ctx, run, id)
}

func (d *Driver) finish(ctx context.Context, run *activeRun, status domain.RunStatus, failure error, logger *slog.Logger) {
	d.mu.Lock()
	d.result.Status = status
	d.result.FinishedAt = time.Now()
	if failure != nil && status == domain.StatusFailed {
		d.result.Err = failure.Error()
	}
	result := d.result
	d.cancel()
	d.mu.Unlock()

	switch status {
	case domain.StatusFailed:
		logger.Error("run failed", "applied", result.Applied, "error", failure)
	case domain.StatusCancelled:
		logger.Info("run cancelled", "applied", result.Applied)
	default:
		logger.Info("run completed", "applied", result.Applied, "duration", result.Duration())
	}

	if d.hooks.OnRunFinish != nil {
		d.hooks.OnRunFinish(context.WithoutCancel(ctx), d.runEvent(domain.EventRunFinished, result))
	}
	close(run.done)
}

func (d *Driver) emitStep(ctx context.Context, run *activeRun, id string) {
	if d.hooks.OnStepAdded == nil {
		return
	}
	node, ok := d.store.Node(id)
	if !ok {
		return
	}
	ev := &domain.StepEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventStepAdded,
			SessionID: d.sessionID,
			RunID:     run.result.RunID,
		},
		Node:  node,
		Entry: domain.LogEntry{StepIndex: node.Seq, Kind: node.Kind, Label: node.Label},
	}
	if edge, ok := d.store.EdgeInto(id); ok {
		ev.Edge = &edge
	}
	d.hooks.OnStepAdded(context.WithoutCancel(ctx), ev)
}

func (d *Driver) runEvent(typ domain.EventType, result domain.RunResult) *domain.RunEvent {
	return &domain.RunEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      typ,
			SessionID: d.sessionID,
			RunID:     result.RunID,
		},
		Status: result.Status,
		Result: result,
	}
}
