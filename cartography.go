package cartography

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/driver"
	"github.com/aretw0/cartography/pkg/graph"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/aretw0/cartography/pkg/projector"
)

// Visualizer is the high-level entry point for the library: one graph, one
// driver and the projections over them.
type Visualizer struct {
	store  *graph.Session
	driver *driver.Driver

	pacer    driver.Pacer
	hooks    domain.RunHooks
	archive  ports.RunStore
	nodeIDs  graph.IDGenerator
	chaining domain.ChainPolicy
	logger   *slog.Logger
	id       string

	mu        sync.Mutex
	listeners map[int]func(*domain.StepEvent)
	nextID    int
}

// Option defines a functional option for configuring the Visualizer.
type Option func(*Visualizer)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Visualizer) {
		v.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.RunHooks) Option {
	return func(v *Visualizer) {
		v.hooks = v.hooks.Merge(hooks)
	}
}

// WithPacer replaces the real-time pacer, e.g. with driver.NoopPacer in tests.
func WithPacer(p driver.Pacer) Option {
	return func(v *Visualizer) {
		v.pacer = p
	}
}

// WithArchive saves every finished run into store.
func WithArchive(store ports.RunStore) Option {
	return func(v *Visualizer) {
		v.archive = store
	}
}

// WithNodeIDs sets the node id scheme.
func WithNodeIDs(gen graph.IDGenerator) Option {
	return func(v *Visualizer) {
		v.nodeIDs = gen
	}
}

// WithChaining sets the default chaining policy.
func WithChaining(policy domain.ChainPolicy) Option {
	return func(v *Visualizer) {
		v.chaining = policy
	}
}

// WithSessionID names the session in events and archived runs.
func WithSessionID(id string) Option {
	return func(v *Visualizer) {
		v.id = id
	}
}

// New creates a Visualizer that pulls steps from source.
func New(source ports.StepSource, opts ...Option) *Visualizer {
	v := &Visualizer{
		pacer:     driver.TimerPacer{},
		nodeIDs:   graph.UUIDs,
		chaining:  domain.ChainLinear,
		logger:    logging.NewNop(),
		id:        "local",
		listeners: make(map[int]func(*domain.StepEvent)),
	}
	for _, opt := range opts {
		opt(v)
	}

	v.store = graph.New(graph.WithIDGenerator(v.nodeIDs), graph.WithLogger(v.logger))
	hooks := v.hooks.Merge(domain.RunHooks{OnStepAdded: v.notify})
	if v.archive != nil {
		hooks = hooks.Merge(domain.RunHooks{OnRunFinish: v.archiveRun})
	}
	v.driver = driver.New(v.store, source,
		driver.WithPacer(v.pacer),
		driver.WithLogger(v.logger),
		driver.WithSessionID(v.id),
		driver.WithChaining(v.chaining),
		driver.WithHooks(hooks),
	)
	return v
}

// Start begins a run in the background.
func (v *Visualizer) Start(ctx context.Context, req domain.RunRequest) error {
	return v.driver.Start(ctx, req)
}

// Run starts a run and waits for it to finish.
func (v *Visualizer) Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error) {
	return v.driver.Run(ctx, req)
}

// Cancel stops the current run.
func (v *Visualizer) Cancel() error {
	return v.driver.Cancel()
}

// Wait blocks until the current run finishes or ctx is done.
func (v *Visualizer) Wait(ctx context.Context) (domain.RunResult, error) {
	return v.driver.Wait(ctx)
}

// Reset clears the graph. It fails while a run is in progress.
func (v *Visualizer) Reset() error {
	return v.driver.Reset()
}

// Status returns the driver state.
func (v *Visualizer) Status() domain.RunStatus {
	return v.driver.Status()
}

// Result returns the latest run summary.
func (v *Visualizer) Result() domain.RunResult {
	return v.driver.Result()
}

// Snapshot returns a copy of the graph.
func (v *Visualizer) Snapshot() domain.Snapshot {
	return v.store.Snapshot()
}

// Visual returns the renderer frame for the current graph.
func (v *Visualizer) Visual() projector.Visual {
	return projector.Project(v.store.Snapshot())
}

// Log returns the last n log entries, or all of them when n <= 0.
func (v *Visualizer) Log(n int) []domain.LogEntry {
	entries := v.store.LogEntries()
	if n <= 0 {
		return entries
	}
	return domain.TailLog(entries, n)
}

// Mermaid renders the graph as a Mermaid flowchart, highlighting the frontier
// while a run is in progress.
func (v *Visualizer) Mermaid() string {
	var overlay *projector.MermaidOverlay
	if v.driver.Status() == domain.StatusRunning {
		overlay = &projector.MermaidOverlay{CurrentNode: v.store.LastID()}
	}
	return projector.Mermaid(v.store.Snapshot(), overlay)
}

// OnStep registers fn for every appended node until the returned function is called.
func (v *Visualizer) OnStep(fn func(*domain.StepEvent)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.listeners, id)
	}
}

func (v *Visualizer) notify(_ context.Context, e *domain.StepEvent) {
	v.mu.Lock()
	fns := make([]func(*domain.StepEvent), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

func (v *Visualizer) archiveRun(ctx context.Context, e *domain.RunEvent) {
	record := domain.NewRunRecord(v.id, e.Result, v.store.Snapshot(), v.store.LogEntries())
	if err := v.archive.Save(ctx, record); err != nil {
		v.logger.Error("failed to archive run", "run_id", e.RunID, "err", err)
	}
}
