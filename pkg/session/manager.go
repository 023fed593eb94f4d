package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/driver"
	"github.com/aretw0/cartography/pkg/graph"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/google/uuid"
)

// ErrSessionLimit is returned by Create when the manager is full.
var ErrSessionLimit = errors.New("session limit reached")

// Session is one live visualization: a graph store and the driver that animates it.
type Session struct {
	ID        string
	CreatedAt time.Time
	Graph     *graph.Session
	Driver    *driver.Driver
}

// Info summarizes a session for listings.
type Info struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Status    domain.RunStatus `json:"status"`
	Nodes     int              `json:"nodes"`
	Result    domain.RunResult `json:"result"`
}

// Info returns the session summary. Status is taken from the same read as Result.
func (s *Session) Info() Info {
	result := s.Driver.Result()
	return Info{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Status:    result.Status,
		Nodes:     s.Graph.Len(),
		Result:    result,
	}
}

// Manager creates, looks up and removes sessions.
type Manager struct {
	source ports.StepSource

	mu       sync.RWMutex
	sessions map[string]*Session

	archive      ports.RunStore
	hooks        domain.RunHooks
	pacer        driver.Pacer
	nodeIDs      graph.IDGenerator
	chaining     domain.ChainPolicy
	defaultSteps int
	maxSessions  int
	logger       *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithArchive saves every finished run into store.
func WithArchive(store ports.RunStore) Option {
	return func(m *Manager) {
		m.archive = store
	}
}

// WithHooks registers hooks on every session driver.
func WithHooks(hooks domain.RunHooks) Option {
	return func(m *Manager) {
		m.hooks = m.hooks.Merge(hooks)
	}
}

// WithPacer sets the pacer shared by all drivers. Pacers must be stateless.
func WithPacer(p driver.Pacer) Option {
	return func(m *Manager) {
		m.pacer = p
	}
}

// WithNodeIDs sets the node id generator of new sessions.
func WithNodeIDs(gen graph.IDGenerator) Option {
	return func(m *Manager) {
		m.nodeIDs = gen
	}
}

// WithChaining sets the default chaining policy of new sessions.
func WithChaining(policy domain.ChainPolicy) Option {
	return func(m *Manager) {
		m.chaining = policy
	}
}

// WithDefaultSteps sets the step count used when a run request leaves it at zero.
func WithDefaultSteps(n int) Option {
	return func(m *Manager) {
		m.defaultSteps = n
	}
}

// WithMaxSessions caps the number of live sessions. Zero means unlimited.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager whose sessions pull steps from source.
func NewManager(source ports.StepSource, opts ...Option) *Manager {
	m := &Manager{
		source:       source,
		sessions:     make(map[string]*Session),
		pacer:        driver.TimerPacer{},
		nodeIDs:      graph.UUIDs,
		chaining:     domain.ChainLinear,
		defaultSteps: driver.DefaultSteps,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Source returns the step source shared by all sessions.
func (m *Manager) Source() ports.StepSource {
	return m.source
}

// Create starts a new idle session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	return m.CreateWithID(ctx, uuid.NewString())
}

// CreateWithID starts a new idle session with a caller-chosen id.
// It returns the existing session when id is already live.
func (m *Manager) CreateWithID(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("session id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("%w (%d)", ErrSessionLimit, m.maxSessions)
	}

	logger := m.logger.With("session_id", id)
	store := graph.New(graph.WithIDGenerator(m.nodeIDs), graph.WithLogger(logger))
	s := &Session{ID: id, CreatedAt: time.Now(), Graph: store}

	opts := []driver.Option{
		driver.WithPacer(m.pacer),
		driver.WithLogger(logger),
		driver.WithSessionID(id),
		driver.WithChaining(m.chaining),
		driver.WithDefaultSteps(m.defaultSteps),
		driver.WithHooks(m.hooks),
	}
	if m.archive != nil {
		opts = append(opts, driver.WithHooks(domain.RunHooks{OnRunFinish: m.archiveHook(s)}))
	}
	s.Driver = driver.New(store, m.source, opts...)

	m.sessions[id] = s
	logger.Info("session created")
	return s, nil
}

func (m *Manager) archiveHook(s *Session) func(context.Context, *domain.RunEvent) {
	return func(ctx context.Context, ev *domain.RunEvent) {
		record := domain.NewRunRecord(s.ID, ev.Result, s.Graph.Snapshot(), s.Graph.LogEntries())
		if err := m.archive.Save(ctx, record); err != nil {
			m.logger.Error("failed to archive run", "session_id", s.ID, "run_id", ev.RunID, "err", err)
		}
	}
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns all live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		return 1
	})

	infos := make([]Info, len(sessions))
	for i, s := range sessions {
		infos[i] = s.Info()
	}
	return infos
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start begins a run on a session.
func (m *Manager) Start(ctx context.Context, id string, req domain.RunRequest) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Driver.Start(ctx, req)
}

// Cancel stops the active run of a session.
func (m *Manager) Cancel(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Driver.Cancel()
}

// Reset clears an idle session.
func (m *Manager) Reset(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Driver.Reset()
}

// Delete cancels any active run and removes the session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return m.stop(ctx, s)
}

// Shutdown cancels every active run and waits for the drivers to settle.
// Sessions stay registered so their final graphs can still be read.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		if err := m.stop(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) stop(ctx context.Context, s *Session) error {
	if err := s.Driver.Cancel(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		return err
	}
	if _, err := s.Driver.Wait(ctx); err != nil {
		return fmt.Errorf("session %s did not stop: %w", s.ID, err)
	}
	return nil
}
