// Package reconcile applies board mutations optimistically and reconciles
// them with the remote store.
//
// Every mutation lands in the local workspace first and returns at once.
// The matching remote call runs in the background as a pending operation
// keyed by a correlation ID. Creates receive temporary IDs that are swapped
// for authoritative ones when the store answers; work that needs an
// authoritative ID (a subtask under an unsaved card, an edit of an unsaved
// entity) is deferred until then. A failed call rolls back the local change
// it belonged to, unless rollback is disabled.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/deps"
	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/telemetry"
	"github.com/steveyegge/kanbeads/internal/transition"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/workspace"
)

// ErrNotFound is returned when a mutation names an entity the workspace
// does not hold.
var ErrNotFound = errors.New("entity not found")

// Config tunes remote dispatch.
type Config struct {
	// Timeout bounds each dispatched operation, retries included. Zero
	// means the default.
	Timeout time.Duration
	// RetryMaxElapsed bounds retries of transient failures; 0 disables them.
	RetryMaxElapsed      time.Duration
	RetryInitialInterval time.Duration
	// RollbackOnFailure undoes the local mutation when its remote call
	// fails. When false the local state is kept and only the error is
	// reported.
	RollbackOnFailure bool
	// LoadConcurrency caps parallel list calls during Load.
	LoadConcurrency int
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Timeout:              10 * time.Second,
		RetryMaxElapsed:      5 * time.Second,
		RetryInitialInterval: 100 * time.Millisecond,
		RollbackOnFailure:    true,
		LoadConcurrency:      8,
	}
}

// Manager owns the workspace and every conversation with the remote store.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	ws       *workspace.Workspace
	remote   *remote.Remote
	auth     *transition.Authorizer
	notifier notify.Notifier
	log      *zap.Logger
	cfg      Config
	ids      *types.TempIDGenerator
	now      func() time.Time
	meter    metric.Meter
	metrics  *metrics

	ops      map[string]*Operation
	deferred map[types.ID][]func(types.ID)
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sends notifications to n.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithAuthorizer sets the transition authorizer used by MoveCard.
func WithAuthorizer(a *transition.Authorizer) Option {
	return func(m *Manager) { m.auth = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMeter records manager metrics on meter instead of the global one.
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) { m.meter = meter }
}

// New returns a manager over an empty workspace.
func New(r *remote.Remote, opts ...Option) *Manager {
	m := &Manager{
		ws:       workspace.New(),
		remote:   r,
		cfg:      DefaultConfig(),
		ids:      types.NewTempIDGenerator(),
		now:      time.Now,
		ops:      make(map[string]*Operation),
		deferred: make(map[types.ID][]func(types.ID)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.notifier == nil {
		m.notifier = notify.NewBus(m.log)
	}
	if m.auth == nil {
		eval := deps.New(nil, deps.WithResolutionHook(func(e *deps.ResolutionError) {
			m.log.Warn("unresolved dependency", zap.Stringer("card", e.CardID), zap.Error(e))
		}))
		m.auth = transition.New(eval, "pt-BR")
	}
	if m.meter == nil {
		m.meter = telemetry.Meter("github.com/steveyegge/kanbeads/reconcile")
	}
	m.metrics = newMetrics(m.meter)
	if m.cfg.Timeout <= 0 {
		m.cfg.Timeout = DefaultConfig().Timeout
	}
	if m.cfg.LoadConcurrency <= 0 {
		m.cfg.LoadConcurrency = 1
	}
	return m
}

// Authorizer returns the transition authorizer.
func (m *Manager) Authorizer() *transition.Authorizer { return m.auth }

// Remote returns the repositories the manager writes to.
func (m *Manager) Remote() *remote.Remote { return m.remote }

// Wait blocks until every dispatched operation, and whatever it deferred,
// has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close waits for in-flight operations and closes the remote store.
func (m *Manager) Close() error {
	m.Wait()
	return m.remote.Close()
}

// nextTempID returns a temporary ID no entity carries.
func (m *Manager) nextTempID() types.ID {
	id := m.ids.Next()
	for m.ws.Contains(id) {
		id = m.ids.Next()
	}
	return id
}

// deferOn runs fn with the authoritative ID once tempID reconciles. Deferred
// work is dropped if the entity behind tempID is rolled back or deleted.
func (m *Manager) deferOn(tempID types.ID, fn func(types.ID)) {
	m.deferred[tempID] = append(m.deferred[tempID], fn)
	m.log.Debug("deferred until reconciled", zap.Stringer("temp_id", tempID))
}

func (m *Manager) dropDeferred(ids ...types.ID) {
	for _, id := range ids {
		delete(m.deferred, id)
	}
}

// runDeferred must be called with m.mu held.
func (m *Manager) runDeferred(tempID, realID types.ID) {
	fns := m.deferred[tempID]
	delete(m.deferred, tempID)
	for _, fn := range fns {
		fn(realID)
	}
}

// Deferred returns how many actions wait for a temporary ID to reconcile.
func (m *Manager) Deferred() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, fns := range m.deferred {
		n += len(fns)
	}
	return n
}

func (m *Manager) emit(notes []*notify.Notification) {
	for _, n := range notes {
		m.notifier.Notify(context.Background(), n)
	}
}
