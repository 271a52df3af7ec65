// Package notify delivers user-facing notifications: denied moves,
// mutation outcomes, reconciliations and rollbacks.
//
// A Bus dispatches each notification to its registered handlers in
// priority order. Handler errors are logged and never stop the chain.
package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Type identifies a notification.
type Type string

const (
	TypeMoveDenied         Type = "move_denied"
	TypeMutationSucceeded  Type = "mutation_succeeded"
	TypeMutationFailed     Type = "mutation_failed"
	TypeReconciled         Type = "reconciled"
	TypeReconcileDiscarded Type = "reconcile_discarded"
	TypeRolledBack         Type = "rolled_back"
)

// AllTypes lists every notification type.
var AllTypes = []Type{
	TypeMoveDenied, TypeMutationSucceeded, TypeMutationFailed,
	TypeReconciled, TypeReconcileDiscarded, TypeRolledBack,
}

// Level is the severity shown to the user.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one toast.
type Notification struct {
	Type          Type       `json:"type"`
	Level         Level      `json:"level"`
	Title         string     `json:"title"`
	Message       string     `json:"message,omitempty"`
	Op            string     `json:"op,omitempty"`
	Kind          types.Kind `json:"kind,omitempty"`
	EntityID      types.ID   `json:"entityId,omitzero"`
	TempID        types.ID   `json:"tempId,omitzero"`
	CorrelationID string     `json:"correlationId,omitempty"`
	Err           error      `json:"-"`
	Time          time.Time  `json:"time"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(ctx context.Context, n *Notification)
}

// Handler processes notifications on the bus.
type Handler interface {
	ID() string
	// Handles returns the types this handler receives; nil means all.
	Handles() []Type
	// Priority orders handlers; lower runs first.
	Priority() int
	Handle(ctx context.Context, n *Notification) error
}

// Bus fans notifications out to handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      *zap.Logger
	now      func() time.Time
}

// NewBus returns an empty bus. Handler failures are logged to log.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log, now: time.Now}
}

// Register adds a handler. Registration order does not matter.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Handlers returns the registered handlers.
func (b *Bus) Handlers() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.handlers)
}

// Notify implements Notifier.
func (b *Bus) Notify(ctx context.Context, n *Notification) {
	if n == nil {
		return
	}
	if n.Time.IsZero() {
		n.Time = b.now()
	}
	b.mu.RLock()
	matching := b.matching(n.Type)
	b.mu.RUnlock()

	for _, h := range matching {
		if err := h.Handle(ctx, n); err != nil {
			b.log.Warn("notification handler failed",
				zap.String("handler", h.ID()),
				zap.String("type", string(n.Type)),
				zap.Error(err))
		}
	}
}

func (b *Bus) matching(t Type) []Handler {
	var out []Handler
	for _, h := range b.handlers {
		if handled := h.Handles(); handled == nil || slices.Contains(handled, t) {
			out = append(out, h)
		}
	}
	slices.SortStableFunc(out, func(a, b Handler) int { return a.Priority() - b.Priority() })
	return out
}

// Summary renders n as a single line.
func (n *Notification) Summary() string {
	if n.Message == "" {
		return n.Title
	}
	return fmt.Sprintf("%s: %s", n.Title, n.Message)
}
