package reconcile

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

// Operation is a remote call in flight.
type Operation struct {
	CorrelationID string     `json:"correlationId"`
	Op            string     `json:"op"`
	Kind          types.Kind `json:"kind"`
	EntityID      types.ID   `json:"entityId"`
	Started       time.Time  `json:"started"`
}

// Pending returns the operations still waiting for the store, oldest first.
func (m *Manager) Pending() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Operation, 0, len(m.ops))
	for _, op := range m.ops {
		out = append(out, *op)
	}
	slices.SortFunc(out, func(a, b Operation) int { return cmp.Compare(a.Started.UnixNano(), b.Started.UnixNano()) })
	return out
}

// dispatch registers op and runs call in the background on a context
// detached from any caller. complete runs under m.mu with the final error
// and returns the notifications to emit. dispatch must be called with m.mu
// held.
func (m *Manager) dispatch(opName string, kind types.Kind, id types.ID, call func(context.Context) error, complete func(op *Operation, err error) []*notify.Notification) *Operation {
	op := &Operation{
		CorrelationID: uuid.NewString(),
		Op:            opName,
		Kind:          kind,
		EntityID:      id,
		Started:       m.now(),
	}
	m.ops[op.CorrelationID] = op
	m.metrics.started(op)
	m.log.Debug("dispatch",
		zap.String("op", opName),
		zap.String("kind", string(kind)),
		zap.Stringer("id", id),
		zap.String("correlation_id", op.CorrelationID))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
		err := m.retry(ctx, call)
		cancel()

		m.mu.Lock()
		delete(m.ops, op.CorrelationID)
		m.metrics.finished(op, err)
		notes := complete(op, err)
		m.mu.Unlock()
		m.emit(notes)
	}()
	return op
}

// retry runs call, retrying transient failures with exponential backoff.
func (m *Manager) retry(ctx context.Context, call func(context.Context) error) error {
	if m.cfg.RetryMaxElapsed <= 0 {
		return call(ctx)
	}
	bo := backoff.NewExponentialBackOff()
	if m.cfg.RetryInitialInterval > 0 {
		bo.InitialInterval = m.cfg.RetryInitialInterval
	}
	bo.MaxElapsedTime = m.cfg.RetryMaxElapsed
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !remote.IsTransient(err) {
			return backoff.Permanent(err)
		}
		m.log.Debug("transient remote failure, retrying", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(bo, ctx))
}

func (m *Manager) persistenceError(op *Operation, err error) *PersistenceError {
	pe := &PersistenceError{Op: op.Op, Kind: op.Kind, ID: op.EntityID, CorrelationID: op.CorrelationID, Err: err}
	m.log.Error("remote operation failed",
		zap.String("op", op.Op),
		zap.String("kind", string(op.Kind)),
		zap.Stringer("id", op.EntityID),
		zap.String("correlation_id", op.CorrelationID),
		zap.Error(err))
	return pe
}
