package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

// DeleteBoard removes a board with its columns, cards and subtasks.
func (m *Manager) DeleteBoard(id types.ID) error { return m.delete(types.KindBoard, id) }

// DeleteColumn removes a column with its cards and their subtasks.
func (m *Manager) DeleteColumn(id types.ID) error { return m.delete(types.KindColumn, id) }

// DeleteCard removes a card and its subtasks.
func (m *Manager) DeleteCard(id types.ID) error { return m.delete(types.KindCard, id) }

// DeleteSubtask removes a subtask.
func (m *Manager) DeleteSubtask(id types.ID) error { return m.delete(types.KindSubtask, id) }

func (m *Manager) delete(kind types.Kind, id types.ID) error {
	m.mu.Lock()
	notes, err := m.deleteLocked(kind, id)
	m.mu.Unlock()
	m.emit(notes)
	return err
}

// deleteLocked removes the entity locally and, when it is authoritative,
// deletes it remotely parent first and then its saved descendants one by
// one. Unsaved entities never reach the store; a create still in flight for
// one of them is discarded when it answers.
func (m *Manager) deleteLocked(kind types.Kind, id types.ID) ([]*notify.Notification, error) {
	rm, ok := m.removeLocal(kind, id)
	if !ok {
		return nil, fmt.Errorf("delete %s %s: %w", kind, id, ErrNotFound)
	}
	m.dropDeferred(rm.ids()...)

	if id.IsTemp() {
		return []*notify.Notification{localNote(kind, id, "delete", "discarded before it was saved")}, nil
	}

	var children []ref
	for _, r := range rm.refs[1:] {
		if !r.id.IsTemp() {
			children = append(children, r)
		}
	}

	m.dispatch("delete", kind, id,
		func(ctx context.Context) error {
			if err := m.remoteDelete(ctx, kind, id); err != nil && !errors.Is(err, remote.ErrNotFound) {
				return err
			}
			for _, c := range children {
				if err := m.remoteDelete(ctx, c.kind, c.id); err != nil && !errors.Is(err, remote.ErrNotFound) {
					m.log.Warn("cascade delete failed",
						zap.String("kind", string(c.kind)),
						zap.Stringer("id", c.id),
						zap.Error(err))
				}
			}
			return nil
		},
		func(op *Operation, err error) []*notify.Notification {
			if err == nil {
				return []*notify.Notification{succeededNote(op)}
			}
			pe := m.persistenceError(op, err)
			notes := []*notify.Notification{failedNote(op, pe)}
			if !m.cfg.RollbackOnFailure {
				return notes
			}
			if rerr := rm.restore(); rerr != nil {
				m.log.Error("restore after failed delete", zap.Error(rerr), zap.String("correlation_id", op.CorrelationID))
				return notes
			}
			m.metrics.rolledBack(op)
			return append(notes, rolledBackNote(op, fmt.Sprintf("restored %s", op.Kind)))
		})
	return nil, nil
}
