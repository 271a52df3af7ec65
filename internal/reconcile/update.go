package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/types"
)

// UpdateBoard patches a board. Keys are JSON field names; a nil value
// clears the field.
func (m *Manager) UpdateBoard(id types.ID, patch map[string]any) error {
	return m.update(types.KindBoard, id, patch)
}

// UpdateColumn patches a column.
func (m *Manager) UpdateColumn(id types.ID, patch map[string]any) error {
	return m.update(types.KindColumn, id, patch)
}

// UpdateCard patches a card. Moving between columns goes through MoveCard.
// A new dependencies list is checked like AddDependency checks one edge.
func (m *Manager) UpdateCard(id types.ID, patch map[string]any) error {
	return m.update(types.KindCard, id, patch)
}

// UpdateSubtask patches a subtask.
func (m *Manager) UpdateSubtask(id types.ID, patch map[string]any) error {
	return m.update(types.KindSubtask, id, patch)
}

// SetSubtaskCompleted toggles a subtask, stamping its completion time.
func (m *Manager) SetSubtaskCompleted(id types.ID, done bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ws.Subtask(id)
	if !ok {
		return fmt.Errorf("subtask %s: %w", id, ErrNotFound)
	}
	fields := []string{"completed", "completedAt"}
	before, err := fieldMap(s)
	if err != nil {
		return err
	}
	s.SetCompleted(done, m.now())
	m.pushUpdate(types.KindSubtask, id, fields, pick(before, fields))
	return nil
}

func (m *Manager) update(kind types.Kind, id types.ID, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	fields := make([]string, 0, len(patch))
	for k := range patch {
		if serverComputed[k] || structural[k] {
			return fmt.Errorf("update %s %s: %w: %s", kind, id, ErrImmutableField, k)
		}
		fields = append(fields, k)
	}
	slices.Sort(fields)

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(kind, id)
	if !ok {
		return fmt.Errorf("update %s %s: %w", kind, id, ErrNotFound)
	}
	if card, ok := e.(*types.Card); ok && slices.Contains(fields, "dependencies") {
		trial := card.Clone()
		if err := applyFields(trial, patch); err != nil {
			return fmt.Errorf("update %s %s: %w", kind, id, err)
		}
		if err := m.checkDependencies(card, trial.Dependencies); err != nil {
			return fmt.Errorf("update card %q: %w", card.Title, err)
		}
	}
	before, err := fieldMap(e)
	if err != nil {
		return err
	}
	if err := applyFields(e, patch); err != nil {
		return fmt.Errorf("update %s %s: %w", kind, id, err)
	}
	m.pushUpdate(kind, id, fields, pick(before, fields))
	return nil
}

// pushUpdate sends the current values of fields to the store. If the entity
// or a referenced ID is still temporary the push waits for it. On failure
// the prior values are restored for fields nobody changed since. Must be
// called with m.mu held.
func (m *Manager) pushUpdate(kind types.Kind, id types.ID, fields []string, prior map[string]any) {
	if id.IsTemp() {
		m.deferOn(id, func(realID types.ID) { m.pushUpdate(kind, realID, fields, prior) })
		return
	}
	e, ok := m.lookup(kind, id)
	if !ok {
		return
	}
	doc, err := fieldMap(e)
	if err != nil {
		m.log.Error("encode update", zap.Error(err))
		return
	}
	sent := pick(doc, fields)
	if pending := tempRefs(sent); len(pending) > 0 {
		m.deferOn(pending[0], func(types.ID) { m.pushUpdate(kind, id, fields, prior) })
		return
	}

	values := make(map[string]any, len(sent))
	for k, v := range sent {
		values[k] = v
	}
	if card, ok := e.(*types.Card); ok && slices.Contains(fields, "dependencies") {
		stripped := card.Clone()
		stripped.StripTempReferences()
		values["dependencies"] = stripped.Dependencies
	}

	m.dispatch("update", kind, id,
		func(ctx context.Context) error { return m.remoteUpdate(ctx, kind, id, values) },
		func(op *Operation, err error) []*notify.Notification {
			if err == nil {
				return []*notify.Notification{succeededNote(op)}
			}
			return m.updateFailed(op, sent, prior, err)
		})
}

func (m *Manager) updateFailed(op *Operation, sent, prior map[string]any, err error) []*notify.Notification {
	pe := m.persistenceError(op, err)
	notes := []*notify.Notification{failedNote(op, pe)}
	if !m.cfg.RollbackOnFailure || prior == nil {
		return notes
	}
	e, ok := m.lookup(op.Kind, op.EntityID)
	if !ok {
		return notes
	}
	current, encErr := fieldMap(e)
	if encErr != nil {
		return notes
	}
	restore := make(map[string]any)
	for k, v := range sent {
		if structural[k] {
			continue
		}
		if reflect.DeepEqual(current[k], v) {
			restore[k] = prior[k]
		}
	}
	if len(restore) == 0 {
		return notes
	}
	if err := applyFields(e, restore); err != nil {
		m.log.Error("restore after failed update", zap.Error(err), zap.String("correlation_id", op.CorrelationID))
		return notes
	}
	m.metrics.rolledBack(op)
	return append(notes, rolledBackNote(op, fmt.Sprintf("restored %d field(s)", len(restore))))
}
