package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/transition"
	"github.com/steveyegge/kanbeads/internal/types"
)

// step persists the ordinal fields of one entity.
type step struct {
	kind   types.Kind
	id     types.ID
	fields []string
	values map[string]any
	prior  map[string]any
}

// Authorize checks moving a card to a column without changing anything.
func (m *Manager) Authorize(cardID, targetColumnID types.ID) (transition.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.ws.Card(cardID)
	if !ok {
		return transition.Verdict{}, fmt.Errorf("card %s: %w", cardID, ErrNotFound)
	}
	return m.auth.AuthorizeHover(card, targetColumnID, m.ws.Columns(card.BoardID), m.ws.Cards(card.BoardID)), nil
}

// MoveCard moves a card to index within targetColumnID (-1 appends) after
// the transition authorizer allows it. A refused move changes nothing and
// returns a *transition.DeniedError along with the verdict.
func (m *Manager) MoveCard(cardID, targetColumnID types.ID, index int) (transition.Verdict, error) {
	m.mu.Lock()
	notes, v, err := m.moveCard(cardID, targetColumnID, index)
	m.mu.Unlock()
	m.emit(notes)
	return v, err
}

func (m *Manager) moveCard(cardID, targetColumnID types.ID, index int) ([]*notify.Notification, transition.Verdict, error) {
	card, ok := m.ws.Card(cardID)
	if !ok {
		return nil, transition.Verdict{}, fmt.Errorf("move card %s: %w", cardID, ErrNotFound)
	}
	target, ok := m.ws.Column(targetColumnID)
	if !ok || target.BoardID != card.BoardID {
		return nil, transition.Verdict{}, fmt.Errorf("move card %s: column %s: %w", cardID, targetColumnID, ErrNotFound)
	}

	v := m.auth.AuthorizeMove(card, targetColumnID, m.ws.Columns(card.BoardID), m.ws.Cards(card.BoardID))
	if !v.Allowed {
		m.log.Info("move denied",
			zap.Stringer("card", cardID),
			zap.Stringer("target", targetColumnID),
			zap.String("code", string(v.Code)))
		return []*notify.Notification{deniedNote(card, v)}, v, v.Err(card, targetColumnID)
	}

	srcColumnID := card.ColumnID
	order := m.ws.ColumnOrder(srcColumnID, targetColumnID)
	before := make(map[types.ID][2]any)
	for _, colID := range []types.ID{srcColumnID, targetColumnID} {
		for _, c := range m.ws.ColumnCards(colID) {
			before[c.ID] = [2]any{c.ColumnID.String(), float64(c.Position)}
		}
	}

	changed, err := m.ws.MoveCard(cardID, targetColumnID, index)
	if err != nil {
		return nil, v, err
	}

	steps := make([]step, 0, len(changed))
	for _, id := range changed {
		c, _ := m.ws.Card(id)
		fields := []string{"position"}
		prior := map[string]any{"position": before[id][1]}
		if before[id][0] != c.ColumnID.String() {
			fields = []string{"columnId", "position"}
			prior["columnId"] = before[id][0]
		}
		steps = append(steps, step{kind: types.KindCard, id: id, fields: fields, prior: prior})
	}
	m.persistSteps("move", types.KindCard, cardID, steps, func() {
		m.ws.RestoreColumnOrder(order)
	})
	return nil, v, nil
}

// ReorderBoards puts the boards in the given order.
func (m *Manager) ReorderBoards(ids []types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	boards := m.ws.BoardSet()
	prior := boards.IDs()
	if err := boards.Reorder(ids); err != nil {
		return err
	}
	m.persistOrdinals(types.KindBoard, types.ID{}, boards.Renumber(), func() {
		boards.RestoreOrder(prior)
		boards.Renumber()
	}, prior)
	return nil
}

// ReorderColumns puts a board's columns in the given order.
func (m *Manager) ReorderColumns(boardID types.ID, ids []types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols, ok := m.ws.ColumnSet(boardID)
	if !ok {
		return fmt.Errorf("reorder columns: board %s: %w", boardID, ErrNotFound)
	}
	prior := cols.IDs()
	if err := cols.Reorder(ids); err != nil {
		return err
	}
	m.persistOrdinals(types.KindColumn, boardID, cols.Renumber(), func() {
		cols.RestoreOrder(prior)
		cols.Renumber()
	}, prior)
	return nil
}

// ReorderSubtasks puts a card's subtasks in the given order.
func (m *Manager) ReorderSubtasks(cardID types.ID, ids []types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reorderSubtasks(cardID, ids)
}

func (m *Manager) reorderSubtasks(cardID types.ID, ids []types.ID) error {
	subs, ok := m.ws.SubtaskSet(cardID)
	if !ok {
		return fmt.Errorf("reorder subtasks: card %s: %w", cardID, ErrNotFound)
	}
	prior := subs.IDs()
	if err := subs.Reorder(ids); err != nil {
		return err
	}
	m.persistOrdinals(types.KindSubtask, cardID, subs.Renumber(), func() {
		subs.RestoreOrder(prior)
		subs.Renumber()
	}, prior)
	return nil
}

// persistOrdinals turns renumbered IDs into position steps. The prior
// position of an entity is its index in priorOrder.
func (m *Manager) persistOrdinals(kind types.Kind, parentID types.ID, changed []types.ID, restore func(), priorOrder []types.ID) {
	priorIndex := make(map[types.ID]int, len(priorOrder))
	for i, id := range priorOrder {
		priorIndex[id] = i
	}
	steps := make([]step, 0, len(changed))
	for _, id := range changed {
		steps = append(steps, step{
			kind:   kind,
			id:     id,
			fields: []string{"position"},
			prior:  map[string]any{"position": float64(priorIndex[id])},
		})
	}
	m.persistSteps("reorder", kind, parentID, steps, restore)
}

// persistSteps sends each step as its own remote update, in order, never
// batched. Steps touching unsaved entities are deferred individually. If a
// call fails the remaining steps are skipped, the local order is restored
// and the steps already applied are sent back to their prior values. Must
// be called with m.mu held.
func (m *Manager) persistSteps(opName string, kind types.Kind, subject types.ID, steps []step, restore func()) {
	var now []step
	for _, s := range steps {
		e, ok := m.lookup(s.kind, s.id)
		if !ok {
			continue
		}
		doc, err := fieldMap(e)
		if err != nil {
			m.log.Error("encode ordinal", zap.Error(err))
			continue
		}
		s.values = pick(doc, s.fields)
		if s.id.IsTemp() || len(tempRefs(s.values)) > 0 {
			m.pushUpdate(s.kind, s.id, s.fields, s.prior)
			continue
		}
		now = append(now, s)
	}
	if len(now) == 0 {
		return
	}

	done := 0
	m.dispatch(opName, kind, subject,
		func(ctx context.Context) error {
			for done < len(now) {
				s := now[done]
				if err := m.remoteUpdate(ctx, s.kind, s.id, s.values); err != nil {
					return err
				}
				done++
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
			restore()
			m.compensateSteps(now[:done])
			m.metrics.rolledBack(op)
			return append(notes, rolledBackNote(op, fmt.Sprintf("restored order, %d of %d update(s) had been saved", done, len(now))))
		})
}

// compensateSteps sends applied steps back to their prior values.
func (m *Manager) compensateSteps(applied []step) {
	if len(applied) == 0 {
		return
	}
	m.dispatch("compensate", applied[0].kind, applied[0].id,
		func(ctx context.Context) error {
			for _, s := range applied {
				if err := m.remoteUpdate(ctx, s.kind, s.id, s.prior); err != nil {
					return err
				}
			}
			return nil
		},
		func(op *Operation, err error) []*notify.Notification {
			if err == nil {
				return nil
			}
			return []*notify.Notification{failedNote(op, m.persistenceError(op, err))}
		})
}
