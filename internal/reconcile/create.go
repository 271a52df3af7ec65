package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

// CreateBoard appends a board and returns a copy carrying its temporary ID.
func (m *Manager) CreateBoard(b *types.Board) (*types.Board, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	local := b.Clone()
	local.ID = m.nextTempID()
	local.Position = m.ws.BoardSet().Len()
	if err := m.ws.AddBoard(local, -1); err != nil {
		return nil, err
	}
	startCreate(m, m.remote.Boards, local.ID)
	return local.Clone(), nil
}

// CreateColumn appends a column to its board.
func (m *Manager) CreateColumn(c *types.Column) (*types.Column, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cols, ok := m.ws.ColumnSet(c.BoardID)
	if !ok {
		return nil, fmt.Errorf("create column %q: board %s: %w", c.Name, c.BoardID, ErrNotFound)
	}
	local := c.Clone()
	local.ID = m.nextTempID()
	local.Position = cols.Len()
	if err := m.ws.AddColumn(local, -1); err != nil {
		return nil, err
	}
	startCreate(m, m.remote.Columns, local.ID)
	return local.Clone(), nil
}

// CreateCard appends a card to its column. Declared dependencies are
// checked against the cycle policy first.
func (m *Manager) CreateCard(c *types.Card) (*types.Card, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.ws.Column(c.ColumnID)
	if !ok {
		return nil, fmt.Errorf("create card %q: column %s: %w", c.Title, c.ColumnID, ErrNotFound)
	}
	local := c.Clone()
	local.ID = m.nextTempID()
	local.BoardID = col.BoardID
	local.Position = len(m.ws.ColumnCards(col.ID))

	if err := m.checkDependencies(local, local.Dependencies); err != nil {
		return nil, fmt.Errorf("create card %q: %w", c.Title, err)
	}

	if err := m.ws.AddCard(local, -1); err != nil {
		return nil, err
	}
	startCreate(m, m.remote.Cards, local.ID)
	return local.Clone(), nil
}

// CreateSubtask appends a subtask to its card. Under a card that is still
// unsaved the remote create waits for the card.
func (m *Manager) CreateSubtask(s *types.Subtask) (*types.Subtask, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSubtask(s)
}

func (m *Manager) createSubtask(s *types.Subtask) (*types.Subtask, error) {
	if _, ok := m.ws.Card(s.CardID); !ok {
		return nil, fmt.Errorf("create subtask %q: card %s: %w", s.Title, s.CardID, ErrNotFound)
	}
	local := s.Clone()
	local.ID = m.nextTempID()
	local.Position = len(m.ws.Subtasks(s.CardID))
	if local.Completed && local.CompletedAt == nil {
		local.SetCompleted(true, m.now())
	}
	if err := m.ws.AddSubtask(local, -1); err != nil {
		return nil, err
	}
	startCreate(m, m.remote.Subtasks, local.ID)
	return local.Clone(), nil
}

// startCreate dispatches the remote create of the entity with temporary id,
// or defers it until every entity it references has an authoritative ID.
// It must be called with m.mu held.
func startCreate[T any, P types.Record[T]](m *Manager, repo *remote.Repository[T, P], id types.ID) {
	e, ok := m.lookup(repo.Kind(), id)
	if !ok {
		return
	}
	local := e.(P)
	for _, r := range local.References() {
		if r.IsTemp() {
			m.deferOn(r, func(types.ID) { startCreate(m, repo, id) })
			return
		}
	}

	sent := P(local.Clone())
	var created P
	m.dispatch("create", repo.Kind(), id,
		func(ctx context.Context) error {
			var err error
			created, err = repo.Create(ctx, sent)
			return err
		},
		func(op *Operation, err error) []*notify.Notification {
			if err != nil {
				return m.createFailed(op, id, err)
			}
			return m.createSucceeded(op, id, created)
		})
}

func (m *Manager) createSucceeded(op *Operation, tempID types.ID, created entity) []*notify.Notification {
	kind := op.Kind
	realID := created.EntityID()

	local, ok := m.lookup(kind, tempID)
	if !ok {
		rerr := &ReconciliationError{
			Kind:          kind,
			TempID:        tempID,
			RemoteID:      realID,
			CorrelationID: op.CorrelationID,
			Reason:        "deleted before the store answered",
		}
		m.log.Warn("discarding create response", zap.Error(rerr))
		m.metrics.discardedCreate(op)
		m.dropDeferred(tempID)
		m.compensateDelete(kind, realID)
		return []*notify.Notification{discardedNote(op, rerr)}
	}

	if m.ws.Contains(realID) {
		// A load installed the stored copy while the create was in flight.
		if rm, ok := m.removeLocal(kind, tempID); ok {
			m.dropDeferred(rm.ids()...)
		}
		m.log.Info("dropped temporary duplicate",
			zap.String("kind", string(kind)),
			zap.Stringer("temp_id", tempID),
			zap.Stringer("id", realID))
		return []*notify.Notification{reconciledNote(op, tempID, realID)}
	}

	rewritten, err := m.ws.Rekey(kind, tempID, realID)
	if err != nil {
		m.log.Error("rekey failed", zap.Error(err), zap.String("correlation_id", op.CorrelationID))
		return nil
	}
	stampServerFields(local, created)

	for _, c := range rewritten {
		if !c.ID.IsTemp() {
			m.pushUpdate(types.KindCard, c.ID, []string{"dependencies"}, nil)
		}
	}
	if card, ok := local.(*types.Card); ok {
		stripped := card.Clone()
		stripped.StripTempReferences()
		if !slices.Equal(stripped.Dependencies, created.(*types.Card).Dependencies) {
			m.pushUpdate(types.KindCard, realID, []string{"dependencies"}, nil)
		}
	}

	m.runDeferred(tempID, realID)
	return []*notify.Notification{reconciledNote(op, tempID, realID)}
}

func (m *Manager) createFailed(op *Operation, tempID types.ID, err error) []*notify.Notification {
	pe := m.persistenceError(op, err)
	notes := []*notify.Notification{failedNote(op, pe)}
	if !m.cfg.RollbackOnFailure {
		return notes
	}
	m.dropDeferred(tempID)
	if rm, ok := m.removeLocal(op.Kind, tempID); ok {
		m.dropDeferred(rm.ids()...)
		m.metrics.rolledBack(op)
		notes = append(notes, rolledBackNote(op, fmt.Sprintf("removed unsaved %s", op.Kind)))
	}
	return notes
}

// compensateDelete removes an orphan the store created for an entity that
// no longer exists locally. Must be called with m.mu held.
func (m *Manager) compensateDelete(kind types.Kind, id types.ID) {
	m.dispatch("delete", kind, id,
		func(ctx context.Context) error { return m.remoteDelete(ctx, kind, id) },
		func(op *Operation, err error) []*notify.Notification {
			if err == nil || errors.Is(err, remote.ErrNotFound) {
				return nil
			}
			return []*notify.Notification{failedNote(op, m.persistenceError(op, err))}
		})
}
