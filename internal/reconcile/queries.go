package reconcile

import (
	"fmt"
	"strings"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Read accessors return copies; callers may keep or modify them freely.

func (m *Manager) Boards() []*types.Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws.BoardSet().Snapshot()
}

func (m *Manager) Board(id types.ID) (*types.Board, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.ws.Board(id)
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (m *Manager) Columns(boardID types.ID) []*types.Column {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.ws.Columns(boardID))
}

func (m *Manager) Column(id types.ID) (*types.Column, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ws.Column(id)
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

func (m *Manager) Cards(boardID types.ID) []*types.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.ws.Cards(boardID))
}

func (m *Manager) ColumnCards(columnID types.ID) []*types.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.ws.ColumnCards(columnID))
}

func (m *Manager) Card(id types.ID) (*types.Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ws.Card(id)
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

func (m *Manager) Subtasks(cardID types.ID) []*types.Subtask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.ws.Subtasks(cardID))
}

func (m *Manager) Subtask(id types.ID) (*types.Subtask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ws.Subtask(id)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Status returns the canonical status of a card, derived from its column.
func (m *Manager) Status(cardID types.ID) (types.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ws.Card(cardID)
	if !ok {
		return "", false
	}
	return m.auth.Model().StatusForColumn(c.ColumnID, m.ws.Columns(c.BoardID)), true
}

// Unmet returns the dependencies of a card that do not hold.
func (m *Manager) Unmet(cardID types.ID) ([]types.Dependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ws.Card(cardID)
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, ErrNotFound)
	}
	return m.auth.Evaluator().Unmet(c, m.ws.Cards(c.BoardID), m.ws.Columns(c.BoardID)), nil
}

// DependentsOf returns copies of the cards that depend on cardID.
func (m *Manager) DependentsOf(cardID types.ID) ([]*types.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ws.Card(cardID)
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, ErrNotFound)
	}
	return cloneAll(m.auth.Evaluator().DependentsOf(c, m.ws.Cards(c.BoardID))), nil
}

// Ready returns the open cards of a board whose dependencies all hold.
func (m *Manager) Ready(boardID types.ID) []*types.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.auth.Evaluator().Ready(m.ws.Cards(boardID), m.ws.Columns(boardID)))
}

// Blocked returns the open cards of a board with unmet dependencies.
func (m *Manager) Blocked(boardID types.ID) []*types.BlockedCard {
	m.mu.Lock()
	defer m.mu.Unlock()
	blocked := m.auth.Evaluator().Blocked(m.ws.Cards(boardID), m.ws.Columns(boardID))
	for _, b := range blocked {
		b.Card = b.Card.Clone()
	}
	return blocked
}

// ResolveCard finds a card by ID, or by a title unique across all boards.
func (m *Manager) ResolveCard(ref string) (*types.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.ws.Card(types.ParseID(ref)); ok {
		return c.Clone(), nil
	}
	var matches []*types.Card
	for _, b := range m.ws.Boards() {
		for _, c := range m.ws.Cards(b.ID) {
			if strings.EqualFold(strings.TrimSpace(c.Title), strings.TrimSpace(ref)) {
				matches = append(matches, c)
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("card %q: %w", ref, ErrNotFound)
	case 1:
		return matches[0].Clone(), nil
	}
	return nil, fmt.Errorf("card %q is ambiguous: %d cards share the title", ref, len(matches))
}

// ResolveColumn finds a column of a board by ID or by name (case-insensitive).
func (m *Manager) ResolveColumn(boardID types.ID, ref string) (*types.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.ws.Column(types.ParseID(ref)); ok && c.BoardID == boardID {
		return c.Clone(), nil
	}
	for _, c := range m.ws.Columns(boardID) {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(ref)) {
			return c.Clone(), nil
		}
	}
	return nil, fmt.Errorf("column %q: %w", ref, ErrNotFound)
}

func cloneAll[T any, P interface {
	*T
	Clone() *T
}](in []P) []P {
	out := make([]P, len(in))
	for i, p := range in {
		out[i] = P(p.Clone())
	}
	return out
}
