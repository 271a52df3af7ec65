package reconcile

import (
	"fmt"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/types"
)

// ReplaceSubtasks makes next the card's subtask list. Subtasks missing
// from next are deleted, entries without an ID are created, changed entries
// are updated, and the result is ordered as next.
func (m *Manager) ReplaceSubtasks(cardID types.ID, next []*types.Subtask) error {
	for i, s := range next {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("subtask %d: %w", i, err)
		}
	}
	m.mu.Lock()
	notes, err := m.replaceSubtasks(cardID, next)
	m.mu.Unlock()
	m.emit(notes)
	return err
}

func (m *Manager) replaceSubtasks(cardID types.ID, next []*types.Subtask) ([]*notify.Notification, error) {
	if _, ok := m.ws.Card(cardID); !ok {
		return nil, fmt.Errorf("replace subtasks: card %s: %w", cardID, ErrNotFound)
	}
	keep := make(map[types.ID]bool, len(next))
	for _, s := range next {
		if s.ID.IsZero() {
			continue
		}
		live, ok := m.ws.Subtask(s.ID)
		if !ok || live.CardID != cardID {
			return nil, fmt.Errorf("replace subtasks: subtask %s: %w", s.ID, ErrNotFound)
		}
		if keep[s.ID] {
			return nil, fmt.Errorf("replace subtasks: subtask %s listed twice", s.ID)
		}
		keep[s.ID] = true
	}

	var notes []*notify.Notification
	for _, s := range m.ws.Subtasks(cardID) {
		if keep[s.ID] {
			continue
		}
		n, err := m.deleteLocked(types.KindSubtask, s.ID)
		if err != nil {
			return notes, err
		}
		notes = append(notes, n...)
	}

	order := make([]types.ID, 0, len(next))
	for _, s := range next {
		if s.ID.IsZero() {
			in := s.Clone()
			in.CardID = cardID
			created, err := m.createSubtask(in)
			if err != nil {
				return notes, err
			}
			order = append(order, created.ID)
			continue
		}
		live, _ := m.ws.Subtask(s.ID)
		if s.Completed && s.CompletedAt == nil {
			s = s.Clone()
			if live.CompletedAt != nil {
				s.CompletedAt = live.CompletedAt
			} else {
				s.SetCompleted(true, m.now())
			}
		}
		patch, err := subtaskDiff(live, s)
		if err != nil {
			return notes, err
		}
		if len(patch) > 0 {
			fields := make([]string, 0, len(patch))
			for k := range patch {
				fields = append(fields, k)
			}
			slices.Sort(fields)
			before, _ := fieldMap(live)
			if err := applyFields(live, patch); err != nil {
				return notes, fmt.Errorf("replace subtasks: %s: %w", s.ID, err)
			}
			m.pushUpdate(types.KindSubtask, s.ID, fields, pick(before, fields))
		}
		order = append(order, s.ID)
	}
	if err := m.reorderSubtasks(cardID, order); err != nil {
		m.log.Error("reorder after replace", zap.Error(err))
		return notes, err
	}
	return notes, nil
}

// subtaskDiff returns the user-editable fields of next that differ from
// live, keyed by JSON name.
func subtaskDiff(live, next *types.Subtask) (map[string]any, error) {
	a, err := fieldMap(live)
	if err != nil {
		return nil, err
	}
	b, err := fieldMap(next)
	if err != nil {
		return nil, err
	}
	patch := make(map[string]any)
	for _, doc := range []map[string]any{a, b} {
		for k := range doc {
			if serverComputed[k] || structural[k] {
				continue
			}
			if !reflect.DeepEqual(a[k], b[k]) {
				patch[k] = b[k]
			}
		}
	}
	return patch, nil
}
