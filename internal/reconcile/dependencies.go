package reconcile

import (
	"fmt"
	"slices"

	"github.com/steveyegge/kanbeads/internal/deps"
	"github.com/steveyegge/kanbeads/internal/types"
)

// AddDependency declares that cardID depends on dep. Self-dependencies,
// duplicates and edges that would close a cycle are refused.
func (m *Manager) AddDependency(cardID types.ID, dep types.Dependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.ws.Card(cardID)
	if !ok {
		return fmt.Errorf("add dependency: card %s: %w", cardID, ErrNotFound)
	}
	if !dep.TargetID.IsZero() && dep.Title == "" {
		if target, ok := m.ws.Card(dep.TargetID); ok {
			dep.Title = target.Title
		}
	}
	if err := deps.ValidateNewDependency(card, dep, m.ws.Cards(card.BoardID)); err != nil {
		return fmt.Errorf("add dependency to %q: %w", card.Title, err)
	}
	before, err := fieldMap(card)
	if err != nil {
		return err
	}
	card.Dependencies = append(card.Dependencies, dep)
	fields := []string{"dependencies"}
	m.pushUpdate(types.KindCard, cardID, fields, pick(before, fields))
	return nil
}

// RemoveDependency drops the dependency of cardID whose target ID or title
// equals target.
func (m *Manager) RemoveDependency(cardID types.ID, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.ws.Card(cardID)
	if !ok {
		return fmt.Errorf("remove dependency: card %s: %w", cardID, ErrNotFound)
	}
	idx := slices.IndexFunc(card.Dependencies, func(d types.Dependency) bool {
		return (!d.TargetID.IsZero() && d.TargetID.String() == target) || d.Title == target
	})
	if idx < 0 {
		return fmt.Errorf("remove dependency: %q on card %q: %w", target, card.Title, ErrNotFound)
	}
	before, err := fieldMap(card)
	if err != nil {
		return err
	}
	card.Dependencies = slices.Delete(card.Dependencies, idx, idx+1)
	fields := []string{"dependencies"}
	m.pushUpdate(types.KindCard, cardID, fields, pick(before, fields))
	return nil
}

// checkDependencies validates list as card's complete dependency list, one
// edge at a time, so self-dependencies, duplicates and cycles are refused
// the same way AddDependency refuses them. Must be called with m.mu held.
func (m *Manager) checkDependencies(card *types.Card, list []types.Dependency) error {
	all := m.ws.Cards(card.BoardID)
	trial := card.Clone()
	trial.Dependencies = nil
	for _, d := range list {
		if err := deps.ValidateNewDependency(trial, d, all); err != nil {
			return err
		}
		trial.Dependencies = append(trial.Dependencies, d)
	}
	return nil
}
