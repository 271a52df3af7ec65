package deps

import (
	"github.com/steveyegge/kanbeads/internal/types"
)

// Ready returns cards that are not done and whose dependencies all hold,
// in input order.
func (e *Evaluator) Ready(all []*types.Card, columns []*types.Column) []*types.Card {
	ix := newIndex(all)
	var out []*types.Card
	for _, c := range all {
		if e.model.IsDone(c.ColumnID, columns) {
			continue
		}
		if len(e.unmet(ix, c, columns)) == 0 {
			out = append(out, c)
		}
	}
	return out
}

// Blocked returns cards that are not done and have at least one dependency
// that does not hold, with the unmet dependencies listed.
func (e *Evaluator) Blocked(all []*types.Card, columns []*types.Column) []*types.BlockedCard {
	ix := newIndex(all)
	var out []*types.BlockedCard
	for _, c := range all {
		if e.model.IsDone(c.ColumnID, columns) {
			continue
		}
		if unmet := e.unmet(ix, c, columns); len(unmet) > 0 {
			out = append(out, &types.BlockedCard{Card: c, Unmet: unmet})
		}
	}
	return out
}

func (e *Evaluator) unmet(ix *index, card *types.Card, columns []*types.Column) []types.Dependency {
	var unmet []types.Dependency
	for _, dep := range card.Dependencies {
		if !e.holds(ix, card, dep, columns) {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}
