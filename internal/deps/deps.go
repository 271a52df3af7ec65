// Package deps evaluates inter-card dependencies.
//
// A dependency holds when its target card has reached the required status
// ("must reach": sitting in a later column also counts). Evaluation is not
// transitive: only a card's direct dependencies are checked. Nothing in this
// package mutates its inputs, and every query is O(n·d) so it can run on
// each drag hover.
package deps

import (
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/workflow"
)

// Evaluator answers dependency questions against a workflow model.
type Evaluator struct {
	model        *workflow.Model
	onResolution func(*ResolutionError)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithResolutionHook receives every dangling or ambiguous dependency found
// during evaluation. The hook must not call back into the evaluator.
func WithResolutionHook(fn func(*ResolutionError)) Option {
	return func(e *Evaluator) { e.onResolution = fn }
}

// New returns an evaluator. A nil model uses the default aliases.
func New(model *workflow.Model, opts ...Option) *Evaluator {
	if model == nil {
		model = workflow.Default()
	}
	e := &Evaluator{model: model}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the workflow model the evaluator uses.
func (e *Evaluator) Model() *workflow.Model { return e.model }

// DependenciesSatisfied reports whether every dependency of card holds.
// A card without dependencies is satisfied.
func (e *Evaluator) DependenciesSatisfied(card *types.Card, all []*types.Card, columns []*types.Column) bool {
	if len(card.Dependencies) == 0 {
		return true
	}
	ix := newIndex(all)
	for _, dep := range card.Dependencies {
		if !e.holds(ix, card, dep, columns) {
			return false
		}
	}
	return true
}

// Unmet returns the dependencies of card that do not hold, in declaration
// order.
func (e *Evaluator) Unmet(card *types.Card, all []*types.Card, columns []*types.Column) []types.Dependency {
	if len(card.Dependencies) == 0 {
		return nil
	}
	return e.unmet(newIndex(all), card, columns)
}

// DependentsOf returns every other card that declares a dependency
// referencing card.
func (e *Evaluator) DependentsOf(card *types.Card, all []*types.Card) []*types.Card {
	var out []*types.Card
	for _, other := range all {
		if other == card || (!card.ID.IsZero() && other.ID == card.ID) {
			continue
		}
		for _, dep := range other.Dependencies {
			if dep.References(card) {
				out = append(out, other)
				break
			}
		}
	}
	return out
}

func (e *Evaluator) holds(ix *index, owner *types.Card, dep types.Dependency, columns []*types.Column) bool {
	target, err := ix.resolve(owner, dep)
	if err != nil {
		if e.onResolution != nil {
			e.onResolution(err)
		}
		return false
	}
	required := dep.Required()
	if _, ok := e.model.ColumnIDForRequiredStatus(required, columns); !ok {
		return false
	}
	return e.model.StatusForColumn(target.ColumnID, columns).AtLeast(required)
}
