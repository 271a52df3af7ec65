package deps

import (
	"fmt"

	"github.com/steveyegge/kanbeads/internal/types"
)

// ResolutionError describes a dependency that could not be resolved to
// exactly one card. It is a diagnostic: evaluation treats the dependency as
// unsatisfied and carries on.
type ResolutionError struct {
	CardID     types.ID
	CardTitle  string
	Dependency types.Dependency
	Matches    int
}

func (e *ResolutionError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("card %q: dependency %q does not match any card", e.CardTitle, e.Dependency.Label())
	}
	return fmt.Sprintf("card %q: dependency %q is ambiguous (%d cards share the title)", e.CardTitle, e.Dependency.Label(), e.Matches)
}

// Dangling reports whether the dependency matched no card.
func (e *ResolutionError) Dangling() bool { return e.Matches == 0 }

type index struct {
	byID    map[types.ID]*types.Card
	byTitle map[string][]*types.Card
}

func newIndex(all []*types.Card) *index {
	ix := &index{
		byID:    make(map[types.ID]*types.Card, len(all)),
		byTitle: make(map[string][]*types.Card, len(all)),
	}
	for _, c := range all {
		if !c.ID.IsZero() {
			ix.byID[c.ID] = c
		}
		ix.byTitle[c.Title] = append(ix.byTitle[c.Title], c)
	}
	return ix
}

func (ix *index) resolve(owner *types.Card, dep types.Dependency) (*types.Card, *ResolutionError) {
	if !dep.TargetID.IsZero() {
		if c, ok := ix.byID[dep.TargetID]; ok {
			return c, nil
		}
		return nil, &ResolutionError{CardID: owner.ID, CardTitle: owner.Title, Dependency: dep}
	}
	matches := ix.byTitle[dep.Title]
	if len(matches) != 1 {
		return nil, &ResolutionError{CardID: owner.ID, CardTitle: owner.Title, Dependency: dep, Matches: len(matches)}
	}
	return matches[0], nil
}

// Resolve finds the single card dep points at among all.
func Resolve(owner *types.Card, dep types.Dependency, all []*types.Card) (*types.Card, error) {
	c, err := newIndex(all).resolve(owner, dep)
	if err != nil {
		return nil, err
	}
	return c, nil
}
