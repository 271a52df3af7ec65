package deps

import (
	"errors"
	"fmt"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Declaration errors
var (
	ErrSelfDependency = errors.New("a card cannot depend on itself")
	ErrCycle          = errors.New("adding dependency would create a cycle")
	ErrDuplicate      = errors.New("dependency already declared")
)

// ValidateNewDependency checks that adding dep to card keeps the resolved
// dependency graph acyclic. Dependencies that do not resolve yet are allowed;
// they stay unsatisfied until a matching card appears.
func ValidateNewDependency(card *types.Card, dep types.Dependency, all []*types.Card) error {
	if err := dep.Validate(); err != nil {
		return err
	}
	ix := newIndex(all)
	for _, existing := range card.Dependencies {
		if sameTarget(existing, dep) {
			return fmt.Errorf("%w: %s", ErrDuplicate, dep.Label())
		}
	}
	target, rerr := ix.resolve(card, dep)
	if rerr != nil {
		return nil
	}
	if target == card || (!card.ID.IsZero() && target.ID == card.ID) {
		return ErrSelfDependency
	}
	if path := reach(ix, target, card); path != nil {
		return fmt.Errorf("%w: %s", ErrCycle, formatPath(append([]*types.Card{card}, path...)))
	}
	return nil
}

// DetectCycles returns every cycle in the resolved dependency graph. Used to
// warn about data loaded from elsewhere.
func DetectCycles(all []*types.Card) [][]*types.Card {
	ix := newIndex(all)
	graph := make(map[*types.Card][]*types.Card, len(all))
	for _, c := range all {
		for _, dep := range c.Dependencies {
			if target, err := ix.resolve(c, dep); err == nil {
				graph[c] = append(graph[c], target)
			}
		}
	}

	var cycles [][]*types.Card
	visited := make(map[*types.Card]bool)
	onStack := make(map[*types.Card]bool)
	var path []*types.Card

	var dfs func(node *types.Card)
	dfs = func(node *types.Card) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)
		for _, next := range graph[node] {
			if !visited[next] {
				dfs(next)
				continue
			}
			if onStack[next] {
				for i, n := range path {
					if n == next {
						cycles = append(cycles, append([]*types.Card(nil), path[i:]...))
						break
					}
				}
			}
		}
		path = path[:len(path)-1]
		onStack[node] = false
	}

	for _, c := range all {
		if !visited[c] {
			dfs(c)
		}
	}
	return cycles
}

// reach returns the path from start to goal following resolved dependency
// edges, or nil when goal is unreachable.
func reach(ix *index, start, goal *types.Card) []*types.Card {
	seen := map[*types.Card]bool{start: true}
	prev := map[*types.Card]*types.Card{}
	queue := []*types.Card{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node == goal || (!goal.ID.IsZero() && node.ID == goal.ID) {
			var path []*types.Card
			for n := node; n != nil; n = prev[n] {
				path = append([]*types.Card{n}, path...)
			}
			return path
		}
		for _, dep := range node.Dependencies {
			next, err := ix.resolve(node, dep)
			if err != nil || seen[next] {
				continue
			}
			seen[next] = true
			prev[next] = node
			queue = append(queue, next)
		}
	}
	return nil
}

func sameTarget(a, b types.Dependency) bool {
	if !a.TargetID.IsZero() && !b.TargetID.IsZero() {
		return a.TargetID == b.TargetID
	}
	return a.Title == b.Title
}

func formatPath(path []*types.Card) string {
	s := ""
	for i, c := range path {
		if i > 0 {
			s += " → "
		}
		s += c.Title
	}
	return s
}
