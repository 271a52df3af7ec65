package workspace

import (
	"fmt"
	"slices"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Collection is an ordered list of entities with O(1) lookup by ID. The
// entity's position field mirrors its index after every Renumber.
type Collection[T any, P types.Record[T]] struct {
	order []types.ID
	items map[types.ID]P
}

// NewCollection returns an empty collection.
func NewCollection[T any, P types.Record[T]]() *Collection[T, P] {
	return &Collection[T, P]{items: make(map[types.ID]P)}
}

// Len returns the number of entities.
func (c *Collection[T, P]) Len() int { return len(c.order) }

// Get returns the live entity with id.
func (c *Collection[T, P]) Get(id types.ID) (P, bool) {
	p, ok := c.items[id]
	return p, ok
}

// Has reports whether id is present.
func (c *Collection[T, P]) Has(id types.ID) bool {
	_, ok := c.items[id]
	return ok
}

// Index returns the position of id in the order, or -1.
func (c *Collection[T, P]) Index(id types.ID) int {
	if _, ok := c.items[id]; !ok {
		return -1
	}
	return slices.Index(c.order, id)
}

// Insert places p at index. An out of range index appends.
func (c *Collection[T, P]) Insert(p P, index int) error {
	id := p.EntityID()
	if id.IsZero() {
		return fmt.Errorf("insert %s: entity has no id", p.EntityKind())
	}
	if _, exists := c.items[id]; exists {
		return fmt.Errorf("insert %s: duplicate id %s", p.EntityKind(), id)
	}
	if index < 0 || index > len(c.order) {
		index = len(c.order)
	}
	c.order = slices.Insert(c.order, index, id)
	c.items[id] = p
	return nil
}

// Append adds p at the end.
func (c *Collection[T, P]) Append(p P) error {
	return c.Insert(p, -1)
}

// Remove deletes id and returns the removed entity and its former index.
func (c *Collection[T, P]) Remove(id types.ID) (P, int, bool) {
	p, ok := c.items[id]
	if !ok {
		var zero P
		return zero, -1, false
	}
	idx := slices.Index(c.order, id)
	c.order = slices.Delete(c.order, idx, idx+1)
	delete(c.items, id)
	return p, idx, true
}

// Rekey swaps oldID for newID in place, keeping the entity at its index.
func (c *Collection[T, P]) Rekey(oldID, newID types.ID) bool {
	p, ok := c.items[oldID]
	if !ok {
		return false
	}
	if _, clash := c.items[newID]; clash {
		return false
	}
	idx := slices.Index(c.order, oldID)
	c.order[idx] = newID
	delete(c.items, oldID)
	p.SetEntityID(newID)
	c.items[newID] = p
	return true
}

// Move relocates id to index within the collection.
func (c *Collection[T, P]) Move(id types.ID, index int) bool {
	p, _, ok := c.Remove(id)
	if !ok {
		return false
	}
	_ = c.Insert(p, index)
	return true
}

// Reorder rearranges the collection to match ids, which must be a
// permutation of the current IDs.
func (c *Collection[T, P]) Reorder(ids []types.ID) error {
	if len(ids) != len(c.order) {
		return fmt.Errorf("reorder: got %d ids, collection has %d", len(ids), len(c.order))
	}
	seen := make(map[types.ID]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.items[id]; !ok {
			return fmt.Errorf("reorder: unknown id %s", id)
		}
		if seen[id] {
			return fmt.Errorf("reorder: id %s listed twice", id)
		}
		seen[id] = true
	}
	c.order = slices.Clone(ids)
	return nil
}

// RestoreOrder puts the IDs present in ids first, in that order, followed by
// the remaining entities in their current order. Unknown IDs are ignored.
func (c *Collection[T, P]) RestoreOrder(ids []types.ID) {
	next := make([]types.ID, 0, len(c.order))
	placed := make(map[types.ID]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.items[id]; ok && !placed[id] {
			next = append(next, id)
			placed[id] = true
		}
	}
	for _, id := range c.order {
		if !placed[id] {
			next = append(next, id)
		}
	}
	c.order = next
}

// Renumber sets every entity's position to its index and returns the IDs
// whose position changed.
func (c *Collection[T, P]) Renumber() []types.ID {
	var changed []types.ID
	for i, id := range c.order {
		p := c.items[id]
		if p.EntityPosition() != i {
			p.SetPosition(i)
			changed = append(changed, id)
		}
	}
	return changed
}

// IDs returns the IDs in order.
func (c *Collection[T, P]) IDs() []types.ID {
	return slices.Clone(c.order)
}

// Live returns the entities in order without copying them. Callers must
// hold whatever lock guards the workspace.
func (c *Collection[T, P]) Live() []P {
	out := make([]P, len(c.order))
	for i, id := range c.order {
		out[i] = c.items[id]
	}
	return out
}

// Snapshot returns copies of the entities in order.
func (c *Collection[T, P]) Snapshot() []*T {
	out := make([]*T, len(c.order))
	for i, id := range c.order {
		out[i] = c.items[id].Clone()
	}
	return out
}

// SortByPosition orders the collection by the entities' position fields,
// keeping the current order among ties.
func (c *Collection[T, P]) SortByPosition() {
	slices.SortStableFunc(c.order, func(a, b types.ID) int {
		return c.items[a].EntityPosition() - c.items[b].EntityPosition()
	})
}
