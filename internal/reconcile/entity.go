package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/workspace"
)

// entity is the non-generic face of types.Record.
type entity interface {
	EntityKind() types.Kind
	EntityID() types.ID
	ParentID() types.ID
	References() []types.ID
	Validate() error
}

// ref names an entity by kind and ID.
type ref struct {
	kind types.Kind
	id   types.ID
}

// structural fields change only through create, move or reorder.
var structural = map[string]bool{
	"boardId":  true,
	"columnId": true,
	"cardId":   true,
	"position": true,
}

var serverComputed = map[string]bool{
	remote.FieldID:        true,
	remote.FieldCreatedAt: true,
	remote.FieldUpdatedAt: true,
}

func (m *Manager) lookup(kind types.Kind, id types.ID) (entity, bool) {
	switch kind {
	case types.KindBoard:
		if b, ok := m.ws.Board(id); ok {
			return b, true
		}
	case types.KindColumn:
		if c, ok := m.ws.Column(id); ok {
			return c, true
		}
	case types.KindCard:
		if c, ok := m.ws.Card(id); ok {
			return c, true
		}
	case types.KindSubtask:
		if s, ok := m.ws.Subtask(id); ok {
			return s, true
		}
	}
	return nil, false
}

// fieldMap renders e as its JSON object.
func fieldMap(e any) (map[string]any, error) {
	raw, err := remote.Marshal(e)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := remote.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// pick returns the named fields of doc; absent fields map to nil.
func pick(doc map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = doc[f]
	}
	return out
}

// applyFields overlays updates (JSON names, nil clears) onto e in place and
// validates the result. e is left untouched on error.
func applyFields(e entity, updates map[string]any) error {
	doc, err := fieldMap(e)
	if err != nil {
		return err
	}
	for k, v := range updates {
		if v == nil {
			delete(doc, k)
		} else {
			doc[k] = v
		}
	}
	raw, err := remote.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.EntityKind(), err)
	}
	switch x := e.(type) {
	case *types.Board:
		return decodeInto(raw, x)
	case *types.Column:
		return decodeInto(raw, x)
	case *types.Card:
		return decodeInto(raw, x)
	case *types.Subtask:
		return decodeInto(raw, x)
	}
	return fmt.Errorf("apply: unsupported entity %T", e)
}

func decodeInto[T any, P interface {
	*T
	Validate() error
}](raw []byte, dst P) error {
	next := P(new(T))
	if err := remote.Unmarshal(raw, next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*dst = *next
	return nil
}

// tempRefs returns the temporary IDs carried by *Id fields of values.
func tempRefs(values map[string]any) []types.ID {
	var out []types.ID
	for k, v := range values {
		s, ok := v.(string)
		if !ok || !strings.HasSuffix(k, "Id") {
			continue
		}
		if id := types.ParseID(s); id.IsTemp() {
			out = append(out, id)
		}
	}
	return out
}

// stampServerFields copies the store-computed timestamps of created onto
// local.
func stampServerFields(local, created entity) {
	switch l := local.(type) {
	case *types.Board:
		c := created.(*types.Board)
		l.CreatedAt, l.UpdatedAt = c.CreatedAt, c.UpdatedAt
	case *types.Column:
		c := created.(*types.Column)
		l.CreatedAt, l.UpdatedAt = c.CreatedAt, c.UpdatedAt
	case *types.Card:
		c := created.(*types.Card)
		l.CreatedAt, l.UpdatedAt = c.CreatedAt, c.UpdatedAt
	case *types.Subtask:
		l.CreatedAt = created.(*types.Subtask).CreatedAt
	}
}

func (m *Manager) remoteUpdate(ctx context.Context, kind types.Kind, id types.ID, values map[string]any) error {
	switch kind {
	case types.KindBoard:
		return m.remote.Boards.UpdateByID(ctx, id, values)
	case types.KindColumn:
		return m.remote.Columns.UpdateByID(ctx, id, values)
	case types.KindCard:
		return m.remote.Cards.UpdateByID(ctx, id, values)
	case types.KindSubtask:
		return m.remote.Subtasks.UpdateByID(ctx, id, values)
	}
	return fmt.Errorf("update: unknown kind %q", kind)
}

func (m *Manager) remoteDelete(ctx context.Context, kind types.Kind, id types.ID) error {
	switch kind {
	case types.KindBoard:
		return m.remote.Boards.DeleteByID(ctx, id)
	case types.KindColumn:
		return m.remote.Columns.DeleteByID(ctx, id)
	case types.KindCard:
		return m.remote.Cards.DeleteByID(ctx, id)
	case types.KindSubtask:
		return m.remote.Subtasks.DeleteByID(ctx, id)
	}
	return fmt.Errorf("delete: unknown kind %q", kind)
}

// removed is an entity taken out of the workspace with everything it owned.
type removed struct {
	kind    types.Kind
	id      types.ID
	refs    []ref // parent first
	restore func() error
}

// removeLocal deletes an entity and its descendants from the workspace.
func (m *Manager) removeLocal(kind types.Kind, id types.ID) (*removed, bool) {
	out := &removed{kind: kind, id: id}
	switch kind {
	case types.KindBoard:
		tree, ok := m.ws.RemoveBoard(id)
		if !ok {
			return nil, false
		}
		out.refs = boardRefs(tree)
		out.restore = func() error { return m.ws.RestoreBoard(tree) }
	case types.KindColumn:
		tree, ok := m.ws.RemoveColumn(id)
		if !ok {
			return nil, false
		}
		out.refs = columnRefs(tree)
		out.restore = func() error { return m.ws.RestoreColumn(tree) }
	case types.KindCard:
		tree, ok := m.ws.RemoveCard(id)
		if !ok {
			return nil, false
		}
		out.refs = cardRefs(tree)
		out.restore = func() error { return m.ws.RestoreCard(tree) }
	case types.KindSubtask:
		s, idx, ok := m.ws.RemoveSubtask(id)
		if !ok {
			return nil, false
		}
		out.refs = []ref{{types.KindSubtask, id}}
		out.restore = func() error { return m.ws.AddSubtask(s, idx) }
	default:
		return nil, false
	}
	return out, true
}

func boardRefs(t *workspace.BoardTree) []ref {
	out := []ref{{types.KindBoard, t.Board.ID}}
	for i := range t.Columns {
		out = append(out, columnRefs(&t.Columns[i])...)
	}
	return out
}

func columnRefs(t *workspace.ColumnTree) []ref {
	out := []ref{{types.KindColumn, t.Column.ID}}
	for i := range t.Cards {
		out = append(out, cardRefs(&t.Cards[i])...)
	}
	return out
}

func cardRefs(t *workspace.CardTree) []ref {
	out := []ref{{types.KindCard, t.Card.ID}}
	for _, s := range t.Subtasks {
		out = append(out, ref{types.KindSubtask, s.ID})
	}
	return out
}

func (r *removed) ids() []types.ID {
	out := make([]types.ID, len(r.refs))
	for i, x := range r.refs {
		out[i] = x.id
	}
	return out
}
