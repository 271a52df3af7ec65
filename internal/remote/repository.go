package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Repository is the typed view of one entity kind.
type Repository[T any, P types.Record[T]] struct {
	kind  types.Kind
	store DocumentStore
}

// NewRepository returns the repository of kind over store.
func NewRepository[T any, P types.Record[T]](store DocumentStore, kind types.Kind) *Repository[T, P] {
	return &Repository[T, P]{kind: kind, store: store}
}

// Kind returns the entity kind.
func (r *Repository[T, P]) Kind() types.Kind { return r.kind }

// Create persists e and returns the stored entity carrying its
// authoritative ID and server-computed fields. The entity's own ID is never
// sent; every reference it holds must already be authoritative.
func (r *Repository[T, P]) Create(ctx context.Context, e P) (P, error) {
	var zero P
	for _, ref := range e.References() {
		if ref.IsTemp() {
			return zero, fmt.Errorf("create %s: %w: %s", r.kind, ErrTemporaryReference, ref)
		}
	}
	out := P(e.Clone())
	if card, ok := any(out).(*types.Card); ok {
		card.StripTempReferences()
	}
	body, err := encodeEntity(out)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w: %w", r.kind, ErrPersistence, err)
	}
	doc, err := r.store.Insert(ctx, r.kind, e.ParentID().String(), body)
	if err != nil {
		return zero, wrap("create", r.kind, "", err)
	}
	created, err := r.decode(doc)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w: %w", r.kind, ErrPersistence, err)
	}
	return created, nil
}

// UpdateByID applies updates (field name → value, keyed by JSON name) to
// the entity with id. A nil value clears the field.
func (r *Repository[T, P]) UpdateByID(ctx context.Context, id types.ID, updates map[string]any) error {
	if id.IsTemp() {
		return fmt.Errorf("update %s: %w: %s", r.kind, ErrTemporaryReference, id)
	}
	clean, err := normalizeUpdates(updates)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", r.kind, id, err)
	}
	if err := r.store.Patch(ctx, r.kind, id.String(), clean); err != nil {
		return wrap("update", r.kind, id.String(), err)
	}
	return nil
}

// DeleteByID removes the entity with id.
func (r *Repository[T, P]) DeleteByID(ctx context.Context, id types.ID) error {
	if id.IsTemp() {
		return fmt.Errorf("delete %s: %w: %s", r.kind, ErrTemporaryReference, id)
	}
	if err := r.store.Remove(ctx, r.kind, id.String()); err != nil {
		return wrap("delete", r.kind, id.String(), err)
	}
	return nil
}

// ListFor returns the entities filed under parentID (zero for boards).
func (r *Repository[T, P]) ListFor(ctx context.Context, parentID types.ID) ([]P, error) {
	if parentID.IsTemp() {
		return nil, nil
	}
	docs, err := r.store.List(ctx, r.kind, parentID.String())
	if err != nil {
		return nil, wrap("list", r.kind, parentID.String(), err)
	}
	out := make([]P, 0, len(docs))
	for _, doc := range docs {
		e, err := r.decode(doc)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w: %w", r.kind, ErrPersistence, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository[T, P]) decode(doc Document) (P, error) {
	e := P(new(T))
	if err := Unmarshal(doc.Body, e); err != nil {
		var zero P
		return zero, fmt.Errorf("decode %s %s: %w", r.kind, doc.ID, err)
	}
	e.SetEntityID(types.RemoteID(doc.ID))
	return e, nil
}

func wrap(op string, kind types.Kind, id string, err error) error {
	target := string(kind)
	if id != "" {
		target += " " + id
	}
	if errors.Is(err, ErrPersistence) {
		return fmt.Errorf("%s %s: %w", op, target, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, target, ErrPersistence, err)
}

// Remote bundles the repositories of every entity kind over one store.
type Remote struct {
	Boards   *Repository[types.Board, *types.Board]
	Columns  *Repository[types.Column, *types.Column]
	Cards    *Repository[types.Card, *types.Card]
	Subtasks *Repository[types.Subtask, *types.Subtask]

	store DocumentStore
}

// New returns the repositories over store.
func New(store DocumentStore) *Remote {
	return &Remote{
		Boards:   NewRepository[types.Board, *types.Board](store, types.KindBoard),
		Columns:  NewRepository[types.Column, *types.Column](store, types.KindColumn),
		Cards:    NewRepository[types.Card, *types.Card](store, types.KindCard),
		Subtasks: NewRepository[types.Subtask, *types.Subtask](store, types.KindSubtask),
		store:    store,
	}
}

// Store returns the underlying document store.
func (r *Remote) Store() DocumentStore { return r.store }

// Close releases the underlying store.
func (r *Remote) Close() error { return r.store.Close() }
