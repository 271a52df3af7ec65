// Package remote is the client side of the authoritative board store.
//
// The store is schemaless: every entity is a JSON document filed under its
// kind and parent. Typed repositories (Repository) translate between board
// entities and documents; backends implement DocumentStore. Temporary IDs
// never leave this package: outgoing bodies are stripped of them and
// references to them are refused.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Sentinel errors
var (
	// ErrPersistence marks every failed remote call.
	ErrPersistence = errors.New("remote persistence failed")
	// ErrNotFound means the id does not exist in the store.
	ErrNotFound = fmt.Errorf("%w: not found", ErrPersistence)
	// ErrTransient marks failures worth retrying (timeouts, dropped
	// connections, 5xx responses).
	ErrTransient = errors.New("transient remote failure")
	// ErrTemporaryReference is returned when an outgoing call would carry a
	// temporary ID.
	ErrTemporaryReference = errors.New("entity references an unreconciled temporary id")
)

// Document is one stored entity.
type Document struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	// Body is the JSON object of the entity, server-computed fields
	// included.
	Body []byte `json:"-"`
}

// DocumentStore is implemented by every backend. Implementations assign
// IDs on Insert and stamp the body with "id", "createdAt" and "updatedAt".
type DocumentStore interface {
	Insert(ctx context.Context, kind types.Kind, parentID string, body []byte) (Document, error)
	Patch(ctx context.Context, kind types.Kind, id string, updates map[string]any) error
	Remove(ctx context.Context, kind types.Kind, id string) error
	List(ctx context.Context, kind types.Kind, parentID string) ([]Document, error)
	Close() error
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Transient wraps err so IsTransient reports true.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
