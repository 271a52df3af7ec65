package reconcile

import (
	"errors"
	"fmt"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

// ErrImmutableField is returned when an update names a field that only the
// store or a move may change.
var ErrImmutableField = errors.New("field cannot be updated")

// PersistenceError is a remote call that failed after retries.
type PersistenceError struct {
	Op            string
	Kind          types.Kind
	ID            types.ID
	CorrelationID string
	Err           error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s %s [%s]: %v", e.Op, e.Kind, e.ID, e.CorrelationID, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{e.Err, remote.ErrPersistence}
}

// ReconciliationError is a create response that arrived for an entity the
// workspace no longer holds. The response is discarded.
type ReconciliationError struct {
	Kind          types.Kind
	TempID        types.ID
	RemoteID      types.ID
	CorrelationID string
	Reason        string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s %s -> %s: %s", e.Kind, e.TempID, e.RemoteID, e.Reason)
}
