package reconcile

import (
	"fmt"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/transition"
	"github.com/steveyegge/kanbeads/internal/types"
)

func opNote(t notify.Type, level notify.Level, title string, op *Operation) *notify.Notification {
	return &notify.Notification{
		Type:          t,
		Level:         level,
		Title:         title,
		Op:            op.Op,
		Kind:          op.Kind,
		EntityID:      op.EntityID,
		CorrelationID: op.CorrelationID,
	}
}

func succeededNote(op *Operation) *notify.Notification {
	return opNote(notify.TypeMutationSucceeded, notify.LevelSuccess,
		fmt.Sprintf("%s %s saved", op.Kind, op.Op), op)
}

func failedNote(op *Operation, err error) *notify.Notification {
	n := opNote(notify.TypeMutationFailed, notify.LevelError,
		fmt.Sprintf("%s %s failed", op.Kind, op.Op), op)
	n.Message = err.Error()
	n.Err = err
	return n
}

func rolledBackNote(op *Operation, message string) *notify.Notification {
	n := opNote(notify.TypeRolledBack, notify.LevelWarning,
		fmt.Sprintf("%s %s undone", op.Kind, op.Op), op)
	n.Message = message
	return n
}

func reconciledNote(op *Operation, tempID, realID types.ID) *notify.Notification {
	n := opNote(notify.TypeReconciled, notify.LevelSuccess,
		fmt.Sprintf("%s saved", op.Kind), op)
	n.EntityID = realID
	n.TempID = tempID
	n.Message = fmt.Sprintf("%s is now %s", tempID, realID)
	return n
}

func discardedNote(op *Operation, rerr *ReconciliationError) *notify.Notification {
	n := opNote(notify.TypeReconcileDiscarded, notify.LevelWarning,
		fmt.Sprintf("%s response discarded", op.Kind), op)
	n.EntityID = rerr.RemoteID
	n.TempID = rerr.TempID
	n.Message = rerr.Reason
	n.Err = rerr
	return n
}

func deniedNote(card *types.Card, v transition.Verdict) *notify.Notification {
	return &notify.Notification{
		Type:     notify.TypeMoveDenied,
		Level:    notify.LevelWarning,
		Title:    card.Title,
		Message:  v.Reason,
		Op:       "move",
		Kind:     types.KindCard,
		EntityID: card.ID,
	}
}

func localNote(kind types.Kind, id types.ID, opName, message string) *notify.Notification {
	return &notify.Notification{
		Type:     notify.TypeMutationSucceeded,
		Level:    notify.LevelInfo,
		Title:    fmt.Sprintf("%s %s", kind, opName),
		Message:  message,
		Op:       opName,
		Kind:     kind,
		EntityID: id,
	}
}
